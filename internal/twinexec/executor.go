// Package twinexec is the twin executor: it subscribes a twin to the event
// log, folds events through the twin's reducer and exposes the result as a
// debounced, distinct state stream. It holds one subscription at a time,
// retries a failed subscribe until its output is dropped, and closes its
// output after an open subscription ends for any reason other than time
// travel.
package twinexec

import (
	"context"
	"time"

	"launchpad/internal/eventlog"
	"launchpad/internal/logging"
	"launchpad/internal/streams"
	"launchpad/internal/twin"
)

// Log is the subset of the eventlog client the executor depends on, allowing
// tests to substitute a fake.
type Log interface {
	SubscribeMonotonic(ctx context.Context, sessionID string, startFrom eventlog.OffsetMap, query string) (*eventlog.Subscription, error)
}

// Metrics receives executor lifecycle observations. Both methods are called
// with the twin's session id (name:id). Implementations must be safe for
// concurrent use across twins. A nil Metrics in Options disables reporting.
type Metrics interface {
	ObserveEventApplied(twinSessionID string)
	ObserveTimeTravel(twinSessionID string)
}

// Options tunes the executor's timing parameters.
type Options struct {
	// ChannelCapacity bounds the raw state channel the subscription loop
	// writes to before debounce/distinct.
	ChannelCapacity int
	// Debounce is the per-twin debounce window.
	Debounce time.Duration
	// SubscribeBackoff is the delay before retrying a failed subscribe, and
	// the pause before the task ends after an open subscription closes.
	SubscribeBackoff time.Duration
	// Metrics, if non-nil, is notified of applied events and time travels.
	Metrics Metrics
}

// DefaultOptions returns the timing parameters the runtime ships with.
func DefaultOptions() Options {
	return Options{
		ChannelCapacity:  100,
		Debounce:         90 * time.Millisecond,
		SubscribeBackoff: 100 * time.Millisecond,
	}
}

// Run starts t's executor task and returns its public, debounced, distinct
// state stream. Cancelling ctx (or closing the returned Seq) stops the task
// and its log subscription.
func Run[S twin.State[S]](ctx context.Context, log Log, t twin.Twin[S], opts Options) streams.Seq[S] {
	if opts.ChannelCapacity <= 0 {
		opts.ChannelCapacity = 100
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 90 * time.Millisecond
	}
	if opts.SubscribeBackoff <= 0 {
		opts.SubscribeBackoff = 100 * time.Millisecond
	}

	raw := make(chan S, opts.ChannelCapacity)
	taskCtx, cancel := context.WithCancel(ctx)

	go runTask(taskCtx, log, t, raw, opts)

	rawSeq := streams.Of[S](raw, func() {})
	debounced := streams.Debounce(taskCtx, rawSeq, opts.Debounce)
	distinct := streams.DistinctUntilChanged(taskCtx, debounced, func(a, b S) bool { return a.Equal(b) })

	return streams.Of(distinct.C, cancel)
}

func runTask[S twin.State[S]](ctx context.Context, log Log, t twin.Twin[S], raw chan<- S, opts Options) {
	defer close(raw)

	sessionID := twin.SessionID(t.Name(), t.ID())
	ctx, twinLog := logging.WithTwinSession(ctx, nil, sessionID)

	for {
		if ctx.Err() != nil {
			return
		}

		state := t.Default()
		pushNonBlocking(raw, state)

		// Outer loop: reconnect on subscribe failure until the stream is
		// dropped (ctx cancelled).
		sub, err := log.SubscribeMonotonic(ctx, sessionID, eventlog.OffsetMap{}, t.Query())
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			twinLog.Warn("twinexec: subscribe failed, retrying", logging.Error(err))
			if !sleepOrDone(ctx, opts.SubscribeBackoff) {
				return
			}
			continue
		}

		timeTravel := runEventLoop(ctx, sub, t, &state, raw, twinLog, sessionID, opts.Metrics)
		sub.Close()

		if ctx.Err() != nil {
			return
		}
		if timeTravel {
			// Restart at step (a) with a fresh default state.
			continue
		}

		// End-of-stream: the source closed the subscription. Back off
		// briefly and terminate the task; the channel close tells
		// downstream the stream is gone.
		sleepOrDone(ctx, opts.SubscribeBackoff)
		return
	}
}

// runEventLoop drains sub until it closes or a time-travel notification
// requires a restart. Returns true if the caller should immediately
// resubscribe (time travel), false if the subscription ended or ctx was
// cancelled (the caller then backs off briefly and ends the task).
func runEventLoop[S twin.State[S]](ctx context.Context, sub *eventlog.Subscription, t twin.Twin[S], state *S, raw chan<- S, twinLog *logging.Logger, sessionID string, metrics Metrics) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case resp, ok := <-sub.Responses():
			if !ok {
				return false
			}
			switch resp.Kind {
			case eventlog.SubscribeEvent:
				*state = t.Reduce(*state, resp.Event)
				if metrics != nil {
					metrics.ObserveEventApplied(sessionID)
				}
				pushNonBlocking(raw, *state)
			case eventlog.SubscribeOffsets:
				pushNonBlocking(raw, *state)
			case eventlog.SubscribeTimeTravel:
				twinLog.Debug("twinexec: time travel, rebuilding state")
				if metrics != nil {
					metrics.ObserveTimeTravel(sessionID)
				}
				*state = t.Default()
				pushNonBlocking(raw, *state)
				return true
			default:
				twinLog.Debug("twinexec: unknown subscribe response, ignoring")
			}
		}
	}
}

// pushNonBlocking writes state to raw, dropping it if the channel is full.
// Downstream debouncing absorbs the loss; the next successful push (or the
// final one before the channel closes) is always delivered.
func pushNonBlocking[S any](raw chan<- S, state S) {
	select {
	case raw <- state:
	default:
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
