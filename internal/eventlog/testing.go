package eventlog

import "context"

// NewTestSubscription wraps an already-decoded response channel as a
// Subscription, for use by fakes in other packages' tests (e.g.
// internal/twinexec) that need to hand the executor a scripted sequence of
// SubscribeResponse values without a real log connection.
func NewTestSubscription(ctx context.Context, responses <-chan SubscribeResponse) *Subscription {
	_, cancel := context.WithCancel(ctx)
	out := make(chan SubscribeResponse)
	sub := &Subscription{responses: out, cancel: cancel}

	go func() {
		defer close(out)
		for {
			select {
			case resp, ok := <-responses:
				if !ok {
					return
				}
				select {
				case out <- resp:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return sub
}
