package streams

import (
	"context"
	"time"
)

// Debounce emits the most recent item from src only after d has elapsed since
// the last received item. If src closes, the last buffered item (if any) is
// still emitted once d has elapsed since it arrived, and then the returned
// sequence closes. The gap between any two
// emitted items is never less than d. Dropping the returned Seq cancels the
// pending timer and the upstream subscription.
func Debounce[T any](ctx context.Context, src Seq[T], d time.Duration) Seq[T] {
	out := make(chan T)
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(out)
		defer src.Close()

		timer := time.NewTimer(d)
		if !timer.Stop() {
			<-timer.C
		}
		armed := false
		var pending T
		have := false

		disarm := func() {
			if armed && !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			armed = false
		}
		defer disarm()

		for {
			select {
			case <-ctx.Done():
				return
			case item, ok := <-src.C:
				if !ok {
					if have {
						if armed {
							select {
							case <-timer.C:
								armed = false
							case <-ctx.Done():
								return
							}
						}
						select {
						case out <- pending:
						case <-ctx.Done():
						}
					}
					return
				}
				pending = item
				have = true
				disarm()
				timer.Reset(d)
				armed = true
			case <-timer.C:
				armed = false
				if have {
					select {
					case out <- pending:
						have = false
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return Of(out, cancel)
}
