package streams

import "context"

// Map transforms every item from src through f. It introduces no buffering
// or timing of its own; it is a thin adapter used to reshape items between
// combinators (e.g. projecting a twin state down to a selector's
// conclusion before feeding switch_map).
func Map[T, R any](ctx context.Context, src Seq[T], f func(T) R) Seq[R] {
	out := make(chan R)
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(out)
		defer src.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case item, ok := <-src.C:
				if !ok {
					return
				}
				select {
				case out <- f(item):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return Of(out, cancel)
}
