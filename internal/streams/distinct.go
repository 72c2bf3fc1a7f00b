package streams

import "context"

// DistinctUntilChanged forwards items from src except when the new item
// equals the previously forwarded item under equal. The first item is always
// forwarded.
func DistinctUntilChanged[T any](ctx context.Context, src Seq[T], equal func(a, b T) bool) Seq[T] {
	out := make(chan T)
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(out)
		defer src.Close()

		var last T
		have := false

		for {
			select {
			case <-ctx.Done():
				return
			case item, ok := <-src.C:
				if !ok {
					return
				}
				if have && equal(last, item) {
					continue
				}
				last = item
				have = true
				select {
				case out <- item:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return Of(out, cancel)
}
