package streams

import "context"

// SwitchMap subscribes to src and, for each item it produces, calls project
// to build an inner sequence. Only the most recently projected inner
// sequence is ever active: whenever src produces a new item, the previous
// inner sequence is cancelled before project is invoked again. Items from
// the active inner sequence are forwarded to the output as they arrive. The
// output closes once src has closed and the last inner sequence it produced
// has also closed.
func SwitchMap[T, R any](ctx context.Context, src Seq[T], project func(context.Context, T) Seq[R]) Seq[R] {
	out := make(chan R)
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(out)
		defer src.Close()

		var innerCtx context.Context
		var innerCancel context.CancelFunc
		var inner Seq[R]
		innerActive := false
		srcClosed := false

		stopInner := func() {
			if innerActive {
				innerCancel()
				inner.Close()
				innerActive = false
			}
		}
		defer stopInner()

		srcCh := src.C

		for {
			var innerCh <-chan R
			if innerActive {
				innerCh = inner.C
			}

			if srcClosed && !innerActive {
				return
			}

			select {
			case <-ctx.Done():
				return

			case item, ok := <-srcCh:
				if !ok {
					srcClosed = true
					srcCh = nil
					continue
				}
				stopInner()
				innerCtx, innerCancel = context.WithCancel(ctx)
				inner = project(innerCtx, item)
				innerActive = true

			case item, ok := <-innerCh:
				if !ok {
					innerActive = false
					continue
				}
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
