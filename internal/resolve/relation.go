// Package resolve implements the two resolution helpers the controller uses
// to turn a parent twin's state into a stream of related child twin state:
// Relation (one-to-one, via switch_map) and Registry (one-to-many, via
// switch_map + combine_latest).
package resolve

import (
	"context"

	"launchpad/internal/streams"
	"launchpad/internal/twin"
	"launchpad/internal/twinexec"
)

// Selector picks the child twin a parent state currently points at. The
// second return value is false when the parent has no current child — in
// that case Relation leaves whatever child subscription is already active
// untouched rather than tearing it down, to avoid flapping when the
// parent's view of its child is momentarily absent.
type Selector[P any, C twin.State[C]] func(P) (twin.Twin[C], bool)

// Relation subscribes to parent and, each time select yields a new child
// twin, switches the output to that child's executor stream. A select that
// returns ok==false is simply skipped: the previously active child (if any)
// keeps streaming.
func Relation[P twin.State[P], C twin.State[C]](ctx context.Context, log twinexec.Log, parent twin.Twin[P], opts twinexec.Options, selectFn Selector[P, C]) streams.Seq[C] {
	parentStates := twinexec.Run(ctx, log, parent, opts)

	type selection struct {
		child twin.Twin[C]
	}

	selections := make(chan selection)
	selCtx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(selections)
		defer parentStates.Close()
		for {
			select {
			case <-selCtx.Done():
				return
			case state, ok := <-parentStates.C:
				if !ok {
					return
				}
				child, has := selectFn(state)
				if !has {
					continue
				}
				select {
				case selections <- selection{child: child}:
				case <-selCtx.Done():
					return
				}
			}
		}
	}()

	selSeq := streams.Of(selections, func() {})

	out := streams.SwitchMap(selCtx, selSeq, func(innerCtx context.Context, sel selection) streams.Seq[C] {
		return twinexec.Run(innerCtx, log, sel.child, opts)
	})

	return streams.Of(out.C, cancel)
}
