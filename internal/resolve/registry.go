package resolve

import (
	"context"

	"launchpad/internal/streams"
	"launchpad/internal/twin"
	"launchpad/internal/twinexec"
)

// Mapper projects a registry twin's state down to the current set of child
// twins it contains.
type Mapper[R any, C twin.State[C]] func(R) []twin.Twin[C]

// Registry subscribes to registry and, each time mapFn yields a new set of
// child twins, switches the output to the combine_latest of that set's
// executor streams. Downstream sees a vector whose length equals the
// current registry population, emitted once every child in the set has
// produced at least one state.
func Registry[R twin.State[R], C twin.State[C]](ctx context.Context, log twinexec.Log, registry twin.Twin[R], opts twinexec.Options, mapFn Mapper[R, C]) streams.Seq[[]C] {
	registryStates := twinexec.Run(ctx, log, registry, opts)

	childSets := streams.Map(ctx, registryStates, mapFn)

	out := streams.SwitchMap(ctx, childSets, func(innerCtx context.Context, children []twin.Twin[C]) streams.Seq[[]C] {
		sources := make([]streams.Seq[C], len(children))
		for i, child := range children {
			sources[i] = twinexec.Run(innerCtx, log, child, opts)
		}
		return streams.CombineLatestSlice(innerCtx, sources)
	})

	return out
}
