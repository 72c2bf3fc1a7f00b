package streams

import "context"

// Pair holds the latest value from each side of a CombineLatest2.
type Pair[A, B any] struct {
	A A
	B B
}

// CombineLatest2 emits a Pair of the latest values from a and b whenever
// either side produces a new item, once both sides have emitted at least
// once. When one source closes, the combined sequence keeps that side's last
// value and goes on emitting for the other; it closes once both sources
// have closed.
func CombineLatest2[A, B any](ctx context.Context, a Seq[A], b Seq[B]) Seq[Pair[A, B]] {
	out := make(chan Pair[A, B])
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(out)
		defer a.Close()
		defer b.Close()

		var latest Pair[A, B]
		haveA, haveB := false, false
		aCh, bCh := a.C, b.C

		for {
			if aCh == nil && bCh == nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			case item, ok := <-aCh:
				if !ok {
					aCh = nil
					continue
				}
				latest.A = item
				haveA = true
				if haveB {
					select {
					case out <- latest:
					case <-ctx.Done():
						return
					}
				}
			case item, ok := <-bCh:
				if !ok {
					bCh = nil
					continue
				}
				latest.B = item
				haveB = true
				if haveA {
					select {
					case out <- latest:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return Of(out, cancel)
}

// CombineLatestSlice fan-ins a dynamic set of sources of the same type,
// emitting the slice of every source's latest value, in source order, once
// every source has produced at least one item. Sources is read once at call
// time; the set of sources is fixed for the lifetime of the returned Seq
// (dynamic membership changes belong to switch_map-based callers that
// rebuild the combine on each registry update).
func CombineLatestSlice[T any](ctx context.Context, sources []Seq[T]) Seq[[]T] {
	out := make(chan []T)
	ctx, cancel := context.WithCancel(ctx)

	if len(sources) == 0 {
		go func() {
			defer close(out)
			select {
			case out <- nil:
			case <-ctx.Done():
			}
		}()
		return Of(out, cancel)
	}

	go func() {
		defer close(out)
		for _, s := range sources {
			defer s.Close()
		}

		latest := make([]T, len(sources))
		have := make([]bool, len(sources))
		remaining := len(sources)

		type indexed struct {
			idx  int
			item T
			ok   bool
		}
		merged := make(chan indexed)
		for i, s := range sources {
			i, s := i, s
			go func() {
				for {
					select {
					case item, ok := <-s.C:
						select {
						case merged <- indexed{idx: i, item: item, ok: ok}:
						case <-ctx.Done():
							return
						}
						if !ok {
							return
						}
					case <-ctx.Done():
						return
					}
				}
			}()
		}

		allReady := func() bool {
			for _, h := range have {
				if !h {
					return false
				}
			}
			return true
		}

		for {
			select {
			case <-ctx.Done():
				return
			case m := <-merged:
				if !m.ok {
					remaining--
					if remaining == 0 {
						return
					}
					continue
				}
				latest[m.idx] = m.item
				if !have[m.idx] {
					have[m.idx] = true
				}
				if allReady() {
					snapshot := make([]T, len(latest))
					copy(snapshot, latest)
					select {
					case out <- snapshot:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return Of(out, cancel)
}
