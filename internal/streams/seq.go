// Package streams implements the lazy, restartable sequence combinators the
// twin runtime composes twin state streams with: debounce, distinct_until_changed,
// combine_latest and switch_map. None buffer beyond the bounds documented on
// each combinator; all are cancellable by dropping the sink.
package streams

import "context"

// Seq is a lazy, push-based sequence of items of type T. Items flow over C
// until the producing goroutine closes it. Cancel releases any resources the
// sequence holds (timers, subscriptions, inner sequences) and is safe to call
// more than once.
type Seq[T any] struct {
	C      <-chan T
	Cancel context.CancelFunc
}

// Close cancels the sequence. Equivalent to calling Cancel directly, but nil
// safe so callers don't need to guard zero-value Seqs.
func (s Seq[T]) Close() {
	if s.Cancel != nil {
		s.Cancel()
	}
}

// Of wraps an existing channel and cancel function into a Seq.
func Of[T any](c <-chan T, cancel context.CancelFunc) Seq[T] {
	return Seq[T]{C: c, Cancel: cancel}
}
