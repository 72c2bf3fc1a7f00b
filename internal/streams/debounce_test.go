package streams

import (
	"context"
	"testing"
	"time"
)

func TestDebounceCoalescesBurst(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := make(chan int)
	src := Of[int](in, func() {})

	out := Debounce(ctx, src, 20*time.Millisecond)

	go func() {
		in <- 1
		in <- 2
		in <- 3
		close(in)
	}()

	select {
	case v, ok := <-out.C:
		if !ok {
			t.Fatal("expected one value, channel closed early")
		}
		if v != 3 {
			t.Errorf("got %d, want 3 (last value in burst)", v)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for debounced value")
	}

	select {
	case _, ok := <-out.C:
		if ok {
			t.Fatal("expected channel to close after flushing last item")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for close")
	}
}

func TestDebounceRespectsGap(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := make(chan int)
	src := Of[int](in, func() {})
	out := Debounce(ctx, src, 10*time.Millisecond)

	start := time.Now()
	go func() {
		in <- 1
		close(in)
	}()

	v, ok := <-out.C
	if !ok || v != 1 {
		t.Fatalf("got (%d, %v), want (1, true)", v, ok)
	}
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("emitted after %v, want at least debounce window", elapsed)
	}
}

func TestDebounceCancelStopsEmission(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	in := make(chan int)
	src := Of[int](in, func() {})
	out := Debounce(ctx, src, 50*time.Millisecond)

	go func() { in <- 1 }()
	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case _, ok := <-out.C:
		if ok {
			t.Fatal("expected no further emission after cancel")
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timed out waiting for channel to close after cancel")
	}
}
