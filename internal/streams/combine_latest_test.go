package streams

import (
	"context"
	"testing"
	"time"
)

func TestCombineLatest2WaitsForBothSides(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	aCh := make(chan int)
	bCh := make(chan string)
	out := CombineLatest2(ctx, Of[int](aCh, func() {}), Of[string](bCh, func() {}))

	go func() { aCh <- 1 }()

	select {
	case <-out.C:
		t.Fatal("should not emit until both sides have a value")
	case <-time.After(30 * time.Millisecond):
	}

	go func() { bCh <- "x" }()

	select {
	case p := <-out.C:
		if p.A != 1 || p.B != "x" {
			t.Fatalf("got %+v, want {A:1 B:x}", p)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for combined pair")
	}

	close(aCh)
	close(bCh)
}

func TestCombineLatestSliceEmitsOncePerUpdate(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch1 := make(chan int)
	ch2 := make(chan int)
	out := CombineLatestSlice(ctx, []Seq[int]{
		Of[int](ch1, func() {}),
		Of[int](ch2, func() {}),
	})

	go func() {
		ch1 <- 10
		ch2 <- 20
		ch1 <- 11
	}()

	first := <-out.C
	if first[0] != 10 || first[1] != 20 {
		t.Fatalf("got %v, want [10 20]", first)
	}

	second := <-out.C
	if second[0] != 11 || second[1] != 20 {
		t.Fatalf("got %v, want [11 20]", second)
	}

	close(ch1)
	close(ch2)
}

func TestCombineLatestSliceEmptyYieldsNil(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := CombineLatestSlice[int](ctx, nil)
	select {
	case v, ok := <-out.C:
		if ok && v != nil {
			t.Fatalf("got %v, want nil", v)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}
}
