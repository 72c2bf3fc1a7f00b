package streams

import (
	"context"
	"testing"
	"time"
)

func TestSwitchMapSwitchesToLatestInner(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	outer := make(chan int)
	innerChans := map[int]chan string{
		1: make(chan string),
		2: make(chan string),
	}
	cancelled := make(map[int]bool)

	project := func(innerCtx context.Context, key int) Seq[string] {
		ch := innerChans[key]
		innerCancel := func() { cancelled[key] = true }
		go func() {
			<-innerCtx.Done()
		}()
		return Of[string](ch, innerCancel)
	}

	out := SwitchMap(ctx, Of[int](outer, func() {}), project)

	outer <- 1
	innerChans[1] <- "a"
	select {
	case v := <-out.C:
		if v != "a" {
			t.Fatalf("got %q, want a", v)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for first inner value")
	}

	outer <- 2
	time.Sleep(20 * time.Millisecond)

	select {
	case innerChans[1] <- "stale":
		t.Fatal("old inner should no longer be read from after switch")
	case <-time.After(30 * time.Millisecond):
	}

	innerChans[2] <- "b"
	select {
	case v := <-out.C:
		if v != "b" {
			t.Fatalf("got %q, want b", v)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for second inner value")
	}

	close(outer)
	close(innerChans[2])
}

func TestSwitchMapClosesAfterOuterAndInnerClose(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	outer := make(chan int, 1)
	inner := make(chan string)

	project := func(_ context.Context, _ int) Seq[string] {
		return Of[string](inner, func() {})
	}

	out := SwitchMap(ctx, Of[int](outer, func() {}), project)

	outer <- 1
	close(outer)
	close(inner)

	select {
	case _, ok := <-out.C:
		if ok {
			t.Fatal("expected channel to close")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for close")
	}
}
