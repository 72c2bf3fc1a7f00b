package resolve

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"launchpad/internal/eventlog"
	"launchpad/internal/twin"
	"launchpad/internal/twinexec"
)

type parentState struct {
	childID string
	has     bool
}

func (s parentState) Equal(other parentState) bool { return s == other }

type parentTwin struct{}

func (parentTwin) Name() string  { return "parent" }
func (parentTwin) ID() string    { return "p1" }
func (parentTwin) Query() string { return "FROM 'parent:p1'" }

func (parentTwin) Default() parentState { return parentState{} }

func (parentTwin) Reduce(state parentState, event eventlog.Event) parentState {
	var payload struct {
		Child string `json:"child"`
		Clear bool   `json:"clear"`
	}
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return state
	}
	if payload.Clear {
		return parentState{}
	}
	return parentState{childID: payload.Child, has: true}
}

type childState struct{ value int }

func (s childState) Equal(other childState) bool { return s == other }

type childTwin struct{ id string }

func (c childTwin) Name() string  { return "child" }
func (c childTwin) ID() string    { return c.id }
func (c childTwin) Query() string { return "FROM 'child:" + c.id + "'" }

func (childTwin) Default() childState { return childState{} }

func (childTwin) Reduce(state childState, event eventlog.Event) childState {
	var payload struct {
		Value int `json:"value"`
	}
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return state
	}
	return childState{value: payload.Value}
}

// scriptedLog hands out one scripted subscription per sessionID the first
// time it's requested; subsequent requests for the same session (restarts)
// receive a closed, empty subscription so tests don't hang.
type scriptedLog struct {
	mu     sync.Mutex
	byID   map[string]chan eventlog.SubscribeResponse
	served map[string]bool
}

func newScriptedLog() *scriptedLog {
	return &scriptedLog{byID: map[string]chan eventlog.SubscribeResponse{}, served: map[string]bool{}}
}

func (s *scriptedLog) script(sessionID string, responses ...eventlog.SubscribeResponse) {
	ch := make(chan eventlog.SubscribeResponse, len(responses))
	for _, r := range responses {
		ch <- r
	}
	close(ch)
	s.mu.Lock()
	s.byID[sessionID] = ch
	s.mu.Unlock()
}

func (s *scriptedLog) SubscribeMonotonic(ctx context.Context, sessionID string, startFrom eventlog.OffsetMap, query string) (*eventlog.Subscription, error) {
	s.mu.Lock()
	ch, ok := s.byID[sessionID]
	if !ok || s.served[sessionID] {
		ch = make(chan eventlog.SubscribeResponse)
		close(ch)
	} else {
		s.served[sessionID] = true
	}
	s.mu.Unlock()
	return eventlog.NewTestSubscription(ctx, ch), nil
}

func event(v int) eventlog.Event {
	payload, _ := json.Marshal(struct {
		Value int `json:"value"`
	}{Value: v})
	return eventlog.Event{Payload: payload}
}

func parentEvent(child string) eventlog.Event {
	payload, _ := json.Marshal(struct {
		Child string `json:"child"`
	}{Child: child})
	return eventlog.Event{Payload: payload}
}

func TestRelationFollowsSelectedChild(t *testing.T) {
	log := newScriptedLog()
	log.script("parent:p1",
		eventlog.SubscribeResponse{Kind: eventlog.SubscribeEvent, Event: parentEvent("c1")},
	)
	log.script("child:c1",
		eventlog.SubscribeResponse{Kind: eventlog.SubscribeEvent, Event: event(1)},
	)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	opts := twinexec.Options{ChannelCapacity: 10, Debounce: 5 * time.Millisecond, SubscribeBackoff: 5 * time.Millisecond}

	selectFn := func(p parentState) (twin.Twin[childState], bool) {
		if !p.has {
			return nil, false
		}
		return childTwin{id: p.childID}, true
	}

	out := Relation[parentState, childState](ctx, log, parentTwin{}, opts, selectFn)
	defer out.Close()

	select {
	case s := <-out.C:
		if s.value != 1 {
			t.Errorf("s.value = %d, want 1", s.value)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for resolved child state")
	}
}
