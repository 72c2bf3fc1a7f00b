// Package registry implements MissionRegistryTwin: the set of currently
// visible mission ids, queried once across the whole 'mission' stream
// rather than per-identity.
package registry

import (
	"encoding/json"
	"sort"

	"launchpad/internal/eventlog"
	"launchpad/internal/logging"
)

// State is the registry projection: an unordered set of mission ids,
// normalized to sorted order so Equal is a straightforward slice compare.
type State struct {
	MissionIDs []string
}

// Equal compares the sorted id sets.
func (s State) Equal(other State) bool {
	if len(s.MissionIDs) != len(other.MissionIDs) {
		return false
	}
	for i := range s.MissionIDs {
		if s.MissionIDs[i] != other.MissionIDs[i] {
			return false
		}
	}
	return true
}

// Twin implements twin.Twin[State] over the whole mission entity stream.
type Twin struct{}

func (Twin) Name() string   { return "mission-registry" }
func (Twin) ID() string     { return "" }
func (Twin) Query() string  { return "FROM 'mission'" }
func (Twin) Default() State { return State{} }

type envelope struct {
	EventType string `json:"eventType"`
	ID        string `json:"id"`
	Visible   *bool  `json:"visible"`
}

func (Twin) Reduce(state State, event eventlog.Event) State {
	var env envelope
	if err := json.Unmarshal(event.Payload, &env); err != nil {
		logging.L().Warn("registry: decode failed, ignoring event", logging.Error(err))
		return state
	}

	switch env.EventType {
	case "defineMission":
		return insert(state, env.ID)

	case "showMission":
		if env.Visible != nil && !*env.Visible {
			return remove(state, env.ID)
		}
		return state

	default:
		return state
	}
}

func insert(state State, id string) State {
	for _, existing := range state.MissionIDs {
		if existing == id {
			return state
		}
	}
	next := append(append([]string(nil), state.MissionIDs...), id)
	sort.Strings(next)
	return State{MissionIDs: next}
}

func remove(state State, id string) State {
	next := state.MissionIDs[:0:0]
	for _, existing := range state.MissionIDs {
		if existing != id {
			next = append(next, existing)
		}
	}
	return State{MissionIDs: next}
}
