// Package launchpad implements LaunchpadTwin: the launchpad's view of its
// currently attached drone, active mission and mission queue.
package launchpad

import (
	"encoding/json"

	"launchpad/internal/domain"
	"launchpad/internal/eventlog"
	"launchpad/internal/logging"
)

// State is the launchpad projection. Reducer transitions are listed in
// Reduce's switch; every unmatched event is the identity transition.
type State struct {
	ID             string
	CurrentMission domain.OptString
	MissionQueue   []string
	AttachedDrone  domain.OptString
	DroneEnabled   bool
}

// Equal compares field-by-field; MissionQueue is compared element-wise
// since it's a slice and therefore not usable with ==.
func (s State) Equal(other State) bool {
	if s.ID != other.ID ||
		!s.CurrentMission.Equal(other.CurrentMission) ||
		!s.AttachedDrone.Equal(other.AttachedDrone) ||
		s.DroneEnabled != other.DroneEnabled {
		return false
	}
	if len(s.MissionQueue) != len(other.MissionQueue) {
		return false
	}
	for i := range s.MissionQueue {
		if s.MissionQueue[i] != other.MissionQueue[i] {
			return false
		}
	}
	return true
}

// Twin implements twin.Twin[State] for a single launchpad identity.
type Twin struct {
	LaunchpadName string
}

func (t Twin) Name() string { return "launchpad" }
func (t Twin) ID() string   { return t.LaunchpadName }
// Query unions the launchpad's own event stream with the drone completion
// tag: droneMissionCompleted events are tagged only on the drone entity
// (see internal/domain/drone/emit.go's EmitMissionCompleted), never on the
// launchpad, so without this union the reducer's droneMissionCompleted
// case below would never see one. A pull via query union, not a runtime
// pointer back to the drone twin.
func (t Twin) Query() string {
	return "FROM 'launchpad:" + t.LaunchpadName + "' | 'drone.mission.completed'"
}
func (t Twin) Default() State {
	return State{MissionQueue: nil}
}

// envelope is the common shape of every launchpad-relevant event payload;
// fields not relevant to a given eventType are simply left zero.
type envelope struct {
	EventType   string `json:"eventType"`
	ID          string `json:"id"`
	Drone       string `json:"drone"`
	MissionID   string `json:"missionId"`
	LaunchpadID string `json:"launchpadId"`
}

func (t Twin) Reduce(state State, event eventlog.Event) State {
	var env envelope
	if err := json.Unmarshal(event.Payload, &env); err != nil {
		logging.L().Warn("launchpad: decode failed, ignoring event", logging.Error(err))
		return state
	}

	switch env.EventType {
	case "launchPadRegistered":
		state.ID = env.ID
		return state

	case "droneMounted":
		state.AttachedDrone = domain.Some(env.Drone)
		state.DroneEnabled = false
		return state

	case "droneActivated":
		state.AttachedDrone = domain.Some(env.Drone)
		state.DroneEnabled = true
		return state

	case "activateDroneTimeout":
		state.DroneEnabled = false
		return state

	case "droneStarted":
		state.AttachedDrone = domain.None
		state.DroneEnabled = false
		return state

	case "missionQueued":
		next := make([]string, len(state.MissionQueue), len(state.MissionQueue)+1)
		copy(next, state.MissionQueue)
		state.MissionQueue = append(next, env.MissionID)
		return state

	case "missionActivated":
		state.CurrentMission = domain.Some(env.MissionID)
		return state

	case "droneMissionCompleted":
		if !state.AttachedDrone.Is(env.ID) {
			return state
		}
		filtered := state.MissionQueue[:0:0]
		for _, id := range state.MissionQueue {
			if id != env.MissionID {
				filtered = append(filtered, id)
			}
		}
		state.MissionQueue = filtered
		state.CurrentMission = domain.None
		state.AttachedDrone = domain.None
		return state

	default:
		return state
	}
}
