// Package drone implements DroneTwin: the drone's own lifecycle projection,
// a closed sum of Undefined | Ready | Launched | Used.
package drone

import (
	"encoding/json"

	"launchpad/internal/domain"
	"launchpad/internal/eventlog"
	"launchpad/internal/logging"
)

// Kind discriminates which variant of State is populated.
type Kind int

const (
	Undefined Kind = iota
	Ready
	Launched
	Used
)

// State is the drone sum type, represented as a tagged struct rather than
// an interface hierarchy so it stays comparable via Equal without
// reflection. Fields irrelevant to Kind are left zero.
type State struct {
	Kind Kind

	ID   string
	IP   string
	SSID string

	// Ready, Launched, Used
	Battery int

	// Ready only
	Connected bool

	// Launched only
	MissionID        string
	AtWaypointID     int
	TargetWaypointID domain.OptInt
	Completed        bool

	// Used only
	LastMissionID string
}

// Equal compares every field; callers should not compare across different
// Kinds expecting equality beyond the zero-valued irrelevant fields.
func (s State) Equal(other State) bool {
	return s.Kind == other.Kind &&
		s.ID == other.ID &&
		s.IP == other.IP &&
		s.SSID == other.SSID &&
		s.Battery == other.Battery &&
		s.Connected == other.Connected &&
		s.MissionID == other.MissionID &&
		s.AtWaypointID == other.AtWaypointID &&
		s.TargetWaypointID.Equal(other.TargetWaypointID) &&
		s.Completed == other.Completed &&
		s.LastMissionID == other.LastMissionID
}

// Twin implements twin.Twin[State] for a single drone identity.
type Twin struct {
	DroneID string
}

func (t Twin) Name() string  { return "drone" }
func (t Twin) ID() string    { return t.DroneID }
func (t Twin) Query() string { return "FROM 'drone:" + t.DroneID + "'" }
func (t Twin) Default() State {
	return State{Kind: Undefined, ID: t.DroneID}
}

type envelope struct {
	EventType  string `json:"eventType"`
	ID         string `json:"id"`
	SSID       string `json:"ssid"`
	IP         string `json:"ip"`
	Battery    int    `json:"battery"`
	MissionID  string `json:"missionId"`
	WaypointID int    `json:"waypointId"`
}

func (t Twin) Reduce(state State, event eventlog.Event) State {
	var env envelope
	if err := json.Unmarshal(event.Payload, &env); err != nil {
		logging.L().Warn("drone: decode failed, ignoring event", logging.Error(err))
		return state
	}

	switch env.EventType {
	case "droneDefined":
		return State{Kind: Ready, ID: env.ID, IP: env.IP, SSID: env.SSID, Battery: 100, Connected: false}

	case "droneReady":
		if state.Kind == Used {
			return State{Kind: Ready, ID: state.ID, IP: state.IP, SSID: state.SSID, Battery: state.Battery, Connected: false}
		}
		return state

	case "droneConnected":
		switch state.Kind {
		case Ready:
			state.Connected = true
			return state
		case Used:
			return State{Kind: Ready, ID: state.ID, IP: state.IP, SSID: state.SSID, Battery: state.Battery, Connected: true}
		default:
			return state
		}

	case "droneStatsUpdated":
		switch state.Kind {
		case Ready, Launched, Used:
			state.Battery = env.Battery
			return state
		default:
			return state
		}

	case "droneLaunched":
		switch state.Kind {
		case Ready, Used:
			return State{
				Kind:             Launched,
				ID:               env.ID,
				IP:               state.IP,
				SSID:             state.SSID,
				Battery:          state.Battery,
				MissionID:        env.MissionID,
				AtWaypointID:     0,
				TargetWaypointID: domain.NoInt,
				Completed:        false,
			}
		default:
			return state
		}

	case "droneStartedToNextWaypoint":
		switch state.Kind {
		case Launched, Ready, Used:
			at := atWaypointOnStart(state, env.WaypointID)
			return State{
				Kind:             Launched,
				ID:               env.ID,
				IP:               state.IP,
				SSID:             state.SSID,
				Battery:          state.Battery,
				MissionID:        env.MissionID,
				AtWaypointID:     at,
				TargetWaypointID: domain.SomeInt(env.WaypointID),
				Completed:        false,
			}
		default:
			return state
		}

	case "droneArrivedAtWaypoint":
		if state.Kind != Launched {
			return state
		}
		return State{
			Kind:             Launched,
			ID:               env.ID,
			IP:               state.IP,
			SSID:             state.SSID,
			Battery:          state.Battery,
			MissionID:        env.MissionID,
			AtWaypointID:     env.WaypointID,
			TargetWaypointID: domain.NoInt,
			Completed:        false,
		}

	case "droneMissionCompleted":
		if state.Kind != Launched {
			return state
		}
		state.Completed = true
		state.TargetWaypointID = domain.NoInt
		return state

	case "droneLanded":
		if state.Kind != Launched {
			return state
		}
		return State{
			Kind:          Used,
			ID:            state.ID,
			IP:            state.IP,
			SSID:          state.SSID,
			Battery:       state.Battery,
			LastMissionID: state.MissionID,
		}

	case "droneDisconnected":
		// Pure identity transition on every variant; kept as an explicit
		// case only so it's observable in logs.
		logging.L().Debug("drone: droneDisconnected received", logging.String("drone", env.ID))
		return state

	default:
		return state
	}
}

// atWaypointOnStart applies the "previous target or max(0, waypoint-1)"
// rule, tolerating a missed DroneLaunched by synthesizing a Launched from
// Ready|Used.
func atWaypointOnStart(state State, waypointID int) int {
	if state.Kind == Launched && state.TargetWaypointID.Valid {
		return state.TargetWaypointID.Value
	}
	if waypointID-1 > 0 {
		return waypointID - 1
	}
	return 0
}
