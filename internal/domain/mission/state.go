// Package mission implements MissionTwin: a named, ordered list of
// waypoints plus a visibility flag.
package mission

import (
	"encoding/json"

	"launchpad/internal/eventlog"
	"launchpad/internal/logging"
)

// WaypointKind discriminates which variant of Waypoint is populated.
type WaypointKind int

const (
	Goto WaypointKind = iota
	Turn
	Delay
)

// Waypoint is the Goto | Turn | Delay sum, represented as a tagged struct.
type Waypoint struct {
	Kind WaypointKind

	// Goto
	MapX, MapY int
	Height     int16
	Angle      float32
	HasAngle   bool
	Distance   float32

	// Turn
	Deg int16

	// Turn, Delay
	DurationMs float32
}

func (w Waypoint) equal(other Waypoint) bool {
	return w.Kind == other.Kind &&
		w.MapX == other.MapX && w.MapY == other.MapY &&
		w.Height == other.Height &&
		w.HasAngle == other.HasAngle && w.Angle == other.Angle &&
		w.Distance == other.Distance &&
		w.Deg == other.Deg &&
		w.DurationMs == other.DurationMs
}

// State is the mission projection.
type State struct {
	ID        string
	Name      string
	Waypoints []Waypoint
	Visible   bool
}

// Equal compares field-by-field, including Waypoints element-wise.
func (s State) Equal(other State) bool {
	if s.ID != other.ID || s.Name != other.Name || s.Visible != other.Visible {
		return false
	}
	if len(s.Waypoints) != len(other.Waypoints) {
		return false
	}
	for i := range s.Waypoints {
		if !s.Waypoints[i].equal(other.Waypoints[i]) {
			return false
		}
	}
	return true
}

// Twin implements twin.Twin[State] for a single mission identity.
type Twin struct {
	MissionID string
}

func (t Twin) Name() string   { return "mission" }
func (t Twin) ID() string     { return t.MissionID }
func (t Twin) Query() string  { return "FROM 'mission:" + t.MissionID + "'" }
func (t Twin) Default() State { return State{ID: t.MissionID} }

type wireWaypoint struct {
	Type       string   `json:"type"`
	MapX       int      `json:"mapX"`
	MapY       int      `json:"mapY"`
	Height     int16    `json:"height"`
	Angle      *float32 `json:"angle"`
	Distance   float32  `json:"distance"`
	Deg        int16    `json:"deg"`
	DurationMs float32  `json:"durationMs"`
}

type envelope struct {
	EventType string         `json:"eventType"`
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Waypoints []wireWaypoint `json:"waypoints"`
	Visible   *bool          `json:"visible"`
}

func (t Twin) Reduce(state State, event eventlog.Event) State {
	var env envelope
	if err := json.Unmarshal(event.Payload, &env); err != nil {
		logging.L().Warn("mission: decode failed, ignoring event", logging.Error(err))
		return state
	}

	switch env.EventType {
	case "defineMission":
		waypoints := make([]Waypoint, 0, len(env.Waypoints))
		for _, w := range env.Waypoints {
			waypoints = append(waypoints, decodeWaypoint(w))
		}
		return State{ID: env.ID, Name: env.Name, Waypoints: waypoints, Visible: state.Visible}

	case "showMission":
		if env.Visible != nil {
			state.Visible = *env.Visible
		}
		return state

	default:
		return state
	}
}

func decodeWaypoint(w wireWaypoint) Waypoint {
	switch w.Type {
	case "turn":
		return Waypoint{Kind: Turn, Deg: w.Deg, DurationMs: w.DurationMs}
	case "delay":
		return Waypoint{Kind: Delay, DurationMs: w.DurationMs}
	default:
		wp := Waypoint{Kind: Goto, MapX: w.MapX, MapY: w.MapY, Height: w.Height, Distance: w.Distance}
		if w.Angle != nil {
			wp.HasAngle = true
			wp.Angle = *w.Angle
		}
		return wp
	}
}
