package drone

import (
	"encoding/json"
	"testing"

	"launchpad/internal/domain"
	"launchpad/internal/eventlog"
)

func ev(payload string) eventlog.Event {
	return eventlog.Event{Payload: json.RawMessage(payload)}
}

func TestReducerDefinedThenConnectedThenLaunched(t *testing.T) {
	tw := Twin{DroneID: "D1"}
	state := tw.Default()
	if state.Kind != Undefined {
		t.Fatalf("Default().Kind = %v, want Undefined", state.Kind)
	}

	state = tw.Reduce(state, ev(`{"eventType":"droneDefined","id":"D1","ssid":"TELLO-1","ip":"192.168.10.1"}`))
	if state.Kind != Ready || state.Battery != 100 || state.Connected {
		t.Fatalf("state = %+v, want Ready{battery:100, connected:false}", state)
	}

	state = tw.Reduce(state, ev(`{"eventType":"droneConnected","id":"D1"}`))
	if state.Kind != Ready || !state.Connected {
		t.Fatalf("state = %+v, want Ready{connected:true}", state)
	}

	state = tw.Reduce(state, ev(`{"eventType":"droneLaunched","id":"D1","missionId":"M1"}`))
	if state.Kind != Launched || state.MissionID != "M1" || state.AtWaypointID != 0 || state.TargetWaypointID.Valid {
		t.Fatalf("state = %+v, want Launched{missionId:M1, at:0, target:None}", state)
	}
}

func TestReducerWaypointProgressionAndCompletion(t *testing.T) {
	tw := Twin{DroneID: "D1"}
	state := State{Kind: Launched, ID: "D1", MissionID: "M1"}

	state = tw.Reduce(state, ev(`{"eventType":"droneStartedToNextWaypoint","id":"D1","missionId":"M1","waypointId":3}`))
	if !state.TargetWaypointID.Equal(domain.SomeInt(3)) || state.AtWaypointID != 2 {
		t.Fatalf("state = %+v, want target=3, at=2", state)
	}

	state = tw.Reduce(state, ev(`{"eventType":"droneArrivedAtWaypoint","id":"D1","missionId":"M1","waypointId":3}`))
	if state.AtWaypointID != 3 || state.TargetWaypointID.Valid {
		t.Fatalf("state = %+v, want at=3, target=None", state)
	}

	state = tw.Reduce(state, ev(`{"eventType":"droneStartedToNextWaypoint","id":"D1","missionId":"M1","waypointId":4}`))
	if state.AtWaypointID != 3 {
		t.Fatalf("AtWaypointID = %d, want 3 (previous target carried forward)", state.AtWaypointID)
	}

	state = tw.Reduce(state, ev(`{"eventType":"droneMissionCompleted","id":"D1","missionId":"M1"}`))
	if !state.Completed || state.TargetWaypointID.Valid {
		t.Fatalf("state = %+v, want completed=true, target=None", state)
	}

	state = tw.Reduce(state, ev(`{"eventType":"droneLanded","id":"D1","at":{"x":1,"y":2,"z":0}}`))
	if state.Kind != Used || state.LastMissionID != "M1" {
		t.Fatalf("state = %+v, want Used{lastMissionId:M1}", state)
	}
}

func TestReducerDroneDisconnectedIsIdentity(t *testing.T) {
	tw := Twin{DroneID: "D1"}
	state := State{Kind: Ready, ID: "D1", Connected: true, Battery: 80}
	out := tw.Reduce(state, ev(`{"eventType":"droneDisconnected","id":"D1"}`))
	if !out.Equal(state) {
		t.Fatalf("droneDisconnected mutated state: %+v", out)
	}
}

func TestReducerWaypointEventsIgnoredWhileUndefined(t *testing.T) {
	tw := Twin{DroneID: "D1"}
	state := tw.Default()

	out := tw.Reduce(state, ev(`{"eventType":"droneStartedToNextWaypoint","id":"D1","missionId":"M1","waypointId":1}`))
	if !out.Equal(state) {
		t.Fatalf("droneStartedToNextWaypoint on Undefined mutated state: %+v", out)
	}

	out = tw.Reduce(state, ev(`{"eventType":"droneArrivedAtWaypoint","id":"D1","missionId":"M1","waypointId":1}`))
	if !out.Equal(state) {
		t.Fatalf("droneArrivedAtWaypoint on Undefined mutated state: %+v", out)
	}
}

func TestReducerReadyReArmsFromUsed(t *testing.T) {
	tw := Twin{DroneID: "D1"}
	state := State{Kind: Used, ID: "D1", Battery: 42, LastMissionID: "M1"}
	out := tw.Reduce(state, ev(`{"eventType":"droneReady","id":"D1"}`))
	if out.Kind != Ready || out.Connected {
		t.Fatalf("out = %+v, want Ready{connected:false}", out)
	}
}
