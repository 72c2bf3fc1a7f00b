package launchpad

import (
	"launchpad/internal/domain"
	"launchpad/internal/eventlog"
)

const entity = "launchpad"

// EmitRegistered builds the one-time launchPadRegistered publish item.
func EmitRegistered(id string) eventlog.PublishItem {
	return domain.Item(domain.Tags(entity, id), struct {
		EventType string `json:"eventType"`
		ID        string `json:"id"`
	}{"launchPadRegistered", id})
}

// EmitMissionActivated publishes the queue-head mission as the launchpad's
// current mission.
func EmitMissionActivated(launchpadID, missionID string) eventlog.PublishItem {
	return domain.Item(domain.Tags(entity, launchpadID), struct {
		EventType   string `json:"eventType"`
		LaunchpadID string `json:"launchpadId"`
		MissionID   string `json:"missionId"`
	}{"missionActivated", launchpadID, missionID})
}

// EmitDroneActivated marks droneID as the launchpad's attached, powered
// drone, re-arming its mounting servo debounce window.
func EmitDroneActivated(launchpadID, droneID string) eventlog.PublishItem {
	return domain.Item(domain.Tags(entity, launchpadID), struct {
		EventType string `json:"eventType"`
		ID        string `json:"id"`
		Drone     string `json:"drone"`
	}{"droneActivated", launchpadID, droneID})
}
