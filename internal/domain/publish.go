package domain

import (
	"encoding/json"

	"launchpad/internal/eventlog"
)

// Tags builds the standard {"<entity>", "<entity>:<id>"} tag pair, with any
// extra tags (e.g. "drone.mission.started") appended.
func Tags(entity, id string, extra ...string) []string {
	tags := []string{entity, entity + ":" + id}
	return append(tags, extra...)
}

// Item marshals fields (expected to already carry "eventType") into a
// PublishItem carrying tags.
func Item(tags []string, fields any) eventlog.PublishItem {
	payload, err := json.Marshal(fields)
	if err != nil {
		// Fields are always a static struct literal at call sites; a
		// marshal failure here means a programmer error, not a runtime
		// condition callers can recover from.
		panic("domain: marshal publish payload: " + err.Error())
	}
	return eventlog.PublishItem{Tags: tags, Payload: payload}
}
