// Package eventlog is the client facade for the external append-only event
// log: subscribe_monotonic, query and publish. Transport and decoding
// details live here; callers only ever see Event values and the sum types
// below.
package eventlog

import "encoding/json"

// Key totally orders an event within its stream and partially orders it
// globally.
type Key struct {
	Lamport uint64 `json:"lamport"`
	Stream  string `json:"stream"`
	Offset  uint64 `json:"offset"`
}

// Meta carries non-identity metadata attached to every event.
type Meta struct {
	Timestamp int64    `json:"timestamp"`
	Tags      []string `json:"tags"`
	AppID     string   `json:"appId"`
}

// Event is a single record read from or written to the log. Payload is the
// raw tagged-variant JSON object; domain reducers decode it further by
// eventType.
type Event struct {
	Key     Key             `json:"key"`
	Meta    Meta            `json:"meta"`
	Payload json.RawMessage `json:"payload"`
}

// OffsetMap records the last-seen offset per stream, used both as the
// subscribe_monotonic starting point and as the value of an Offsets
// heartbeat.
type OffsetMap map[string]uint64

// SubscribeResponse is the sum type emitted by a live subscription.
type SubscribeResponse struct {
	// Kind discriminates which field below is populated.
	Kind SubscribeKind

	// Event and CaughtUp are set when Kind == SubscribeEvent.
	Event    Event
	CaughtUp bool

	// Offsets is set when Kind == SubscribeOffsets.
	Offsets OffsetMap

	// NewStart is set when Kind == SubscribeTimeTravel.
	NewStart OffsetMap
}

// SubscribeKind enumerates SubscribeResponse variants.
type SubscribeKind int

const (
	SubscribeUnknown SubscribeKind = iota
	SubscribeEvent
	SubscribeOffsets
	SubscribeTimeTravel
)

// QueryResponse is the sum type produced by a finite replay.
type QueryResponse struct {
	Kind  QueryKind
	Event Event
}

// QueryKind enumerates QueryResponse variants.
type QueryKind int

const (
	QueryUnknown QueryKind = iota
	QueryEvent
)

// Order controls the direction a query is replayed in.
type Order int

const (
	OrderAscending Order = iota
	OrderDescending
)

// Bound is an optional, inclusive boundary on a query range. A zero Bound
// with Set == false means unbounded on that side.
type Bound struct {
	Lamport uint64
	Set     bool
}

// PublishItem is a single event awaiting assignment of a Key by the log.
type PublishItem struct {
	Tags    []string        `json:"tags"`
	Payload json.RawMessage `json:"payload"`
}

// PublishRequest batches one or more items into a single publish call.
type PublishRequest struct {
	Data []PublishItem `json:"data"`
}

// PublishResponse is returned once the log has durably assigned keys to a
// publish request's items.
type PublishResponse struct {
	Keys []Key `json:"keys"`
}
