package mqtt

import (
	"encoding/json"
	"time"
)

// EventType identifies the kind of payload inside an Envelope.
type EventType string

// Event types carried on Flostat topics.
const (
	EventDeviceUpdate    EventType = "DEVICE_UPDATE"
	EventBlockModeUpdate EventType = "BLOCK_MODE_UPDATE"
	EventUpdateThreshold EventType = "UPDATE_THRESHOLD"
	EventScheduleCreated EventType = "SCHEDULE_CREATED"
	EventScheduleUpdate  EventType = "SCHEDULE_UPDATE"
	EventScheduleDelete  EventType = "SCHEDULE_DELETE"

	// Acknowledgement events published by hardware controllers.
	EventScheduleAck       EventType = "SCHEDULE_ACK"
	EventScheduleAckUpdate EventType = "SCHEDULE_ACK_UPDATE"
	EventScheduleAckDelete EventType = "SCHEDULE_ACK_DELETE"
)

// Envelope is the standard payload wrapper on all Flostat topics:
// a type tag, the event data, and either the actor or a timestamp
// depending on the event family.
type Envelope struct {
	Type      EventType `json:"type"`
	Data      any       `json:"data"`
	UpdatedBy string    `json:"updated_by,omitempty"`
	Timestamp string    `json:"timestamp,omitempty"`
}

// NewActorEnvelope builds an envelope attributed to an actor
// (device and block events).
func NewActorEnvelope(t EventType, data any, actor string) Envelope {
	return Envelope{Type: t, Data: data, UpdatedBy: actor}
}

// NewTimestampedEnvelope builds an envelope stamped with the current UTC time
// (schedule hardware commands).
func NewTimestampedEnvelope(t EventType, data any) Envelope {
	return Envelope{Type: t, Data: data, Timestamp: time.Now().UTC().Format(time.RFC3339)}
}

// Marshal encodes the envelope as JSON.
func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}
