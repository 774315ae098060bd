package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g. "SESSION_FINALIZED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Session lifecycle event codes consumed by downstream analytics.
const (
	TypeSessionStarted   = "SESSION_STARTED"
	TypeSessionFinalized = "SESSION_FINALIZED"
	TypeSessionReset     = "SESSION_RESET"
)

// NewSessionEvent builds a lifecycle event for one advisor session.
func NewSessionEvent(eventType, sessionID string, details map[string]interface{}) BaseEvent {
	data := map[string]interface{}{"session_id": sessionID}
	for k, v := range details {
		data[k] = v
	}
	return BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now(),
	}
}
