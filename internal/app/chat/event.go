package chat

import "time"

// EventType names a live event pushed to subscribers.
type EventType string

const (
	EventMessageCreated EventType = "message-created"
	EventUserJoined     EventType = "user-joined"
	EventUserOnline     EventType = "user-online"
	EventUserTyping     EventType = "user-typing"
	EventUserOffline    EventType = "user-offline"

	// EventError is only ever sent to a single subscriber.
	EventError EventType = "error"
)

// Event is the envelope written to live subscribers.
type Event struct {
	Type      EventType `json:"type"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// PresencePayload is carried by user-online, user-typing and user-offline events.
type PresencePayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username,omitempty"`
}

// ErrorPayload is carried by error events.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
