package chat

import "time"

const (
	// SystemUserID is the sender id of messages generated by the server.
	SystemUserID = "SYSTEM"

	// SystemUsername is the display name of system messages.
	SystemUsername = "System"
)

// Message is one immutable chat log entry.
type Message struct {
	ID int64 `json:"id"`

	UserID string `json:"userId"`

	// Username is the sender's display name at send time, never taken from the request.
	Username string `json:"username"`

	Text     string `json:"text"`
	ImageURL string `json:"imageUrl,omitempty"`

	Timestamp time.Time `json:"timestamp"`
	IsSystem  bool      `json:"isSystem"`
}

// kind labels the message for metrics.
func (m Message) kind() string {
	switch {
	case m.IsSystem:
		return "system"
	case m.ImageURL != "":
		return "image"
	default:
		return "text"
	}
}
