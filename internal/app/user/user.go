/*
Package user contains the data structures describing a registered chat participant.

User is the stored record; Summary is the public projection returned by search and
online listings and carried in presence events.
*/
package user

import "time"

// Status values reported in a Summary.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// DefaultConsoleType is assumed when a client registers without naming its console.
const DefaultConsoleType = "Switch"

// User represents a registered participant. Records are never deleted.
type User struct {
	// ID is the client-supplied unique identifier (e.g. derived from a console serial).
	ID string `json:"userId"`

	// Username is the current display name; messages snapshot it at send time.
	Username string `json:"username"`

	// Token is the user's session credential. It is never serialized.
	Token string `json:"-"`

	// ConsoleType names the client platform.
	ConsoleType string `json:"consoleType"`

	// Avatar is an image URL chosen through a profile update.
	Avatar string `json:"avatar,omitempty"`

	// Bio is a short free-text description.
	Bio string `json:"bio"`

	RegisteredAt time.Time `json:"registeredAt"`
}

// Summary is the public view of a user.
type Summary struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
	Bio      string `json:"bio,omitempty"`
	Status   string `json:"status,omitempty"`
}

// Summary projects u into its public view with the given status.
func (u *User) Summary(status string) Summary {
	return Summary{
		UserID:   u.ID,
		Username: u.Username,
		Avatar:   u.Avatar,
		Bio:      u.Bio,
		Status:   status,
	}
}
