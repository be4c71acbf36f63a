package chat

import (
	"strings"

	"ryachat/internal/app/user"
)

// Directory stores registered users in registration order. It is not safe for
// concurrent use; the Manager serializes access.
type Directory struct {
	order []*user.User
	byID  map[string]*user.User
}

// NewDirectory creates an empty Directory.
func NewDirectory() *Directory {
	return &Directory{byID: make(map[string]*user.User)}
}

// Add stores u. It reports false if the id is already taken.
func (d *Directory) Add(u *user.User) bool {
	if _, exists := d.byID[u.ID]; exists {
		return false
	}
	d.byID[u.ID] = u
	d.order = append(d.order, u)
	return true
}

// Get returns the stored record for userID.
func (d *Directory) Get(userID string) (*user.User, bool) {
	u, ok := d.byID[userID]
	return u, ok
}

// Len returns the number of registered users.
func (d *Directory) Len() int {
	return len(d.order)
}

// Each calls fn for every user in registration order until fn returns false.
func (d *Directory) Each(fn func(u *user.User) bool) {
	for _, u := range d.order {
		if !fn(u) {
			return
		}
	}
}

// Search returns users whose id or username contains query, ignoring case.
func (d *Directory) Search(query string) []user.Summary {
	needle := strings.ToLower(query)
	results := make([]user.Summary, 0)

	for _, u := range d.order {
		if strings.Contains(strings.ToLower(u.ID), needle) ||
			strings.Contains(strings.ToLower(u.Username), needle) {
			results = append(results, u.Summary(""))
		}
	}
	return results
}

// Resolve maps ids to online summaries, skipping ids with no user record.
func (d *Directory) Resolve(ids []string) []user.Summary {
	results := make([]user.Summary, 0, len(ids))
	for _, id := range ids {
		if u, ok := d.byID[id]; ok {
			results = append(results, u.Summary(user.StatusOnline))
		}
	}
	return results
}
