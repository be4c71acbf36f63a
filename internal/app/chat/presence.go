package chat

// Presence is the set of users considered online, kept in the order they came online.
// There is no per-user expiry: entries leave on live disconnect or when the whole set is reset.
type Presence struct {
	order   []string
	members map[string]struct{}
}

// NewPresence creates an empty Presence.
func NewPresence() *Presence {
	return &Presence{members: make(map[string]struct{})}
}

// MarkOnline adds userID. It reports whether the user was newly added.
func (p *Presence) MarkOnline(userID string) bool {
	if _, ok := p.members[userID]; ok {
		return false
	}
	p.members[userID] = struct{}{}
	p.order = append(p.order, userID)
	return true
}

// MarkOffline removes userID. It reports whether the user was present.
func (p *Presence) MarkOffline(userID string) bool {
	if _, ok := p.members[userID]; !ok {
		return false
	}
	delete(p.members, userID)
	for i, id := range p.order {
		if id == userID {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return true
}

// ResetAll clears the set and returns how many users were removed. No offline events are produced.
func (p *Presence) ResetAll() int {
	n := len(p.order)
	p.order = nil
	p.members = make(map[string]struct{})
	return n
}

// IsOnline reports whether userID is in the set.
func (p *Presence) IsOnline(userID string) bool {
	_, ok := p.members[userID]
	return ok
}

// OnlineCount returns the size of the set.
func (p *Presence) OnlineCount() int {
	return len(p.order)
}

// Snapshot returns a copy of the online ids in insertion order.
func (p *Presence) Snapshot() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}
