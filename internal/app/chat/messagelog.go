package chat

import (
	"sort"
	"time"
)

// MessageLog is the bounded, append-only chat history plus the per-user send windows used
// for rate limiting. It is not safe for concurrent use; the Manager serializes access.
type MessageLog struct {
	entries  []Message
	capacity int

	nextID int64
	lastTS time.Time

	window       time.Duration
	maxPerWindow int

	// sends holds each user's recent send times, oldest first.
	sends map[string][]time.Time
}

// NewMessageLog creates a log keeping at most capacity messages and allowing
// maxPerWindow sends per user in any trailing window.
func NewMessageLog(capacity int, window time.Duration, maxPerWindow int) *MessageLog {
	return &MessageLog{
		entries:      make([]Message, 0, capacity),
		capacity:     capacity,
		window:       window,
		maxPerWindow: maxPerWindow,
		sends:        make(map[string][]time.Time),
	}
}

// Allow reports whether userID may send at now, i.e. has fewer than maxPerWindow
// sends younger than the window. It does not record anything.
func (l *MessageLog) Allow(userID string, now time.Time) bool {
	return len(l.prune(userID, now)) < l.maxPerWindow
}

// prune drops send times that fell out of the window and returns the rest.
func (l *MessageLog) prune(userID string, now time.Time) []time.Time {
	times := l.sends[userID]

	i := 0
	for i < len(times) && now.Sub(times[i]) >= l.window {
		i++
	}

	if i == len(times) {
		delete(l.sends, userID)
		return nil
	}

	times = times[i:]
	l.sends[userID] = times
	return times
}

// Append assigns id and timestamp to m, stores it and evicts the oldest entry past capacity.
// Non-system messages count against the sender's window. The stored message is returned.
func (l *MessageLog) Append(m Message, now time.Time) Message {
	l.nextID++
	m.ID = l.nextID

	ts := now.UTC().Truncate(time.Millisecond)
	if !ts.After(l.lastTS) {
		ts = l.lastTS.Add(time.Millisecond)
	}
	l.lastTS = ts
	m.Timestamp = ts

	if !m.IsSystem {
		l.sends[m.UserID] = append(l.prune(m.UserID, now), now)
	}

	if len(l.entries) >= l.capacity {
		copy(l.entries, l.entries[1:])
		l.entries = l.entries[:len(l.entries)-1]
	}
	l.entries = append(l.entries, m)

	return m
}

// Since returns, in append order, the messages newer than since (all of them when since is zero),
// keeping only the last limit of those. A limit of zero or less keeps everything.
func (l *MessageLog) Since(since time.Time, limit int) []Message {
	start := 0
	if !since.IsZero() {
		start = sort.Search(len(l.entries), func(i int) bool {
			return l.entries[i].Timestamp.After(since)
		})
	}

	matched := l.entries[start:]
	if limit > 0 && len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}

	out := make([]Message, len(matched))
	copy(out, matched)
	return out
}

// Len returns the number of stored messages.
func (l *MessageLog) Len() int {
	return len(l.entries)
}
