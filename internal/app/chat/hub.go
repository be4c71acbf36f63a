/*
Package chat contains the core of the global chat: the user directory, the bounded message
log with its rate limiting, the presence set, and the live broadcast hub.

This file defines the Hub, which fans events out to live subscribers. Delivery is best-effort:
each subscriber has a bounded queue and an event that does not fit is dropped for that
subscriber only, so a slow connection never holds up the others.
*/
package chat

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ryachat/internal/pkg/logx"
	"ryachat/internal/pkg/metrics"
)

const (
	broadcastChannelBuffer  = 1024
	unregisterChannelBuffer = 64
)

// Subscriber is one live connection as seen by the hub. It may be bound to a user after
// a successful authenticate; until then it still receives broadcasts.
type Subscriber struct {
	// ID identifies the connection in logs.
	ID string

	// send is the bounded outbound queue. Only the hub's Run loop closes it.
	send chan []byte

	mu     sync.RWMutex
	userID string
}

// Send exposes the outbound queue to the connection writer.
func (s *Subscriber) Send() <-chan []byte {
	return s.send
}

// UserID returns the associated user, or "" for an anonymous subscriber.
func (s *Subscriber) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *Subscriber) setUserID(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
}

// outbound is an encoded event on its way to subscribers.
type outbound struct {
	eventType EventType
	data      []byte

	// exclude skips one subscriber (typing echo); only targets a single subscriber.
	exclude *Subscriber
	only    *Subscriber
}

type registration struct {
	sub  *Subscriber
	done chan struct{}
}

// Hub owns the set of live subscribers. All changes to the set happen on its Run loop.
type Hub struct {
	subscribers map[*Subscriber]struct{}

	// mu guards subscribers for readers outside the Run loop (Count).
	mu sync.RWMutex

	broadcast  chan outbound
	register   chan registration
	unregister chan *Subscriber

	// stopChan asks Run to exit; done is closed once it has.
	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	queueSize int

	logger zerolog.Logger
}

// NewHub creates a Hub whose subscribers each get a queue of queueSize events.
func NewHub(queueSize int) *Hub {
	return &Hub{
		subscribers: make(map[*Subscriber]struct{}),
		broadcast:   make(chan outbound, broadcastChannelBuffer),
		register:    make(chan registration),
		unregister:  make(chan *Subscriber, unregisterChannelBuffer),
		stopChan:    make(chan struct{}),
		done:        make(chan struct{}),
		queueSize:   queueSize,
		logger:      logx.Component("Hub"),
	}
}

// NewSubscriber creates an unregistered subscriber with this hub's queue size.
func (h *Hub) NewSubscriber() *Subscriber {
	return &Subscriber{
		ID:   uuid.New().String(),
		send: make(chan []byte, h.queueSize),
	}
}

// Run is the hub's event loop. It returns after Stop.
func (h *Hub) Run() {
	h.logger.Info().Msg("Hub run loop started.")

	defer func() {
		h.mu.Lock()
		for sub := range h.subscribers {
			delete(h.subscribers, sub)
			close(sub.send)
		}
		h.mu.Unlock()
		metrics.LiveSubscribers.Set(0)

		close(h.done)
		h.logger.Info().Msg("Hub run loop stopped.")
	}()

	for {
		select {
		case reg := <-h.register:
			h.mu.Lock()
			h.subscribers[reg.sub] = struct{}{}
			total := len(h.subscribers)
			h.mu.Unlock()

			metrics.LiveSubscribers.Inc()
			h.logger.Debug().
				Str("subscriber_id", reg.sub.ID).
				Int("total_subscribers", total).
				Msg("Subscriber registered.")
			close(reg.done)

		case sub := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.subscribers[sub]; ok {
				delete(h.subscribers, sub)
				close(sub.send)
				metrics.LiveSubscribers.Dec()
			}
			total := len(h.subscribers)
			h.mu.Unlock()

			h.logger.Debug().
				Str("subscriber_id", sub.ID).
				Int("total_subscribers", total).
				Msg("Subscriber unregistered.")

		case out := <-h.broadcast:
			h.deliver(out)

		case <-h.stopChan:
			h.logger.Info().Msg("Hub stop requested.")
			return
		}
	}
}

// deliver hands out to every matching subscriber without blocking.
func (h *Hub) deliver(out outbound) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subscribers {
		if sub == out.exclude || (out.only != nil && sub != out.only) {
			continue
		}

		select {
		case sub.send <- out.data:
		default:
			metrics.DeliveriesDropped.WithLabelValues("subscriber").Inc()
			h.logger.Warn().
				Str("subscriber_id", sub.ID).
				Str("event_type", string(out.eventType)).
				Msg("Subscriber queue full, event dropped.")
		}
	}
}

// Register adds sub to the hub and waits until the Run loop has accepted it,
// so every event published afterwards reaches sub. It reports false if the hub is stopped.
func (h *Hub) Register(sub *Subscriber) bool {
	reg := registration{sub: sub, done: make(chan struct{})}

	select {
	case h.register <- reg:
	case <-h.done:
		return false
	}

	select {
	case <-reg.done:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes sub and closes its queue. Unknown subscribers are ignored.
func (h *Hub) Unregister(sub *Subscriber) {
	select {
	case h.unregister <- sub:
	case <-h.done:
	}
}

// Publish encodes ev and queues it for every subscriber except exclude (which may be nil).
func (h *Hub) Publish(ev Event, exclude *Subscriber) {
	h.enqueue(ev, exclude, nil)
}

// SendTo queues ev for sub alone.
func (h *Hub) SendTo(sub *Subscriber, ev Event) {
	h.enqueue(ev, nil, sub)
}

func (h *Hub) enqueue(ev Event, exclude, only *Subscriber) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error().Err(err).Str("event_type", string(ev.Type)).Msg("Failed to encode event.")
		return
	}

	select {
	case <-h.done:
		return
	default:
	}

	select {
	case h.broadcast <- outbound{eventType: ev.Type, data: data, exclude: exclude, only: only}:
		metrics.EventsPublished.WithLabelValues(string(ev.Type)).Inc()
	default:
		metrics.DeliveriesDropped.WithLabelValues("hub").Inc()
		h.logger.Warn().Str("event_type", string(ev.Type)).Msg("Broadcast channel full, event dropped.")
	}
}

// Count returns the number of registered subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Stop ends the Run loop, closes every subscriber queue and waits for the loop to exit.
// It must only be called once Run has been started.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopChan)
	})
	<-h.done
}
