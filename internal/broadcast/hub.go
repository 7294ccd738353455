// Package broadcast fans session events out to every subscriber of a
// session's channel. Delivery is best-effort and at-most-once per
// subscriber; clients that fall behind or reconnect re-fetch the
// authoritative snapshot instead of replaying events.
package broadcast

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/havenward/sanctum/internal/domain"
)

const subscriberBuffer = 16

// Subscriber is one attached client. Events arrive on C until Close or
// the session channel shuts down.
type Subscriber struct {
	ID        string
	SessionID uuid.UUID
	C         chan domain.Event

	hub  *Hub
	once sync.Once
}

// Close detaches the subscriber and closes its event channel.
func (s *Subscriber) Close() {
	s.hub.unsubscribe(s)
}

type sessionChannel struct {
	seq  uint64
	subs map[*Subscriber]struct{}
}

// Hub owns one logical broadcast channel per session. Publish assigns a
// per-session monotonic sequence number under the hub lock, so the order
// on the channel matches the order mutations were committed.
type Hub struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*sessionChannel
	log      *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		sessions: make(map[uuid.UUID]*sessionChannel),
		log:      log,
	}
}

// Subscribe attaches a new subscriber to a session's channel.
func (h *Hub) Subscribe(sessionID uuid.UUID, subscriberID string) *Subscriber {
	sub := &Subscriber{
		ID:        subscriberID,
		SessionID: sessionID,
		C:         make(chan domain.Event, subscriberBuffer),
		hub:       h,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ch, ok := h.sessions[sessionID]
	if !ok {
		ch = &sessionChannel{subs: make(map[*Subscriber]struct{})}
		h.sessions[sessionID] = ch
	}
	ch.subs[sub] = struct{}{}

	return sub
}

func (h *Hub) unsubscribe(sub *Subscriber) {
	sub.once.Do(func() {
		h.mu.Lock()
		if ch, ok := h.sessions[sub.SessionID]; ok {
			delete(ch.subs, sub)
			if len(ch.subs) == 0 && ch.seq == 0 {
				delete(h.sessions, sub.SessionID)
			}
		}
		h.mu.Unlock()
		close(sub.C)
	})
}

// Publish stamps the event with the next sequence number and fans it out.
// Subscribers with a full buffer are skipped; they miss the event and
// must resync. Publish never blocks on a slow subscriber.
func (h *Hub) Publish(sessionID uuid.UUID, event domain.Event) uint64 {
	h.mu.Lock()
	ch, ok := h.sessions[sessionID]
	if !ok {
		ch = &sessionChannel{subs: make(map[*Subscriber]struct{})}
		h.sessions[sessionID] = ch
	}
	ch.seq++
	event.Seq = ch.seq

	subs := make([]*Subscriber, 0, len(ch.subs))
	for sub := range ch.subs {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub.C <- event:
		default:
			h.log.Debug("dropping broadcast event",
				slog.String("subscriber", sub.ID),
				slog.String("type", string(event.Type)),
				slog.Uint64("seq", event.Seq),
			)
		}
	}

	return event.Seq
}

// CloseSession tears the session channel down and closes every
// subscriber. Called after the final session_ended broadcast.
func (h *Hub) CloseSession(sessionID uuid.UUID) {
	h.mu.Lock()
	ch, ok := h.sessions[sessionID]
	if ok {
		delete(h.sessions, sessionID)
	}
	h.mu.Unlock()

	if !ok {
		return
	}
	for sub := range ch.subs {
		sub.once.Do(func() { close(sub.C) })
	}
}

// Subscribers reports the current subscriber count for a session.
func (h *Hub) Subscribers(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if ch, ok := h.sessions[sessionID]; ok {
		return len(ch.subs)
	}
	return 0
}
