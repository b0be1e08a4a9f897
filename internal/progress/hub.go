// internal/progress/hub.go
package progress

import (
	"log"
	"sync"
	"time"
)

// subscriberBuffer sizes each subscriber's event channel. A subscriber that
// stops draining loses events rather than blocking the publisher.
const subscriberBuffer = 16

// Hub fans out the progress events of each session to its subscribers.
// Publishing never blocks on a slow or disconnected subscriber, and
// subscriber-set mutations are atomic with respect to Publish.
type Hub struct {
	mu        sync.Mutex
	keepAlive time.Duration
	sessions  map[string]*session
}

type session struct {
	subs map[chan Event]struct{}
	stop chan struct{} // stops the keep-alive loop
}

func NewHub(keepAlive time.Duration) *Hub {
	return &Hub{
		keepAlive: keepAlive,
		sessions:  make(map[string]*session),
	}
}

// Subscribe registers a new observer for the session and returns its event
// channel. The first subscriber creates the session's subscriber set and
// starts its keep-alive loop.
func (h *Hub) Subscribe(sessionID string) chan Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.sessions[sessionID]
	if !ok {
		s = &session{
			subs: make(map[chan Event]struct{}),
			stop: make(chan struct{}),
		}
		h.sessions[sessionID] = s
		if h.keepAlive > 0 {
			go h.keepAliveLoop(sessionID, s.stop)
		}
	}

	ch := make(chan Event, subscriberBuffer)
	s.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe removes the observer and closes its channel. When no
// subscribers remain the session's set is discarded; a still-running
// delivery simply continues headless.
func (h *Hub) Unsubscribe(sessionID string, ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.sessions[sessionID]
	if !ok {
		return
	}
	if _, ok := s.subs[ch]; !ok {
		return
	}

	delete(s.subs, ch)
	close(ch)

	if len(s.subs) == 0 {
		close(s.stop)
		delete(h.sessions, sessionID)
	}
}

// Publish delivers the event to every current subscriber of the session.
// Events sent to a session nobody watches are dropped.
func (h *Hub) Publish(sessionID string, ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.sessions[sessionID]
	if !ok {
		return
	}

	for ch := range s.subs {
		select {
		case ch <- ev:
		default:
			// subscriber not draining; drop rather than block the run
		}
	}
}

// CloseSession discards the session's subscriber state, closing every
// remaining subscriber channel. Called after the post-completion retention
// window.
func (h *Hub) CloseSession(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.sessions[sessionID]
	if !ok {
		return
	}

	close(s.stop)
	for ch := range s.subs {
		close(ch)
	}
	delete(h.sessions, sessionID)
	log.Printf("🧹 Cleaned up session: %s", sessionID)
}

// SubscriberCount reports how many observers the session currently has.
func (h *Hub) SubscriberCount(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.sessions[sessionID]
	if !ok {
		return 0
	}
	return len(s.subs)
}

// keepAliveLoop emits a ping on a fixed interval so idle streaming
// connections are not reclaimed by intermediate infrastructure.
func (h *Hub) keepAliveLoop(sessionID string, stop <-chan struct{}) {
	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.Publish(sessionID, Event{Type: TypePing})
		case <-stop:
			return
		}
	}
}
