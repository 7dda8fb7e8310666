// Package realtime fans newly inserted notification rows out to the subscribed user's connections.
package realtime

import (
	"sync"

	"taskflow/internal/logger"
	"taskflow/internal/model"
)

const subscriberBuffer = 32

type subscriber struct {
	ch chan model.Notification
}

// Hub routes notifications by recipient user id.
type Hub struct {
	mu   sync.RWMutex
	subs map[int64]map[*subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int64]map[*subscriber]struct{})}
}

// Subscribe registers a channel for userID. The returned func unsubscribes and closes the channel.
func (h *Hub) Subscribe(userID int64) (<-chan model.Notification, func()) {
	s := &subscriber{ch: make(chan model.Notification, subscriberBuffer)}

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*subscriber]struct{})
	}
	h.subs[userID][s] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[userID], s)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
			h.mu.Unlock()
			close(s.ch)
		})
	}
}

// Publish delivers n to every subscriber of n.UserID. Slow subscribers drop the message rather
// than stall the writer.
func (h *Hub) Publish(n model.Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs[n.UserID] {
		select {
		case s.ch <- n:
		default:
			logger.Warn("realtime.drop", "user_id", n.UserID, "notification_id", n.ID)
		}
	}
}

// Subscribers returns the number of live subscriptions for userID.
func (h *Hub) Subscribers(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}
