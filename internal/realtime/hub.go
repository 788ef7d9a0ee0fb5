// Package realtime fans out state-change messages to every subscriber of a
// session. Delivery is best-effort: a subscriber that is not draining its
// buffer has messages dropped, never queued for redelivery.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

// Message kinds pushed to session subscribers.
const (
	KindSessionState  = "session.state"
	KindPlayersList   = "players.list"
	KindPlayerUpdate  = "player.update"
	KindLeaderboard   = "leaderboard.update"
	KindGameEvent     = "game.event"
	KindBalanceUpdate = "player.balance_update"
)

// Message is the envelope sent over the wire.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// GameEvent is the payload of a generic named game event.
type GameEvent struct {
	Kind string      `json:"kind"`
	Data interface{} `json:"data"`
}

// Publisher is the injected fan-out boundary used by the service layer.
type Publisher interface {
	Publish(sessionCode string, msg Message)
}

// Subscriber is one live connection inside a session group.
type Subscriber struct {
	ID   string
	Send chan []byte
}

// Hub manages session groups and message delivery.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[string]*Subscriber // session code -> subscriber ID -> subscriber
	logger *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]map[string]*Subscriber),
		logger: logger,
	}
}

// Join adds a subscriber to a session group.
func (h *Hub) Join(sessionCode string, sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[sessionCode] == nil {
		h.rooms[sessionCode] = make(map[string]*Subscriber)
	}
	h.rooms[sessionCode][sub.ID] = sub
}

// Leave removes a subscriber from a session group.
func (h *Hub) Leave(sessionCode, subID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.rooms[sessionCode]; ok {
		delete(subs, subID)
		if len(subs) == 0 {
			delete(h.rooms, sessionCode)
		}
	}
}

// Publish sends a message to every subscriber of the session group.
// Fire-and-forget: a full send buffer drops the message for that subscriber.
func (h *Hub) Publish(sessionCode string, msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("realtime marshal error", "error", err, "session", sessionCode, "type", msg.Type)
		return
	}
	h.deliver(sessionCode, payload)
}

// deliver pushes raw bytes into every subscriber buffer of the group.
func (h *Hub) deliver(sessionCode string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	subs, ok := h.rooms[sessionCode]
	if !ok {
		return
	}
	for _, sub := range subs {
		select {
		case sub.Send <- payload:
		default:
			h.logger.Warn("realtime send buffer full, dropping", "subscriber", sub.ID, "session", sessionCode)
		}
	}
}

// SubscriberCount returns the number of live subscribers for a session.
func (h *Hub) SubscriberCount(sessionCode string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[sessionCode])
}

// Shutdown closes all subscriber channels.
func (h *Hub) Shutdown(_ context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for code, subs := range h.rooms {
		for _, sub := range subs {
			close(sub.Send)
		}
		delete(h.rooms, code)
	}
}
