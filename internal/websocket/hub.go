package websocket

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Message is a change notification for one user's collection.
type Message struct {
	Type   string `json:"type"`
	Entity string `json:"entity"`
	Action string `json:"action"`
	UserID string `json:"user_id"`
	ID     string `json:"id,omitempty"`
}

// NewMessage creates a Message with the Type field derived from entity and action.
func NewMessage(entity, action, userID, id string) Message {
	return Message{
		Type:   fmt.Sprintf("%s_%s", entity, action),
		Entity: entity,
		Action: action,
		UserID: userID,
		ID:     id,
	}
}

// Notifier delivers change notifications to whoever is listening for a user.
type Notifier interface {
	Notify(ctx context.Context, msg Message)
}

const listenerBufferSize = 1

// Listener receives the messages broadcast to one user's topic, optionally
// narrowed to a single entity.
type Listener struct {
	hub    *Hub
	userID string
	entity string
	send   chan Message
}

// C returns the channel messages are delivered on. It is closed by Unregister.
func (l *Listener) C() <-chan Message {
	return l.send
}

// Close unregisters the listener.
func (l *Listener) Close() {
	l.hub.Unregister(l)
}

// Hub fans change notifications out to the listeners of each user.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*Listener]struct{}
	logger *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		topics: make(map[string]map[*Listener]struct{}),
		logger: logger,
	}
}

// Listen registers a new listener on userID's topic. An empty entity
// receives every message for the user.
func (h *Hub) Listen(userID, entity string) *Listener {
	l := &Listener{
		hub:    h,
		userID: userID,
		entity: entity,
		send:   make(chan Message, listenerBufferSize),
	}
	h.Register(l)
	return l
}

// Register adds a listener to the hub.
func (h *Hub) Register(l *Listener) {
	h.mu.Lock()
	set, ok := h.topics[l.userID]
	if !ok {
		set = make(map[*Listener]struct{})
		h.topics[l.userID] = set
	}
	set[l] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a listener from the hub and closes its channel.
func (h *Hub) Unregister(l *Listener) {
	h.mu.Lock()
	if set, ok := h.topics[l.userID]; ok {
		if _, ok := set[l]; ok {
			delete(set, l)
			close(l.send)
		}
		if len(set) == 0 {
			delete(h.topics, l.userID)
		}
	}
	h.mu.Unlock()
}

// Broadcast sends a message to every listener of msg.UserID.
func (h *Hub) Broadcast(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for l := range h.topics[msg.UserID] {
		if l.entity != "" && l.entity != msg.Entity {
			continue
		}
		select {
		case l.send <- msg:
		default:
			// A notification is already pending; listeners re-read the
			// whole collection, so one pending message is enough.
		}
	}
	h.logger.Debug("broadcast", "type", msg.Type, "user_id", msg.UserID)
}

// Notify implements Notifier for a single-instance deployment.
func (h *Hub) Notify(_ context.Context, msg Message) {
	h.Broadcast(msg)
}

// ListenerCount returns the number of registered listeners across all users.
func (h *Hub) ListenerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.topics {
		n += len(set)
	}
	return n
}
