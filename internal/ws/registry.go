// Package ws hosts the chat transport: the in-memory connection
// registry, per-connection sessions over gorilla/websocket, and the
// echo gateway that upgrades and authenticates connections.
package ws

import (
	"sync"

	"github.com/moviestream/backend/internal/model"
)

// Registry maps user ids to their live websocket session. It is
// process-local mutable state shared by every request; registration
// and removal are the only mutations and lookups are read-only, all
// guarded by one RWMutex.
//
// Registry implements service.ChatNotifier: the chat provisioner pushes
// room-created events and message broadcasts through it. Offline
// members are a normal case; nothing is queued for later delivery.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uint64]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[uint64]*Session)}
}

// Register binds the session to the user, replacing any prior entry.
// Last connect wins: a user connecting twice evicts the older session
// from the registry even though its transport may linger until it
// errors out.
func (r *Registry) Register(userID uint64, s *Session) {
	r.mu.Lock()
	r.sessions[userID] = s
	r.mu.Unlock()
}

// Remove deletes the user's mapping, but only when the departing
// session is still the registered one. A stale session disconnecting
// after a reconnect must not evict the fresh entry.
func (r *Registry) Remove(userID uint64, s *Session) {
	r.mu.Lock()
	if cur, ok := r.sessions[userID]; ok && cur == s {
		delete(r.sessions, userID)
	}
	r.mu.Unlock()
}

// Get returns the user's live session, or nil when the user is not
// connected. Callers treat nil as a normal offline state.
func (r *Registry) Get(userID uint64) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[userID]
}

// RoomCreated notifies every member of a freshly provisioned room and
// subscribes their connected sessions to its channel.
func (r *Registry) RoomCreated(room model.ChatRoom) {
	for _, userID := range room.Members() {
		s := r.Get(userID)
		if s == nil {
			continue
		}
		s.Join(room.ID)
		s.SendEvent(EventRoomCreated, roomCreatedPayload{RoomID: room.ID})
	}
}

// NewMessage broadcasts a persisted chat message to every session
// subscribed to the room. The author is skipped unless echoSender.
func (r *Registry) NewMessage(room model.ChatRoom, chat model.Chat, echoSender bool) {
	r.mu.RLock()
	targets := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		targets = append(targets, s)
	}
	r.mu.RUnlock()

	for _, s := range targets {
		if !s.InRoom(room.ID) {
			continue
		}
		if !echoSender && s.UserID() == chat.AuthorID {
			continue
		}
		s.SendEvent(EventNewMessage, chat)
	}
}
