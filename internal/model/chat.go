package model

import "time"

// ChatRoom mirrors the `chat_rooms` table.  A room pairs exactly one
// regular user with one admin; UNIQUE(user_id) enforces that a regular
// user belongs to at most one room.  Admins participate in many rooms.
type ChatRoom struct {
	ID        uint64    `json:"id"`
	UserID    uint64    `json:"user_id"`
	AdminID   uint64    `json:"admin_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Members returns the user ids participating in the room.
func (r ChatRoom) Members() []uint64 { return []uint64{r.UserID, r.AdminID} }

// Chat mirrors the `chats` table.  Rows are append-only and ordered by
// CreatedAt.
type Chat struct {
	ID         uint64    `json:"id"`
	ChatRoomID uint64    `json:"chat_room_id"`
	AuthorID   uint64    `json:"author_id"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}
