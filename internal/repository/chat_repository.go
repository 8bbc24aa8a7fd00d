package repository

import (
	"context"
	"database/sql"

	"github.com/moviestream/backend/internal/model"
	"github.com/moviestream/backend/internal/service"
)

// ChatRepo provides access to chat_rooms and chats. Room provisioning
// and message inserts run through transactional scopes so a failure
// between room creation and message insert leaves no orphaned room.
// It satisfies service.ChatStore.
type ChatRepo struct{ DB *sql.DB }

func NewChatRepo(db *sql.DB) *ChatRepo { return &ChatRepo{DB: db} }

// WithTransaction opens a transaction and hands fn a transactional view
// of the chat tables. All writes commit or roll back together.
func (r *ChatRepo) WithTransaction(ctx context.Context, fn func(tx service.ChatTx) error) error {
	return WithTransaction(ctx, r.DB, func(tx *sql.Tx) error {
		return fn(chatTx{tx: tx})
	})
}

// RoomsForUser lists every room the user participates in, whether as
// the owning regular user or as the paired admin.
func (r *ChatRepo) RoomsForUser(ctx context.Context, userID uint64) ([]model.ChatRoom, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, user_id, admin_id, created_at FROM chat_rooms WHERE user_id=? OR admin_id=? ORDER BY id ASC",
		userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ChatRoom
	for rows.Next() {
		var room model.ChatRoom
		if err := rows.Scan(&room.ID, &room.UserID, &room.AdminID, &room.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, room)
	}
	return out, rows.Err()
}

// Messages returns the room's chat history in insertion order, capped
// at limit rows.
func (r *ChatRepo) Messages(ctx context.Context, roomID uint64, limit int) ([]model.Chat, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, chat_room_id, author_id, message, created_at FROM chats WHERE chat_room_id=? ORDER BY created_at ASC, id ASC LIMIT ?",
		roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Chat
	for rows.Next() {
		var c model.Chat
		if err := rows.Scan(&c.ID, &c.ChatRoomID, &c.AuthorID, &c.Message, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// chatTx implements service.ChatTx over a live *sql.Tx.
type chatTx struct{ tx *sql.Tx }

func (t chatTx) FindUser(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := t.tx.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (t chatTx) FindFirstAdmin(ctx context.Context) (model.User, error) {
	var u model.User
	err := t.tx.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE role=? ORDER BY id ASC LIMIT 1", model.RoleAdmin).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (t chatTx) FindRoomByID(ctx context.Context, id uint64) (model.ChatRoom, error) {
	var room model.ChatRoom
	err := t.tx.QueryRowContext(ctx,
		"SELECT id, user_id, admin_id, created_at FROM chat_rooms WHERE id=? LIMIT 1", id).
		Scan(&room.ID, &room.UserID, &room.AdminID, &room.CreatedAt)
	return room, err
}

func (t chatTx) FindRoomByMember(ctx context.Context, userID uint64) (model.ChatRoom, error) {
	var room model.ChatRoom
	err := t.tx.QueryRowContext(ctx,
		"SELECT id, user_id, admin_id, created_at FROM chat_rooms WHERE user_id=? OR admin_id=? ORDER BY id ASC LIMIT 1",
		userID, userID).
		Scan(&room.ID, &room.UserID, &room.AdminID, &room.CreatedAt)
	return room, err
}

// CreateRoom pairs the regular user with an admin. UNIQUE(user_id)
// rejects a concurrent duplicate creation as ErrDuplicate, which the
// provisioner downgrades to a re-read.
func (t chatTx) CreateRoom(ctx context.Context, userID, adminID uint64) (model.ChatRoom, error) {
	res, err := t.tx.ExecContext(ctx,
		"INSERT INTO chat_rooms (user_id, admin_id) VALUES (?,?)", userID, adminID)
	if err != nil {
		if isDuplicateKey(err) {
			return model.ChatRoom{}, ErrDuplicate
		}
		return model.ChatRoom{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.ChatRoom{}, err
	}
	return t.FindRoomByID(ctx, uint64(id))
}

func (t chatTx) CreateChat(ctx context.Context, roomID, authorID uint64, message string) (model.Chat, error) {
	res, err := t.tx.ExecContext(ctx,
		"INSERT INTO chats (chat_room_id, author_id, message) VALUES (?,?,?)",
		roomID, authorID, message)
	if err != nil {
		return model.Chat{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Chat{}, err
	}
	var c model.Chat
	err = t.tx.QueryRowContext(ctx,
		"SELECT id, chat_room_id, author_id, message, created_at FROM chats WHERE id=? LIMIT 1", id).
		Scan(&c.ID, &c.ChatRoomID, &c.AuthorID, &c.Message, &c.CreatedAt)
	return c, err
}
