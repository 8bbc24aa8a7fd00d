package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/moviestream/backend/internal/model"
)

// ChatTx is the transactional view of chat persistence handed to the
// provisioning callback. Every write issued through it commits or rolls
// back as one unit with the surrounding transaction.
type ChatTx interface {
	FindUser(ctx context.Context, id uint64) (model.User, error)
	FindFirstAdmin(ctx context.Context) (model.User, error)
	FindRoomByID(ctx context.Context, id uint64) (model.ChatRoom, error)
	// FindRoomByMember locates the single room owned by a regular user,
	// or any room an admin participates in.
	FindRoomByMember(ctx context.Context, userID uint64) (model.ChatRoom, error)
	// CreateRoom pairs a regular user with an admin. It returns
	// ErrDuplicate when the UNIQUE(user_id) constraint rejects a
	// concurrent duplicate creation.
	CreateRoom(ctx context.Context, userID, adminID uint64) (model.ChatRoom, error)
	CreateChat(ctx context.Context, roomID, authorID uint64, message string) (model.Chat, error)
}

// ChatStore opens transactional scopes over chat persistence and serves
// the non-transactional room listing used when a session connects.
type ChatStore interface {
	WithTransaction(ctx context.Context, fn func(tx ChatTx) error) error
	RoomsForUser(ctx context.Context, userID uint64) ([]model.ChatRoom, error)
}

// ChatNotifier pushes chat events to live sessions. Implementations
// must treat offline members as a normal case; nothing is queued for
// later delivery.
type ChatNotifier interface {
	// RoomCreated informs every member of a freshly provisioned room and
	// subscribes their live sessions to its channel.
	RoomCreated(room model.ChatRoom)
	// NewMessage broadcasts a persisted message to the room's channel.
	// The author is skipped unless echoSender is set.
	NewMessage(room model.ChatRoom, chat model.Chat, echoSender bool)
}

// ChatService resolves the chat room for a sender, creating it on first
// contact, and persists messages into it.
type ChatService struct {
	store      ChatStore
	notifier   ChatNotifier
	echoSender bool
}

// NewChatService wires the provisioner. echoSender controls whether the
// author of a message receives their own broadcast; both behaviors are
// observed in the wild, so it is policy rather than contract.
func NewChatService(store ChatStore, notifier ChatNotifier, echoSender bool) *ChatService {
	return &ChatService{store: store, notifier: notifier, echoSender: echoSender}
}

// SendMessage resolves the target room for the sender, persists the
// message in the same transaction, and fans both the message and any
// room-creation event out to connected sessions after commit.
func (s *ChatService) SendMessage(ctx context.Context, senderID uint64, message string, roomID *uint64) (model.Chat, error) {
	if strings.TrimSpace(message) == "" {
		return model.Chat{}, ErrEmptyMessage
	}

	var (
		chat    model.Chat
		room    model.ChatRoom
		created bool
	)
	err := s.store.WithTransaction(ctx, func(tx ChatTx) error {
		user, err := tx.FindUser(ctx, senderID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrUserNotFound
			}
			return fmt.Errorf("load sender: %w", err)
		}
		room, created, err = s.resolveRoom(ctx, tx, user, roomID)
		if err != nil {
			return err
		}
		chat, err = tx.CreateChat(ctx, room.ID, user.ID, message)
		if err != nil {
			return fmt.Errorf("insert chat: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Chat{}, err
	}

	// Fan-out happens after commit so sessions never observe a room or
	// message that ends up rolled back.
	if s.notifier != nil {
		if created {
			s.notifier.RoomCreated(room)
		}
		s.notifier.NewMessage(room, chat, s.echoSender)
	}
	return chat, nil
}

// resolveRoom returns the room the message belongs to and whether it
// was created in this call.
//
// Admins must name a room explicitly and never trigger creation. A
// regular user resolves to their one room; on first contact a room
// pairing them with the lowest-id admin is created. The UNIQUE(user_id)
// constraint on chat_rooms makes the get-or-create safe under
// concurrency: losing the insert race downgrades to a re-read.
func (s *ChatService) resolveRoom(ctx context.Context, tx ChatTx, user model.User, roomID *uint64) (model.ChatRoom, bool, error) {
	if user.IsAdmin() {
		if roomID == nil {
			return model.ChatRoom{}, false, ErrRoomRequired
		}
		room, err := tx.FindRoomByID(ctx, *roomID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return model.ChatRoom{}, false, ErrRoomNotFound
			}
			return model.ChatRoom{}, false, fmt.Errorf("load room: %w", err)
		}
		return room, false, nil
	}

	room, err := tx.FindRoomByMember(ctx, user.ID)
	if err == nil {
		return room, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return model.ChatRoom{}, false, fmt.Errorf("find room: %w", err)
	}

	admin, err := tx.FindFirstAdmin(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ChatRoom{}, false, ErrNoAdmin
		}
		return model.ChatRoom{}, false, fmt.Errorf("find admin: %w", err)
	}

	room, err = tx.CreateRoom(ctx, user.ID, admin.ID)
	if err == nil {
		return room, true, nil
	}
	if !errors.Is(err, ErrDuplicate) {
		return model.ChatRoom{}, false, fmt.Errorf("create room: %w", err)
	}
	// A concurrent first message won the creation race; use its room.
	room, err = tx.FindRoomByMember(ctx, user.ID)
	if err != nil {
		return model.ChatRoom{}, false, fmt.Errorf("re-read room: %w", err)
	}
	return room, false, nil
}

// RoomsFor lists every room the user participates in. The websocket
// gateway subscribes freshly connected sessions to these channels.
func (s *ChatService) RoomsFor(ctx context.Context, userID uint64) ([]model.ChatRoom, error) {
	return s.store.RoomsForUser(ctx, userID)
}
