package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moviestream/backend/internal/model"
)

func chatFixture() (*memChatStore, *recordingNotifier, *ChatService) {
	users := &memUserStore{users: []model.User{
		{ID: 1, Email: "root@example.com", Role: model.RoleAdmin},
		{ID: 2, Email: "second-admin@example.com", Role: model.RoleAdmin},
		{ID: 10, Email: "alice@example.com", Role: model.RoleUser},
		{ID: 11, Email: "bob@example.com", Role: model.RoleUser},
	}}
	store := newMemChatStore(users)
	notifier := &recordingNotifier{}
	return store, notifier, NewChatService(store, notifier, true)
}

func TestSendMessageFirstContactCreatesRoom(t *testing.T) {
	store, notifier, svc := chatFixture()

	chat, err := svc.SendMessage(context.Background(), 10, "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", chat.Message)
	assert.Equal(t, uint64(10), chat.AuthorID)

	require.Len(t, store.rooms, 1)
	room := store.rooms[chat.ChatRoomID]
	assert.Equal(t, uint64(10), room.UserID)
	// Paired with the lowest-id admin.
	assert.Equal(t, uint64(1), room.AdminID)

	require.Len(t, notifier.created, 1)
	assert.Equal(t, room.ID, notifier.created[0].ID)
	require.Len(t, notifier.messages, 1)
	assert.Equal(t, chat.ID, notifier.messages[0].ID)
}

func TestSendMessageSecondMessageReusesRoom(t *testing.T) {
	store, notifier, svc := chatFixture()
	ctx := context.Background()

	first, err := svc.SendMessage(ctx, 10, "one", nil)
	require.NoError(t, err)
	second, err := svc.SendMessage(ctx, 10, "two", nil)
	require.NoError(t, err)

	assert.Equal(t, first.ChatRoomID, second.ChatRoomID)
	assert.Len(t, store.rooms, 1)
	// roomCreated fires only for the first contact.
	assert.Len(t, notifier.created, 1)
	assert.Len(t, notifier.messages, 2)
}

func TestSendMessageEachUserGetsOwnRoom(t *testing.T) {
	store, _, svc := chatFixture()
	ctx := context.Background()

	a, err := svc.SendMessage(ctx, 10, "from alice", nil)
	require.NoError(t, err)
	b, err := svc.SendMessage(ctx, 11, "from bob", nil)
	require.NoError(t, err)

	assert.NotEqual(t, a.ChatRoomID, b.ChatRoomID)
	assert.Len(t, store.rooms, 2)
}

func TestSendMessageAdminMustNameRoom(t *testing.T) {
	_, _, svc := chatFixture()

	_, err := svc.SendMessage(context.Background(), 1, "which room?", nil)
	assert.ErrorIs(t, err, ErrRoomRequired)
}

func TestSendMessageAdminIntoExistingRoom(t *testing.T) {
	store, notifier, svc := chatFixture()
	ctx := context.Background()

	first, err := svc.SendMessage(ctx, 10, "hi", nil)
	require.NoError(t, err)

	reply, err := svc.SendMessage(ctx, 1, "hello back", &first.ChatRoomID)
	require.NoError(t, err)
	assert.Equal(t, first.ChatRoomID, reply.ChatRoomID)
	assert.Len(t, store.rooms, 1)
	// The reply must not re-announce the room.
	assert.Len(t, notifier.created, 1)
}

// An admin may write into any room, membership or not.
func TestSendMessageForeignAdminMayWrite(t *testing.T) {
	_, _, svc := chatFixture()
	ctx := context.Background()

	first, err := svc.SendMessage(ctx, 10, "hi", nil)
	require.NoError(t, err)

	// Admin 2 is not the room's paired admin.
	reply, err := svc.SendMessage(ctx, 2, "covering shift", &first.ChatRoomID)
	require.NoError(t, err)
	assert.Equal(t, first.ChatRoomID, reply.ChatRoomID)
}

func TestSendMessageAdminUnknownRoom(t *testing.T) {
	_, _, svc := chatFixture()

	missing := uint64(777)
	_, err := svc.SendMessage(context.Background(), 1, "anyone there?", &missing)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestSendMessageRejectsBlankMessage(t *testing.T) {
	store, _, svc := chatFixture()

	for _, msg := range []string{"", "   ", "\n\t"} {
		_, err := svc.SendMessage(context.Background(), 10, msg, nil)
		assert.ErrorIs(t, err, ErrEmptyMessage)
	}
	assert.Empty(t, store.rooms, "nothing may be provisioned for a rejected message")
}

func TestSendMessageUnknownSender(t *testing.T) {
	_, _, svc := chatFixture()

	_, err := svc.SendMessage(context.Background(), 999, "hello", nil)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSendMessageNoAdminAvailable(t *testing.T) {
	users := &memUserStore{users: []model.User{
		{ID: 10, Email: "alice@example.com", Role: model.RoleUser},
	}}
	svc := NewChatService(newMemChatStore(users), &recordingNotifier{}, true)

	_, err := svc.SendMessage(context.Background(), 10, "hello?", nil)
	assert.ErrorIs(t, err, ErrNoAdmin)
}

func TestSendMessageLostCreationRaceReusesWinnersRoom(t *testing.T) {
	store, notifier, svc := chatFixture()

	// A concurrent first message creates alice's room just before our
	// insert hits the unique key.
	store.beforeCreateRoom = func(s *memChatStore) { s.insertRoom(10, 1) }

	chat, err := svc.SendMessage(context.Background(), 10, "hello", nil)
	require.NoError(t, err)
	assert.Len(t, store.rooms, 1, "the loser must not create a second room")
	room := store.rooms[chat.ChatRoomID]
	assert.Equal(t, uint64(10), room.UserID)
	// The winner announced the room; the loser stays quiet.
	assert.Empty(t, notifier.created)
}

func TestSendMessageEchoFlagReachesNotifier(t *testing.T) {
	users := &memUserStore{users: []model.User{
		{ID: 1, Role: model.RoleAdmin},
		{ID: 10, Role: model.RoleUser},
	}}
	for _, echo := range []bool{true, false} {
		notifier := &recordingNotifier{}
		svc := NewChatService(newMemChatStore(users), notifier, echo)

		_, err := svc.SendMessage(context.Background(), 10, "ping", nil)
		require.NoError(t, err)
		require.Len(t, notifier.echoes, 1)
		assert.Equal(t, echo, notifier.echoes[0])
	}
}

func TestRoomsForListsBothSides(t *testing.T) {
	_, _, svc := chatFixture()
	ctx := context.Background()

	_, err := svc.SendMessage(ctx, 10, "a", nil)
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, 11, "b", nil)
	require.NoError(t, err)

	alice, err := svc.RoomsFor(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, alice, 1)

	admin, err := svc.RoomsFor(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, admin, 2)
}
