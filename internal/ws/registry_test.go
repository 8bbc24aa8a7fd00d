package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/moviestream/backend/internal/model"
)

func newTestSession(userID uint64) *Session {
	// No live connection: these tests exercise registration and the
	// send queue, never the pumps.
	return NewSession(userID, nil, zap.NewNop())
}

// drainEvent pops one queued frame and decodes its envelope.
func drainEvent(t *testing.T, s *Session) (string, json.RawMessage) {
	t.Helper()
	select {
	case frame := <-s.send:
		var env Envelope
		require.NoError(t, json.Unmarshal(frame, &env))
		return env.Event, env.Data
	default:
		t.Fatal("no event queued")
		return "", nil
	}
}

func TestRegistryGetUnknownUserIsNil(t *testing.T) {
	r := NewRegistry()
	assert.Nil(t, r.Get(42), "offline users resolve to nil, not an error")
}

func TestRegistryLastConnectWins(t *testing.T) {
	r := NewRegistry()
	old := newTestSession(7)
	fresh := newTestSession(7)

	r.Register(7, old)
	r.Register(7, fresh)
	assert.Same(t, fresh, r.Get(7))
}

func TestRegistryRemoveOnlyEvictsOwnSession(t *testing.T) {
	r := NewRegistry()
	old := newTestSession(7)
	fresh := newTestSession(7)

	r.Register(7, old)
	r.Register(7, fresh)

	// The stale session disconnecting must not evict the fresh one.
	r.Remove(7, old)
	assert.Same(t, fresh, r.Get(7))

	r.Remove(7, fresh)
	assert.Nil(t, r.Get(7))
}

func TestRoomCreatedSubscribesAndNotifiesMembers(t *testing.T) {
	r := NewRegistry()
	user := newTestSession(10)
	admin := newTestSession(1)
	r.Register(10, user)
	r.Register(1, admin)

	room := model.ChatRoom{ID: 5, UserID: 10, AdminID: 1}
	r.RoomCreated(room)

	for _, s := range []*Session{user, admin} {
		assert.True(t, s.InRoom(5))
		event, data := drainEvent(t, s)
		assert.Equal(t, EventRoomCreated, event)
		var payload roomCreatedPayload
		require.NoError(t, json.Unmarshal(data, &payload))
		assert.Equal(t, uint64(5), payload.RoomID)
	}
}

func TestRoomCreatedSkipsOfflineMembers(t *testing.T) {
	r := NewRegistry()
	user := newTestSession(10)
	r.Register(10, user)

	// The admin is offline; only the user is notified.
	r.RoomCreated(model.ChatRoom{ID: 5, UserID: 10, AdminID: 1})

	event, _ := drainEvent(t, user)
	assert.Equal(t, EventRoomCreated, event)
}

func TestNewMessageReachesOnlySubscribedSessions(t *testing.T) {
	r := NewRegistry()
	member := newTestSession(10)
	outsider := newTestSession(11)
	r.Register(10, member)
	r.Register(11, outsider)
	member.Join(5)

	room := model.ChatRoom{ID: 5, UserID: 10, AdminID: 1}
	chat := model.Chat{ID: 1, ChatRoomID: 5, AuthorID: 1, Message: "hi"}
	r.NewMessage(room, chat, true)

	event, data := drainEvent(t, member)
	assert.Equal(t, EventNewMessage, event)
	var got model.Chat
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "hi", got.Message)

	assert.Empty(t, outsider.send, "non-members must not receive room traffic")
}

func TestNewMessageEchoSenderPolicy(t *testing.T) {
	room := model.ChatRoom{ID: 5, UserID: 10, AdminID: 1}
	chat := model.Chat{ID: 1, ChatRoomID: 5, AuthorID: 10, Message: "mine"}

	for _, echo := range []bool{true, false} {
		r := NewRegistry()
		author := newTestSession(10)
		admin := newTestSession(1)
		r.Register(10, author)
		r.Register(1, admin)
		author.Join(5)
		admin.Join(5)

		r.NewMessage(room, chat, echo)

		assert.Len(t, admin.send, 1, "the other member always receives the message")
		if echo {
			assert.Len(t, author.send, 1)
		} else {
			assert.Empty(t, author.send, "author must be skipped when echo is off")
		}
	}
}

func TestSendEventAfterCloseIsDropped(t *testing.T) {
	s := newTestSession(10)
	s.close()

	// Must not panic or queue anything.
	s.SendEvent(EventNewMessage, model.Chat{ID: 1, Message: "late"})
	assert.Empty(t, s.send)
}

func TestSendEventDropsWhenBufferFull(t *testing.T) {
	s := newTestSession(10)
	for i := 0; i < sendBufferSize; i++ {
		s.SendEvent(EventNewMessage, model.Chat{ID: uint64(i)})
	}
	require.Len(t, s.send, sendBufferSize)

	// One more must drop instead of blocking the broadcaster.
	done := make(chan struct{})
	go func() {
		s.SendEvent(EventNewMessage, model.Chat{ID: 999})
		close(done)
	}()
	<-done
	assert.Len(t, s.send, sendBufferSize)
}
