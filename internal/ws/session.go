package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings with this period (must be less than pongWait).
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound message size.
	maxMessageSize = 16 * 1024

	sendBufferSize = 64
)

// Event names on the wire.
const (
	EventSendMessage = "sendMessage"
	EventNewMessage  = "newMessage"
	EventRoomCreated = "roomCreated"
	EventError       = "error"
)

// Envelope frames every websocket message in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// sendMessagePayload is the inbound sendMessage body. Room is required
// for admins and ignored for regular users.
type sendMessagePayload struct {
	Message string  `json:"message"`
	Room    *uint64 `json:"room,omitempty"`
}

type roomCreatedPayload struct {
	RoomID uint64 `json:"room_id"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// Session wraps one websocket connection. Outbound traffic flows
// through the buffered send channel drained by the write pump; the room
// set records the broadcast channels the session is subscribed to.
type Session struct {
	id     string
	userID uint64
	conn   *websocket.Conn
	send   chan []byte
	logger *zap.Logger

	mu     sync.Mutex
	rooms  map[uint64]struct{}
	closed bool
}

func NewSession(userID uint64, conn *websocket.Conn, logger *zap.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		id:     id,
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		rooms:  make(map[uint64]struct{}),
		logger: logger.With(zap.Uint64("user_id", userID), zap.String("session_id", id)),
	}
}

func (s *Session) ID() string     { return s.id }
func (s *Session) UserID() uint64 { return s.userID }

// Join subscribes the session to a room's broadcast channel.
func (s *Session) Join(roomID uint64) {
	s.mu.Lock()
	s.rooms[roomID] = struct{}{}
	s.mu.Unlock()
}

// InRoom reports whether the session is subscribed to the room.
func (s *Session) InRoom(roomID uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rooms[roomID]
	return ok
}

// SendEvent queues an event for delivery. A session whose send buffer
// is full is considered dead slow and the payload is dropped rather
// than blocking the broadcaster.
func (s *Session) SendEvent(event string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("marshal event payload", zap.String("event", event), zap.Error(err))
		return
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: raw})
	if err != nil {
		s.logger.Error("marshal event envelope", zap.String("event", event), zap.Error(err))
		return
	}

	// The mutex orders this against close(); the channel send is
	// non-blocking so holding it here is safe.
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.send <- frame:
	default:
		s.logger.Warn("send buffer full, dropping event", zap.String("event", event))
	}
}

// writePump drains the send channel onto the connection and keeps the
// peer alive with periodic pings. It owns all writes to the connection.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// close marks the session closed and shuts the send channel so the
// write pump exits.
func (s *Session) close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.send)
	}
	s.mu.Unlock()
}
