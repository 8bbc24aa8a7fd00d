package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/moviestream/backend/internal/service"
)

// Gateway upgrades authenticated HTTP requests to websocket sessions
// and dispatches inbound chat events to the chat service. The transport
// owns the registry lifecycle: register on connect, remove on
// disconnect; the core never initiates either.
type Gateway struct {
	registry *Registry
	chat     *service.ChatService
	secret   string
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewGateway(registry *Registry, chat *service.ChatService, jwtSecret string, logger *zap.Logger) *Gateway {
	return &Gateway{
		registry: registry,
		chat:     chat,
		secret:   jwtSecret,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Handle is the echo handler for GET /v1/chat/ws. The access token is
// accepted either as a ?token= query parameter (browser websocket
// clients cannot set headers) or as a Bearer header.
func (g *Gateway) Handle(c echo.Context) error {
	userID, err := g.authenticate(c.Request())
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	}

	conn, err := g.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the failure response.
		return nil
	}

	s := NewSession(userID, conn, g.logger)
	g.registry.Register(userID, s)

	// Subscribe the fresh session to every room the user already
	// participates in so broadcasts reach it immediately.
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	rooms, err := g.chat.RoomsFor(ctx, userID)
	cancel()
	if err != nil {
		g.logger.Error("load rooms on connect", zap.Uint64("user_id", userID), zap.Error(err))
	}
	for _, room := range rooms {
		s.Join(room.ID)
	}

	go s.writePump()
	g.readPump(s)
	return nil
}

// authenticate validates the HS256 access token and extracts the user
// id from the sub claim.
func (g *Gateway) authenticate(r *http.Request) (uint64, error) {
	raw := r.URL.Query().Get("token")
	if raw == "" {
		auth := r.Header.Get("Authorization")
		raw = strings.TrimPrefix(auth, "Bearer ")
	}
	if raw == "" {
		return 0, echo.ErrUnauthorized
	}
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, echo.ErrUnauthorized
		}
		return []byte(g.secret), nil
	})
	if err != nil || !tok.Valid {
		return 0, echo.ErrUnauthorized
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return 0, echo.ErrUnauthorized
	}
	sub, ok := claims["sub"].(float64)
	if !ok || sub <= 0 {
		return 0, echo.ErrUnauthorized
	}
	return uint64(sub), nil
}

// readPump consumes inbound frames until the connection dies, then
// tears the session down.
func (g *Gateway) readPump(s *Session) {
	defer func() {
		g.registry.Remove(s.UserID(), s)
		s.close()
		_ = s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}
		g.dispatch(s, frame)
	}
}

// dispatch routes one inbound envelope. Unknown events and malformed
// payloads are answered with an error event rather than dropping the
// connection.
func (g *Gateway) dispatch(s *Session, frame []byte) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		s.SendEvent(EventError, errorPayload{Message: "malformed frame"})
		return
	}
	switch env.Event {
	case EventSendMessage:
		var payload sendMessagePayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			s.SendEvent(EventError, errorPayload{Message: "malformed sendMessage payload"})
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := g.chat.SendMessage(ctx, s.UserID(), payload.Message, payload.Room); err != nil {
			s.SendEvent(EventError, errorPayload{Message: err.Error()})
		}
	default:
		s.SendEvent(EventError, errorPayload{Message: "unknown event: " + env.Event})
	}
}
