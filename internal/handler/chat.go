package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/moviestream/backend/internal/middleware"
	"github.com/moviestream/backend/internal/model"
	"github.com/moviestream/backend/internal/repository"
	"github.com/moviestream/backend/internal/service"
)

// ChatHandler serves the REST side of chat: room listing and message
// history. Sending goes through the websocket gateway.
type ChatHandler struct {
	Chat *service.ChatService
	Repo *repository.ChatRepo
}

// Rooms handles GET /v1/chat/rooms: every room the caller belongs to,
// on either side of the pairing.
func (h *ChatHandler) Rooms(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rooms, err := h.Chat.RoomsFor(ctx, middleware.UserID(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rooms})
}

// Messages handles GET /v1/chat/rooms/:id/messages. Membership is
// enforced; admins may only read rooms they are the admin of.
func (h *ChatHandler) Messages(c echo.Context) error {
	roomID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 200 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid := middleware.UserID(c)
	rooms, err := h.Chat.RoomsFor(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	var room *model.ChatRoom
	for i := range rooms {
		if rooms[i].ID == roomID {
			room = &rooms[i]
			break
		}
	}
	if room == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "chat room not found"})
	}

	msgs, err := h.Repo.Messages(ctx, roomID, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": msgs})
}
