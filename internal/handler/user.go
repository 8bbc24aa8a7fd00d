package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/moviestream/backend/internal/config"
	"github.com/moviestream/backend/internal/middleware"
	"github.com/moviestream/backend/internal/model"
	"github.com/moviestream/backend/internal/repository"
)

// UserHandler serves user administration. Listing and deleting are
// admin-only; a user may read and update their own record.
type UserHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
}

// publicUser strips the password hash from responses.
type publicUser struct {
	ID        uint64    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toPublic(u model.User) publicUser {
	return publicUser{ID: u.ID, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt}
}

func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, err := h.Users.FindAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]publicUser, len(users))
	for i, u := range users {
		out[i] = toPublic(u)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": out})
}

// targetID resolves the :id param and rejects non-admins acting on
// someone else's record.
func targetID(c echo.Context) (uint64, *echo.HTTPError) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if middleware.Role(c) != model.RoleAdmin && middleware.UserID(c) != id {
		return 0, echo.NewHTTPError(http.StatusForbidden, "forbidden")
	}
	return id, nil
}

func (h *UserHandler) Get(c echo.Context) error {
	id, httpErr := targetID(c)
	if httpErr != nil {
		return httpErr
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toPublic(u))
}

type updateUserReq struct {
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"omitempty,min=8"`
}

// Update changes email and/or password. Passwords are re-hashed in the
// repository.
func (h *UserHandler) Update(c echo.Context) error {
	id, httpErr := targetID(c)
	if httpErr != nil {
		return httpErr
	}
	var req updateUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" && req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to update"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.Update(ctx, id, req.Email, req.Password, h.Cfg.BcryptCost); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update user failed"})
	}

	u, err := h.Users.FindByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toPublic(u))
}

func (h *UserHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if id == middleware.UserID(c) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot delete yourself"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete user failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
