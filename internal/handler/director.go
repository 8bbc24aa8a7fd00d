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

	"github.com/moviestream/backend/internal/repository"
)

// DirectorHandler serves director CRUD. Writes are admin-gated by the
// router.
type DirectorHandler struct {
	Directors *repository.DirectorRepo
}

type directorReq struct {
	Name        string `json:"name" validate:"required,min=1,max=255"`
	DateOfBirth string `json:"dob" validate:"required"`
	Nationality string `json:"nationality" validate:"required,min=1,max=100"`
}

func parseDOB(raw string) (time.Time, error) {
	return time.Parse("2006-01-02", strings.TrimSpace(raw))
}

func (h *DirectorHandler) Create(c echo.Context) error {
	var req directorReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	dob, err := parseDOB(req.DateOfBirth)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "dob must be YYYY-MM-DD"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d, err := h.Directors.Create(ctx, strings.TrimSpace(req.Name), dob, strings.TrimSpace(req.Nationality))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create director failed"})
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *DirectorHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Directors.FindAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": items})
}

func (h *DirectorHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d, err := h.Directors.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "director not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, d)
}

// Update accepts a partial body: absent fields keep their value.
func (h *DirectorHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req struct {
		Name        string `json:"name"`
		DateOfBirth string `json:"dob"`
		Nationality string `json:"nationality"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	var dob *time.Time
	if strings.TrimSpace(req.DateOfBirth) != "" {
		t, err := parseDOB(req.DateOfBirth)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "dob must be YYYY-MM-DD"})
		}
		dob = &t
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d, err := h.Directors.Update(ctx, id, strings.TrimSpace(req.Name), dob, strings.TrimSpace(req.Nationality))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "director not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update director failed"})
	}
	return c.JSON(http.StatusOK, d)
}

func (h *DirectorHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Directors.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "director not found"})
		}
		// Movies reference directors with a restricting foreign key.
		if strings.Contains(err.Error(), "1451") {
			return c.JSON(http.StatusConflict, echo.Map{"error": "director is referenced by movies"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete director failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
