package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/moviestream/backend/internal/config"
	"github.com/moviestream/backend/internal/middleware"
	"github.com/moviestream/backend/internal/model"
	"github.com/moviestream/backend/internal/queue"
	"github.com/moviestream/backend/internal/repository"
	"github.com/moviestream/backend/internal/service"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100

	recentCacheKey = "movies:recent"
	recentCacheTTL = time.Minute
	recentLimit    = 10
)

// MovieHandler serves the movie catalog: listing, recent, CRUD and the
// like/dislike toggle.
type MovieHandler struct {
	Cfg       config.Config
	DB        *sql.DB
	Movies    *repository.MovieRepo
	Directors *repository.DirectorRepo
	Genres    *repository.GenreRepo
	Catalog   *service.CatalogService
	Likes     *service.LikeService
	Redis     *redis.Client
	Logger    *zap.Logger
}

// ----- listing -----

// List handles GET /v1/movies. Query params: title (substring filter),
// sort (comma list of field or field:desc), page_size, cursor.
func (h *MovieHandler) List(c echo.Context) error {
	pageSize := defaultPageSize
	if raw := c.QueryParam("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid page_size"})
		}
		pageSize = n
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	sort, err := parseSort(c.QueryParam("sort"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	page, err := h.Catalog.FindPage(ctx, service.PageQuery{
		TitleContains: strings.TrimSpace(c.QueryParam("title")),
		Sort:          sort,
		PageSize:      pageSize,
		Cursor:        c.QueryParam("cursor"),
		UserID:        middleware.UserID(c),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCursor),
			errors.Is(err, service.ErrInvalidPageSize),
			errors.Is(err, service.ErrInvalidSort):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list movies failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data":        page.Data,
		"next_cursor": page.NextCursor,
	})
}

// parseSort turns "like_count:desc,title" into sort keys. Direction
// defaults to ascending; field names are validated downstream.
func parseSort(raw string) ([]service.SortKey, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var keys []service.SortKey
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		field, dir, hasDir := strings.Cut(part, ":")
		k := service.SortKey{Field: strings.TrimSpace(field)}
		if hasDir {
			switch strings.ToLower(strings.TrimSpace(dir)) {
			case "asc":
			case "desc":
				k.Desc = true
			default:
				return nil, errors.New("sort direction must be asc or desc")
			}
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// Recent handles GET /v1/movies/recent: the latest releases, cached in
// redis for a minute. Cache misses and redis outages fall through to
// the database.
func (h *MovieHandler) Recent(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if h.Redis != nil {
		if cached, err := h.Redis.Get(ctx, recentCacheKey).Bytes(); err == nil {
			var movies []model.Movie
			if json.Unmarshal(cached, &movies) == nil {
				return c.JSON(http.StatusOK, echo.Map{"data": movies})
			}
		}
	}

	movies, err := h.Movies.FindRecent(ctx, recentLimit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	if h.Redis != nil {
		if body, err := json.Marshal(movies); err == nil {
			if err := h.Redis.Set(ctx, recentCacheKey, body, recentCacheTTL).Err(); err != nil {
				h.Logger.Warn("recent cache write failed", zap.Error(err))
			}
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"data": movies})
}

// Get handles GET /v1/movies/:id with detail, director and genres.
func (h *MovieHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	movie, err := h.Movies.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, movie)
}

// ----- write paths -----

type movieReq struct {
	Title      string   `json:"title" validate:"required,min=1,max=255"`
	Detail     string   `json:"detail" validate:"required"`
	DirectorID uint64   `json:"director_id" validate:"required"`
	GenreIDs   []uint64 `json:"genre_ids" validate:"required,min=1,dive,required"`
	// File is the staged upload's file name as returned by the upload
	// endpoint; only set on create.
	File string `json:"file"`
}

// checkRelations verifies the director and every requested genre exist.
func (h *MovieHandler) checkRelations(ctx context.Context, req movieReq) *echo.HTTPError {
	if _, err := h.Directors.FindByID(ctx, req.DirectorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return echo.NewHTTPError(http.StatusBadRequest, "director does not exist")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "query failed")
	}
	genres, err := h.Genres.FindByIDs(ctx, req.GenreIDs)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "query failed")
	}
	if len(genres) != len(dedupe(req.GenreIDs)) {
		return echo.NewHTTPError(http.StatusBadRequest, "one or more genres do not exist")
	}
	return nil
}

func dedupe(ids []uint64) []uint64 {
	seen := make(map[uint64]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// Create handles POST /v1/movies (admin). The detail row, movie row,
// genre links and the temp-to-permanent file move happen in one
// transaction; the thumbnail job is published after commit and is
// allowed to fail.
func (h *MovieHandler) Create(c echo.Context) error {
	var req movieReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	req.File = filepath.Base(strings.TrimSpace(req.File))
	if req.File == "" || req.File == "." {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if httpErr := h.checkRelations(ctx, req); httpErr != nil {
		return httpErr
	}

	tempPath := filepath.Join(h.Cfg.TempDir, req.File)
	if _, err := os.Stat(tempPath); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "uploaded file not found"})
	}
	finalPath := filepath.Join(h.Cfg.MovieDir, req.File)

	movie := model.Movie{
		Title:      strings.TrimSpace(req.Title),
		DirectorID: req.DirectorID,
		CreatorID:  middleware.UserID(c),
		FilePath:   finalPath,
	}

	err := repository.WithTransaction(ctx, h.DB, func(tx *sql.Tx) error {
		detailID, err := h.Movies.CreateDetailTx(ctx, tx, req.Detail)
		if err != nil {
			return err
		}
		movie.DetailID = detailID
		if err := h.Movies.CreateTx(ctx, tx, &movie); err != nil {
			return err
		}
		if err := h.Movies.SetGenresTx(ctx, tx, movie.ID, dedupe(req.GenreIDs)); err != nil {
			return err
		}
		// Move inside the tx so a failed insert leaves the staged file
		// in place for a retry.
		if err := os.MkdirAll(h.Cfg.MovieDir, 0o755); err != nil {
			return err
		}
		return os.Rename(tempPath, finalPath)
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "movie title already exists"})
		}
		h.Logger.Error("create movie failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create movie failed"})
	}

	_ = queue.PublishThumbnailJob(ctx, h.Logger, queue.ThumbnailJobEvent{
		MovieID:     movie.ID,
		Title:       movie.Title,
		FilePath:    finalPath,
		RequestedAt: time.Now().UTC().Format(time.RFC3339),
	})
	h.invalidateRecent(ctx)

	created, err := h.Movies.FindByID(ctx, movie.ID)
	if err != nil {
		return c.JSON(http.StatusCreated, movie)
	}
	return c.JSON(http.StatusCreated, created)
}

// Update handles PUT /v1/movies/:id (admin). Title, detail, director
// and the genre set are replaced in one transaction.
func (h *MovieHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req movieReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	existing, err := h.Movies.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if httpErr := h.checkRelations(ctx, req); httpErr != nil {
		return httpErr
	}

	err = repository.WithTransaction(ctx, h.DB, func(tx *sql.Tx) error {
		if err := h.Movies.UpdateTx(ctx, tx, id, strings.TrimSpace(req.Title), req.DirectorID); err != nil {
			return err
		}
		if err := h.Movies.UpdateDetailTx(ctx, tx, existing.DetailID, req.Detail); err != nil {
			return err
		}
		return h.Movies.SetGenresTx(ctx, tx, id, dedupe(req.GenreIDs))
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "movie title already exists"})
		}
		h.Logger.Error("update movie failed", zap.Error(err), zap.Uint64("movie_id", id))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update movie failed"})
	}
	h.invalidateRecent(ctx)

	updated, err := h.Movies.FindByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, updated)
}

// Delete handles DELETE /v1/movies/:id (admin). The stored video file
// is removed best-effort after the rows are gone.
func (h *MovieHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	existing, err := h.Movies.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	if err := h.Movies.Delete(ctx, id); err != nil {
		h.Logger.Error("delete movie failed", zap.Error(err), zap.Uint64("movie_id", id))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete movie failed"})
	}
	if existing.FilePath != "" {
		if err := os.Remove(existing.FilePath); err != nil && !os.IsNotExist(err) {
			h.Logger.Warn("remove movie file failed", zap.Error(err), zap.String("path", existing.FilePath))
		}
	}
	h.invalidateRecent(ctx)
	return c.NoContent(http.StatusNoContent)
}

func (h *MovieHandler) invalidateRecent(ctx context.Context) {
	if h.Redis == nil {
		return
	}
	if err := h.Redis.Del(ctx, recentCacheKey).Err(); err != nil {
		h.Logger.Warn("recent cache invalidate failed", zap.Error(err))
	}
}

// ----- reactions -----

// Like handles POST /v1/movies/:id/like.
func (h *MovieHandler) Like(c echo.Context) error {
	return h.toggle(c, true)
}

// Dislike handles POST /v1/movies/:id/dislike.
func (h *MovieHandler) Dislike(c echo.Context) error {
	return h.toggle(c, false)
}

func (h *MovieHandler) toggle(c echo.Context, wantLike bool) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	status, err := h.Likes.Toggle(ctx, id, middleware.UserID(c), wantLike)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMovieNotFound):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "movie does not exist"})
		case errors.Is(err, service.ErrUserNotFound):
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
		h.Logger.Error("toggle reaction failed", zap.Error(err), zap.Uint64("movie_id", id))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "toggle failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"movie_id": id, "like_status": status})
}
