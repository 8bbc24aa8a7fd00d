package service

import (
	"context"
	"fmt"

	"github.com/moviestream/backend/internal/model"
)

// MovieQuery is the storage-facing page request: filter, full ordered
// sort key list (tie-breaker included), row limit, and the exclusive
// position to resume after.
type MovieQuery struct {
	TitleContains string
	Sort          []SortKey
	Limit         int
	After         *PageCursor
}

// MovieStore is the slice of movie persistence the catalog and the like
// toggle consume.
type MovieStore interface {
	// Find returns up to Limit rows matching the query, ordered by the
	// sort keys, strictly after the cursor position when one is set.
	Find(ctx context.Context, q MovieQuery) ([]model.Movie, error)
	FindByID(ctx context.Context, id uint64) (model.Movie, error)
}

// LikeStore is the movie_user_likes access the engines consume. Lookups
// report absence as sql.ErrNoRows; Create reports a lost uniqueness
// race as ErrDuplicate.
type LikeStore interface {
	FindByMovieAndUser(ctx context.Context, movieID, userID uint64) (model.MovieUserLike, error)
	FindForMovies(ctx context.Context, userID uint64, movieIDs []uint64) (map[uint64]bool, error)
	Create(ctx context.Context, movieID, userID uint64, isLike bool) error
	UpdateIsLike(ctx context.Context, id uint64, isLike bool) error
	Delete(ctx context.Context, id uint64) error
}

// PageQuery is a catalog page request as it arrives from transport.
type PageQuery struct {
	TitleContains string
	Sort          []SortKey
	PageSize      int
	Cursor        string
	// UserID, when non-zero, selects the per-user like overlay.
	UserID uint64
}

// Page is one window of the catalog plus the token resuming after it.
// NextCursor is empty on the final page.
type Page struct {
	Data       []model.Movie
	NextCursor string
}

// CatalogService pages through the movie catalog with opaque cursors
// and overlays the requesting user's reactions.
type CatalogService struct {
	movies MovieStore
	likes  LikeStore
}

func NewCatalogService(movies MovieStore, likes LikeStore) *CatalogService {
	return &CatalogService{movies: movies, likes: likes}
}

// FindPage resolves one page. It fetches PageSize+1 rows after the
// cursor position: a full overfetch means another page exists and the
// extra row is dropped. Repeating the call with the same inputs on an
// unchanged data set returns the identical page.
func (s *CatalogService) FindPage(ctx context.Context, q PageQuery) (Page, error) {
	if q.PageSize < 1 {
		return Page{}, ErrInvalidPageSize
	}
	sort, err := normalizeSort(q.Sort)
	if err != nil {
		return Page{}, err
	}
	after, err := DecodeCursor(q.Cursor)
	if err != nil {
		return Page{}, err
	}

	rows, err := s.movies.Find(ctx, MovieQuery{
		TitleContains: q.TitleContains,
		Sort:          sort,
		Limit:         q.PageSize + 1,
		After:         after,
	})
	if err != nil {
		return Page{}, fmt.Errorf("find movies: %w", err)
	}

	next := ""
	if len(rows) > q.PageSize {
		rows = rows[:q.PageSize]
		next = EncodeCursor(rows[len(rows)-1], sort)
	}

	if q.UserID != 0 && len(rows) > 0 {
		ids := make([]uint64, len(rows))
		for i := range rows {
			ids[i] = rows[i].ID
		}
		liked, err := s.likes.FindForMovies(ctx, q.UserID, ids)
		if err != nil {
			return Page{}, fmt.Errorf("find like records: %w", err)
		}
		for i := range rows {
			if isLike, ok := liked[rows[i].ID]; ok {
				v := isLike
				rows[i].LikeStatus = &v
			}
		}
	}

	return Page{Data: rows, NextCursor: next}, nil
}

// normalizeSort validates the requested keys against the whitelist and
// appends the id ASC tie-breaker unless id already appears.
func normalizeSort(keys []SortKey) ([]SortKey, error) {
	out := make([]SortKey, 0, len(keys)+1)
	hasID := false
	for _, k := range keys {
		if !sortableFields[k.Field] {
			return nil, fmt.Errorf("%w: %s", ErrInvalidSort, k.Field)
		}
		if k.Field == SortID {
			hasID = true
		}
		out = append(out, k)
	}
	if !hasID {
		out = append(out, SortKey{Field: SortID})
	}
	return out, nil
}
