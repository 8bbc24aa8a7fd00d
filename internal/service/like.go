package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/moviestream/backend/internal/model"
)

// UserStore is the user persistence slice the engines consume.
type UserStore interface {
	FindByID(ctx context.Context, id uint64) (model.User, error)
	FindFirstAdmin(ctx context.Context) (model.User, error)
}

// LikeService flips, switches, and clears a user's reaction to a movie
// under the (movie, user) uniqueness constraint. The movie's aggregate
// counters are deliberately not touched here; the housekeeping task
// recomputes them from the like records on its own schedule, so
// displayed counts may lag briefly.
type LikeService struct {
	movies MovieStore
	users  UserStore
	likes  LikeStore
}

func NewLikeService(movies MovieStore, users UserStore, likes LikeStore) *LikeService {
	return &LikeService{movies: movies, users: users, likes: likes}
}

// Toggle applies one reaction and returns the resulting state: true or
// false when a record remains, nil when repeating the same reaction
// cleared it. Sending the same reaction twice in a row always clears;
// sending the opposite reaction switches the existing record in place,
// so two records for one pair can never exist.
func (s *LikeService) Toggle(ctx context.Context, movieID, userID uint64, wantLike bool) (*bool, error) {
	if _, err := s.movies.FindByID(ctx, movieID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMovieNotFound
		}
		return nil, fmt.Errorf("load movie: %w", err)
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	record, err := s.likes.FindByMovieAndUser(ctx, movieID, userID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if err := s.likes.Create(ctx, movieID, userID, wantLike); err != nil {
			if !errors.Is(err, ErrDuplicate) {
				return nil, fmt.Errorf("create like record: %w", err)
			}
			// Lost a race against a concurrent first toggle for the same
			// pair. The record exists now; re-read and fall through to the
			// update/delete branch.
			record, err = s.likes.FindByMovieAndUser(ctx, movieID, userID)
			if err != nil {
				return nil, fmt.Errorf("re-read like record: %w", err)
			}
			if err := s.applyToExisting(ctx, record, wantLike); err != nil {
				return nil, err
			}
		}
	case err != nil:
		return nil, fmt.Errorf("find like record: %w", err)
	default:
		if err := s.applyToExisting(ctx, record, wantLike); err != nil {
			return nil, err
		}
	}

	result, err := s.likes.FindByMovieAndUser(ctx, movieID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read back like record: %w", err)
	}
	isLike := result.IsLike
	return &isLike, nil
}

func (s *LikeService) applyToExisting(ctx context.Context, record model.MovieUserLike, wantLike bool) error {
	if record.IsLike == wantLike {
		if err := s.likes.Delete(ctx, record.ID); err != nil {
			return fmt.Errorf("delete like record: %w", err)
		}
		return nil
	}
	if err := s.likes.UpdateIsLike(ctx, record.ID, wantLike); err != nil {
		return fmt.Errorf("update like record: %w", err)
	}
	return nil
}
