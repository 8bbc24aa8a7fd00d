package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/moviestream/backend/internal/model"
)

// LikeRepo provides access to the movie_user_likes table. The table
// carries UNIQUE(movie_id, user_id): at most one reaction per pair, and
// concurrent first toggles are serialized by the constraint rather than
// by application locks. It satisfies service.LikeStore.
type LikeRepo struct{ DB *sql.DB }

func NewLikeRepo(db *sql.DB) *LikeRepo { return &LikeRepo{DB: db} }

// FindByMovieAndUser fetches the unique reaction record for the pair.
func (r *LikeRepo) FindByMovieAndUser(ctx context.Context, movieID, userID uint64) (model.MovieUserLike, error) {
	var l model.MovieUserLike
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, movie_id, user_id, is_like FROM movie_user_likes WHERE movie_id=? AND user_id=? LIMIT 1",
		movieID, userID).Scan(&l.ID, &l.MovieID, &l.UserID, &l.IsLike)
	return l, err
}

// FindForMovies batch-fetches the user's reactions for a page of movie
// ids and returns a movieID → isLike map. Pairs without a record are
// simply absent.
func (r *LikeRepo) FindForMovies(ctx context.Context, userID uint64, movieIDs []uint64) (map[uint64]bool, error) {
	out := make(map[uint64]bool, len(movieIDs))
	if len(movieIDs) == 0 {
		return out, nil
	}
	query := "SELECT movie_id, is_like FROM movie_user_likes WHERE user_id=? AND movie_id IN (?" +
		strings.Repeat(",?", len(movieIDs)-1) + ")"
	args := make([]any, 0, len(movieIDs)+1)
	args = append(args, userID)
	for _, id := range movieIDs {
		args = append(args, id)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			movieID uint64
			isLike  bool
		)
		if err := rows.Scan(&movieID, &isLike); err != nil {
			return nil, err
		}
		out[movieID] = isLike
	}
	return out, rows.Err()
}

// Create inserts a reaction record. A duplicate-key rejection from the
// (movie_id, user_id) constraint comes back as ErrDuplicate.
func (r *LikeRepo) Create(ctx context.Context, movieID, userID uint64, isLike bool) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO movie_user_likes (movie_id, user_id, is_like) VALUES (?,?,?)",
		movieID, userID, isLike)
	if err != nil && isDuplicateKey(err) {
		return ErrDuplicate
	}
	return err
}

// UpdateIsLike switches an existing record between like and dislike.
func (r *LikeRepo) UpdateIsLike(ctx context.Context, id uint64, isLike bool) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE movie_user_likes SET is_like=? WHERE id=?", isLike, id)
	return err
}

// Delete clears a reaction record (toggle-off).
func (r *LikeRepo) Delete(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM movie_user_likes WHERE id=?", id)
	return err
}
