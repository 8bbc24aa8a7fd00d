package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/moviestream/backend/internal/model"
)

// GenreRepo provides CRUD operations over the `genres` table. Genre
// names carry a unique index; duplicate inserts map to ErrDuplicate.
type GenreRepo struct{ DB *sql.DB }

func NewGenreRepo(db *sql.DB) *GenreRepo { return &GenreRepo{DB: db} }

// Create inserts a genre and returns the stored row.
func (r *GenreRepo) Create(ctx context.Context, name string) (model.Genre, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO genres (name) VALUES (?)", strings.TrimSpace(name))
	if err != nil {
		if isDuplicateKey(err) {
			return model.Genre{}, ErrDuplicate
		}
		return model.Genre{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Genre{}, err
	}
	return r.FindByID(ctx, uint64(id))
}

// FindByID fetches a genre by id.
func (r *GenreRepo) FindByID(ctx context.Context, id uint64) (model.Genre, error) {
	var g model.Genre
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,name,created_at,updated_at FROM genres WHERE id=? LIMIT 1", id).
		Scan(&g.ID, &g.Name, &g.CreatedAt, &g.UpdatedAt)
	return g, err
}

// FindAll returns every genre ordered by id.
func (r *GenreRepo) FindAll(ctx context.Context) ([]model.Genre, error) {
	return r.queryGenres(ctx, "SELECT id,name,created_at,updated_at FROM genres ORDER BY id ASC")
}

// FindByIDs returns the genres whose ids are in the given set. The
// result may be shorter than the input when some ids do not exist;
// callers validate the count.
func (r *GenreRepo) FindByIDs(ctx context.Context, ids []uint64) ([]model.Genre, error) {
	if len(ids) == 0 {
		return []model.Genre{}, nil
	}
	query := "SELECT id,name,created_at,updated_at FROM genres WHERE id IN (?" +
		strings.Repeat(",?", len(ids)-1) + ") ORDER BY id ASC"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return r.queryGenres(ctx, query, args...)
}

func (r *GenreRepo) queryGenres(ctx context.Context, query string, args ...any) ([]model.Genre, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Genre
	for rows.Next() {
		var g model.Genre
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// Update renames a genre and returns the fresh row.
func (r *GenreRepo) Update(ctx context.Context, id uint64, name string) (model.Genre, error) {
	if name != "" {
		_, err := r.DB.ExecContext(ctx,
			"UPDATE genres SET name=? WHERE id=?", strings.TrimSpace(name), id)
		if err != nil {
			if isDuplicateKey(err) {
				return model.Genre{}, ErrDuplicate
			}
			return model.Genre{}, err
		}
	}
	return r.FindByID(ctx, id)
}

// Delete removes a genre. Returns sql.ErrNoRows when absent.
func (r *GenreRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM genres WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
