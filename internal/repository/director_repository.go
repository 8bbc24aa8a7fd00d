package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/moviestream/backend/internal/model"
)

const directorColumns = "id,name,dob,nationality,created_at,updated_at"

// DirectorRepo provides CRUD operations over the `directors` table.
type DirectorRepo struct{ DB *sql.DB }

func NewDirectorRepo(db *sql.DB) *DirectorRepo { return &DirectorRepo{DB: db} }

// Create inserts a director and returns the stored row.
func (r *DirectorRepo) Create(ctx context.Context, name string, dob time.Time, nationality string) (model.Director, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO directors (name, dob, nationality) VALUES (?,?,?)",
		strings.TrimSpace(name), dob, strings.TrimSpace(nationality))
	if err != nil {
		return model.Director{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Director{}, err
	}
	return r.FindByID(ctx, uint64(id))
}

// FindByID fetches a director by id.
func (r *DirectorRepo) FindByID(ctx context.Context, id uint64) (model.Director, error) {
	var d model.Director
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+directorColumns+" FROM directors WHERE id=? LIMIT 1", id).
		Scan(&d.ID, &d.Name, &d.DateOfBirth, &d.Nationality, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

// FindAll returns every director ordered by id.
func (r *DirectorRepo) FindAll(ctx context.Context) ([]model.Director, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+directorColumns+" FROM directors ORDER BY id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Director
	for rows.Next() {
		var d model.Director
		if err := rows.Scan(&d.ID, &d.Name, &d.DateOfBirth, &d.Nationality, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Update overwrites the given non-zero fields and returns the fresh row.
func (r *DirectorRepo) Update(ctx context.Context, id uint64, name string, dob *time.Time, nationality string) (model.Director, error) {
	sets := []string{}
	args := []any{}
	if name != "" {
		sets = append(sets, "name=?")
		args = append(args, strings.TrimSpace(name))
	}
	if dob != nil {
		sets = append(sets, "dob=?")
		args = append(args, *dob)
	}
	if nationality != "" {
		sets = append(sets, "nationality=?")
		args = append(args, strings.TrimSpace(nationality))
	}
	if len(sets) > 0 {
		args = append(args, id)
		if _, err := r.DB.ExecContext(ctx,
			"UPDATE directors SET "+strings.Join(sets, ", ")+" WHERE id=?", args...); err != nil {
			return model.Director{}, err
		}
	}
	return r.FindByID(ctx, id)
}

// Delete removes a director. Returns sql.ErrNoRows when absent.
func (r *DirectorRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM directors WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
