package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/moviestream/backend/internal/model"
	"github.com/moviestream/backend/internal/service"
)

// MovieRepo provides access to the movies, movie_details and
// movie_genres tables. Listing queries join directors so page rows come
// back populated; genres are attached with one batched IN query per
// page. It satisfies service.MovieStore.
type MovieRepo struct{ DB *sql.DB }

func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{DB: db} }

const movieSelect = `SELECT
		m.id, m.title, m.detail_id, m.director_id, m.creator_id, m.file_path,
		m.like_count, m.dislike_count, m.created_at, m.updated_at,
		d.id, d.name, d.dob, d.nationality, d.created_at, d.updated_at
	FROM movies m
	JOIN directors d ON d.id = m.director_id`

// sortColumns whitelists the ORDER BY targets for page queries. The
// service layer validates fields before they reach this map; an unknown
// field here is a programming error and is simply skipped.
var sortColumns = map[string]string{
	service.SortID:        "m.id",
	service.SortTitle:     "m.title",
	service.SortLikeCount: "m.like_count",
	service.SortCreatedAt: "m.created_at",
}

func scanMovie(scan func(dest ...any) error) (model.Movie, error) {
	var (
		m model.Movie
		d model.Director
	)
	err := scan(
		&m.ID, &m.Title, &m.DetailID, &m.DirectorID, &m.CreatorID, &m.FilePath,
		&m.LikeCount, &m.DislikeCount, &m.CreatedAt, &m.UpdatedAt,
		&d.ID, &d.Name, &d.DateOfBirth, &d.Nationality, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return model.Movie{}, err
	}
	m.Director = &d
	return m, nil
}

// Find implements the page window query: filter, multi-key ordering,
// and the strictly-after cursor constraint expressed as a tuple
// comparison over the sort columns. A cursor that does not carry a
// value for one of the requested sort fields cannot be positioned and
// yields an empty window, which callers treat as an exhausted page.
func (r *MovieRepo) Find(ctx context.Context, q service.MovieQuery) ([]model.Movie, error) {
	where := []string{}
	args := []any{}

	if q.TitleContains != "" {
		where = append(where, "LOWER(m.title) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.TitleContains)+"%")
	}

	if q.After != nil {
		pred, predArgs, ok := afterPredicate(q.Sort, q.After)
		if !ok {
			return []model.Movie{}, nil
		}
		where = append(where, pred)
		args = append(args, predArgs...)
	}

	query := movieSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY " + orderBy(q.Sort) + " LIMIT ?"
	args = append(args, q.Limit)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Movie, 0, q.Limit)
	for rows.Next() {
		m, err := scanMovie(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachGenres(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// orderBy renders the validated sort keys into an ORDER BY clause.
func orderBy(sort []service.SortKey) string {
	parts := make([]string, 0, len(sort))
	for _, k := range sort {
		col, ok := sortColumns[k.Field]
		if !ok {
			continue
		}
		dir := "ASC"
		if k.Desc {
			dir = "DESC"
		}
		parts = append(parts, col+" "+dir)
	}
	if len(parts) == 0 {
		return "m.id ASC"
	}
	return strings.Join(parts, ", ")
}

// afterPredicate builds the row-comparison WHERE fragment selecting rows
// strictly after the cursor position in the sort order:
//
//	(k1 > v1) OR (k1 = v1 AND k2 > v2) OR (k1 = v1 AND k2 = v2 AND id > vID)
//
// with > flipped to < for descending keys.
func afterPredicate(sort []service.SortKey, pos *service.PageCursor) (string, []any, bool) {
	values := make([]any, len(sort))
	for i, k := range sort {
		v, ok := cursorValue(k.Field, pos)
		if !ok {
			return "", nil, false
		}
		values[i] = v
	}

	clauses := make([]string, 0, len(sort))
	args := []any{}
	for i, k := range sort {
		parts := make([]string, 0, i+1)
		for j := 0; j < i; j++ {
			parts = append(parts, sortColumns[sort[j].Field]+" = ?")
			args = append(args, values[j])
		}
		op := ">"
		if k.Desc {
			op = "<"
		}
		parts = append(parts, sortColumns[k.Field]+" "+op+" ?")
		args = append(args, values[i])
		clauses = append(clauses, "("+strings.Join(parts, " AND ")+")")
	}
	return "(" + strings.Join(clauses, " OR ") + ")", args, true
}

func cursorValue(field string, pos *service.PageCursor) (any, bool) {
	switch field {
	case service.SortID:
		return pos.ID, true
	case service.SortTitle:
		if pos.Title != nil {
			return *pos.Title, true
		}
	case service.SortLikeCount:
		if pos.LikeCount != nil {
			return *pos.LikeCount, true
		}
	case service.SortCreatedAt:
		if pos.CreatedAt != nil {
			return *pos.CreatedAt, true
		}
	}
	return nil, false
}

// FindByID fetches one movie with detail text, director and genres
// populated.
func (r *MovieRepo) FindByID(ctx context.Context, id uint64) (model.Movie, error) {
	m, err := scanMovie(r.DB.QueryRowContext(ctx, movieSelect+" WHERE m.id=? LIMIT 1", id).Scan)
	if err != nil {
		return model.Movie{}, err
	}
	if err := r.DB.QueryRowContext(ctx,
		"SELECT detail FROM movie_details WHERE id=? LIMIT 1", m.DetailID).Scan(&m.Detail); err != nil && err != sql.ErrNoRows {
		return model.Movie{}, err
	}
	page := []model.Movie{m}
	if err := r.attachGenres(ctx, page); err != nil {
		return model.Movie{}, err
	}
	return page[0], nil
}

// FindRecent returns the newest movies, genres populated. This backs
// the redis-cached recent list.
func (r *MovieRepo) FindRecent(ctx context.Context, limit int) ([]model.Movie, error) {
	return r.Find(ctx, service.MovieQuery{
		Sort:  []service.SortKey{{Field: service.SortCreatedAt, Desc: true}, {Field: service.SortID, Desc: true}},
		Limit: limit,
	})
}

// attachGenres loads the genres for every movie in the slice with a
// single IN query and distributes them.
func (r *MovieRepo) attachGenres(ctx context.Context, movies []model.Movie) error {
	if len(movies) == 0 {
		return nil
	}
	ids := make([]any, len(movies))
	index := make(map[uint64]int, len(movies))
	for i := range movies {
		ids[i] = movies[i].ID
		index[movies[i].ID] = i
	}
	query := `SELECT mg.movie_id, g.id, g.name, g.created_at, g.updated_at
		FROM movie_genres mg
		JOIN genres g ON g.id = mg.genre_id
		WHERE mg.movie_id IN (?` + strings.Repeat(",?", len(ids)-1) + `)
		ORDER BY g.id ASC`
	rows, err := r.DB.QueryContext(ctx, query, ids...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			movieID uint64
			g       model.Genre
		)
		if err := rows.Scan(&movieID, &g.ID, &g.Name, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return err
		}
		i := index[movieID]
		movies[i].Genres = append(movies[i].Genres, g)
	}
	return rows.Err()
}

// CreateDetailTx inserts the long-form detail row within the given
// transaction and returns its id.
func (r *MovieRepo) CreateDetailTx(ctx context.Context, tx *sql.Tx, detail string) (uint64, error) {
	res, err := tx.ExecContext(ctx, "INSERT INTO movie_details (detail) VALUES (?)", detail)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// CreateTx inserts the movie row within the given transaction and
// populates the generated ID. Duplicate titles map to ErrDuplicate.
func (r *MovieRepo) CreateTx(ctx context.Context, tx *sql.Tx, m *model.Movie) error {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO movies (title, detail_id, director_id, creator_id, file_path) VALUES (?,?,?,?,?)",
		m.Title, m.DetailID, m.DirectorID, m.CreatorID, m.FilePath)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

// SetGenresTx replaces the movie's genre links within the transaction.
func (r *MovieRepo) SetGenresTx(ctx context.Context, tx *sql.Tx, movieID uint64, genreIDs []uint64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM movie_genres WHERE movie_id=?", movieID); err != nil {
		return err
	}
	if len(genreIDs) == 0 {
		return nil
	}
	query := "INSERT INTO movie_genres (movie_id, genre_id) VALUES (?,?)" +
		strings.Repeat(",(?,?)", len(genreIDs)-1)
	args := make([]any, 0, len(genreIDs)*2)
	for _, gid := range genreIDs {
		args = append(args, movieID, gid)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// UpdateTx overwrites the given non-zero movie columns within the
// transaction.
func (r *MovieRepo) UpdateTx(ctx context.Context, tx *sql.Tx, id uint64, title string, directorID uint64) error {
	sets := []string{}
	args := []any{}
	if title != "" {
		sets = append(sets, "title=?")
		args = append(args, title)
	}
	if directorID != 0 {
		sets = append(sets, "director_id=?")
		args = append(args, directorID)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	_, err := tx.ExecContext(ctx, "UPDATE movies SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
	if err != nil && isDuplicateKey(err) {
		return ErrDuplicate
	}
	return err
}

// UpdateDetailTx overwrites the detail text within the transaction.
func (r *MovieRepo) UpdateDetailTx(ctx context.Context, tx *sql.Tx, detailID uint64, detail string) error {
	_, err := tx.ExecContext(ctx, "UPDATE movie_details SET detail=? WHERE id=?", detail, detailID)
	return err
}

// Delete removes the movie together with its detail row and genre
// links, atomically.
func (r *MovieRepo) Delete(ctx context.Context, id uint64) error {
	return WithTransaction(ctx, r.DB, func(tx *sql.Tx) error {
		var detailID uint64
		err := tx.QueryRowContext(ctx, "SELECT detail_id FROM movies WHERE id=? LIMIT 1", id).Scan(&detailID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM movie_genres WHERE movie_id=?", id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM movie_user_likes WHERE movie_id=?", id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM movies WHERE id=?", id); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, "DELETE FROM movie_details WHERE id=?", detailID)
		return err
	})
}

// RecomputeReactionCounts refreshes the derived like/dislike counters
// from the like records. The housekeeping task calls this on a
// schedule; toggles never touch the counters synchronously.
func (r *MovieRepo) RecomputeReactionCounts(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, `
		UPDATE movies m SET m.like_count = (
			SELECT COUNT(*) FROM movie_user_likes mul
			WHERE mul.movie_id = m.id AND mul.is_like = TRUE
		)`); err != nil {
		return err
	}
	_, err := r.DB.ExecContext(ctx, `
		UPDATE movies m SET m.dislike_count = (
			SELECT COUNT(*) FROM movie_user_likes mul
			WHERE mul.movie_id = m.id AND mul.is_like = FALSE
		)`)
	return err
}
