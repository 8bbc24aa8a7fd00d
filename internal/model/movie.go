package model

import "time"

// Movie mirrors the `movies` table.  LikeCount and DislikeCount are
// derived aggregates recomputed periodically from movie_user_likes by
// the housekeeping task; they may lag recent toggles.
type Movie struct {
	ID           uint64    `json:"id"`
	Title        string    `json:"title"`
	DetailID     uint64    `json:"-"`
	DirectorID   uint64    `json:"director_id"`
	CreatorID    uint64    `json:"-"`
	FilePath     string    `json:"file_path"`
	LikeCount    uint64    `json:"like_count"`
	DislikeCount uint64    `json:"dislike_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Populated relations.  Detail and Director are filled on single-movie
	// reads; Genres on both single reads and listing pages.
	Detail   string   `json:"detail,omitempty"`
	Director *Director `json:"director,omitempty"`
	Genres   []Genre   `json:"genres,omitempty"`

	// LikeStatus is the requesting user's reaction overlay: true = liked,
	// false = disliked, nil = no reaction or anonymous request.
	LikeStatus *bool `json:"like_status"`
}

// MovieDetail mirrors the `movie_details` table (long-form description
// kept out of the hot listing path).
type MovieDetail struct {
	ID     uint64 `json:"id"`
	Detail string `json:"detail"`
}

// MovieUserLike mirrors the `movie_user_likes` table.  The pair
// (MovieID, UserID) is unique: at most one reaction per user per movie.
type MovieUserLike struct {
	ID      uint64 `json:"id"`
	MovieID uint64 `json:"movie_id"`
	UserID  uint64 `json:"user_id"`
	IsLike  bool   `json:"is_like"`
}

// Director mirrors the `directors` table.
type Director struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	DateOfBirth time.Time `json:"dob"`
	Nationality string    `json:"nationality"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Genre mirrors the `genres` table.  Name is unique.
type Genre struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
