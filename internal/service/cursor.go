package service

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/moviestream/backend/internal/model"
)

// SortKey names a sortable movie column and its direction.
type SortKey struct {
	Field string
	Desc  bool
}

// Sortable movie fields. The primary key is always appended ascending
// as the final tie-breaker, which keeps every ordering total and makes
// cursors unambiguous.
const (
	SortID        = "id"
	SortTitle     = "title"
	SortLikeCount = "like_count"
	SortCreatedAt = "created_at"
)

var sortableFields = map[string]bool{
	SortID:        true,
	SortTitle:     true,
	SortLikeCount: true,
	SortCreatedAt: true,
}

// PageCursor records the sort position of the last row of a page. Only
// the fields named by the page's sort keys are populated; ID is always
// present. The client-facing form is the base64 token produced by
// EncodeCursor, treated as opaque.
type PageCursor struct {
	ID        uint64     `json:"id"`
	Title     *string    `json:"title,omitempty"`
	LikeCount *uint64    `json:"like_count,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// EncodeCursor serializes the sort position of m under the given sort
// keys into an opaque URL-safe token.
func EncodeCursor(m model.Movie, sort []SortKey) string {
	pos := PageCursor{ID: m.ID}
	for _, k := range sort {
		switch k.Field {
		case SortTitle:
			t := m.Title
			pos.Title = &t
		case SortLikeCount:
			n := m.LikeCount
			pos.LikeCount = &n
		case SortCreatedAt:
			ts := m.CreatedAt
			pos.CreatedAt = &ts
		}
	}
	raw, err := json.Marshal(pos)
	if err != nil {
		return ""
	}
	return base64.URLEncoding.EncodeToString(raw)
}

// DecodeCursor parses a token produced by EncodeCursor. An empty token
// decodes to nil (first page); a malformed one returns ErrInvalidCursor.
func DecodeCursor(token string) (*PageCursor, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	var pos PageCursor
	if err := json.Unmarshal(raw, &pos); err != nil {
		return nil, ErrInvalidCursor
	}
	if pos.ID == 0 {
		return nil, ErrInvalidCursor
	}
	return &pos, nil
}
