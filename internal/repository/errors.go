// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios without parsing driver messages. Row absence is reported
// as sql.ErrNoRows, matching the database/sql convention used by
// every lookup in this package.
package repository

import (
	"errors"
	"strings"

	"github.com/moviestream/backend/internal/service"
)

// ErrEmailExists is returned when user creation hits the unique email
// constraint. Handlers should translate this into an HTTP 409 response.
var ErrEmailExists = errors.New("email already exists")

// ErrDuplicate is returned when an insert violates a unique constraint
// (movie title, genre name, like record, room membership). It is the
// service-layer sentinel so the toggle and get-or-create engines can
// recover from it by re-reading; everyone else surfaces it as a
// conflict.
var ErrDuplicate = service.ErrDuplicate

// isDuplicateKey reports whether the MySQL driver error is a unique key
// violation (error 1062).
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "1062")
}
