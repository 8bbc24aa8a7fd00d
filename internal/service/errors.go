// Package service implements the business core: the cursor-paginated
// movie catalog, the like/dislike toggle, and the chat room
// provisioner. Engines depend on small store interfaces defined here
// and satisfied by the SQL repositories; row absence is reported as
// sql.ErrNoRows throughout, matching the repository layer.
package service

import "errors"

// ErrMovieNotFound is returned when a toggle targets a movie id with no
// row behind it. Mapped to a bad-input response like the original
// toggle endpoint.
var ErrMovieNotFound = errors.New("movie does not exist")

// ErrUserNotFound is returned when the acting user id does not resolve
// to a user record. Mapped to an unauthorized response.
var ErrUserNotFound = errors.New("user does not exist")

// ErrRoomNotFound is returned when an admin addresses a chat room id
// that does not exist.
var ErrRoomNotFound = errors.New("chat room does not exist")

// ErrRoomRequired is returned when an admin sends a chat message
// without naming a room. Admins participate in many rooms, so the
// target can never be inferred.
var ErrRoomRequired = errors.New("admins must provide a room id")

// ErrNoAdmin is returned when a first-contact message cannot be paired
// because no admin user exists.
var ErrNoAdmin = errors.New("no admin user available for chat pairing")

// ErrEmptyMessage rejects blank chat messages before any write.
var ErrEmptyMessage = errors.New("message must not be empty")

// ErrInvalidCursor is returned for a syntactically corrupt page cursor.
// A well-formed cursor pointing past the end of the data set is not an
// error; it yields an empty page.
var ErrInvalidCursor = errors.New("invalid page cursor")

// ErrInvalidPageSize rejects page sizes below 1.
var ErrInvalidPageSize = errors.New("page size must be at least 1")

// ErrInvalidSort rejects sort keys outside the whitelisted fields.
var ErrInvalidSort = errors.New("unsupported sort field")

// ErrDuplicate signals a unique-constraint violation to the engines.
// The repositories translate MySQL duplicate-key errors into this
// value; the toggle and get-or-create paths recover from it by
// re-reading instead of failing.
var ErrDuplicate = errors.New("duplicate record")
