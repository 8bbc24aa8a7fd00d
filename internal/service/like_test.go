package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moviestream/backend/internal/model"
)

func likeFixture() (*memLikeStore, *LikeService) {
	movies := &memMovieStore{movies: []model.Movie{{ID: 1, Title: "Solaris"}}}
	users := &memUserStore{users: []model.User{
		{ID: 10, Email: "viewer@example.com", Role: model.RoleUser},
	}}
	likes := newMemLikeStore()
	return likes, NewLikeService(movies, users, likes)
}

func TestToggleFirstReactionCreatesRecord(t *testing.T) {
	_, svc := likeFixture()

	status, err := svc.Toggle(context.Background(), 1, 10, true)
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.True(t, *status)
}

func TestToggleSameReactionClears(t *testing.T) {
	likes, svc := likeFixture()

	_, err := svc.Toggle(context.Background(), 1, 10, true)
	require.NoError(t, err)
	status, err := svc.Toggle(context.Background(), 1, 10, true)
	require.NoError(t, err)
	assert.Nil(t, status)
	assert.Empty(t, likes.records)
}

func TestToggleOppositeReactionSwitchesInPlace(t *testing.T) {
	likes, svc := likeFixture()

	_, err := svc.Toggle(context.Background(), 1, 10, true)
	require.NoError(t, err)
	status, err := svc.Toggle(context.Background(), 1, 10, false)
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.False(t, *status)
	// Switched, not recreated: still exactly one record.
	assert.Len(t, likes.records, 1)
}

// A like, a dislike, and a like again must land back on like with a
// single record throughout.
func TestToggleSequenceNeverLeavesTwoRecords(t *testing.T) {
	likes, svc := likeFixture()
	ctx := context.Background()

	for _, want := range []bool{true, false, true} {
		_, err := svc.Toggle(ctx, 1, 10, want)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(likes.records), 1)
	}
	status, err := svc.Toggle(ctx, 1, 10, true)
	require.NoError(t, err)
	assert.Nil(t, status, "repeating the standing reaction clears it")
}

func TestToggleRecoversFromLostInsertRace(t *testing.T) {
	likes, svc := likeFixture()

	// A concurrent request inserts the same pair just before our create
	// hits the unique key.
	likes.beforeCreate = func(s *memLikeStore) { s.insert(1, 10, true) }

	status, err := svc.Toggle(context.Background(), 1, 10, true)
	require.NoError(t, err)
	// The racing record carried the same reaction, so our toggle
	// cleared it.
	assert.Nil(t, status)
	assert.Empty(t, likes.records)
}

func TestToggleRaceWithOppositeReactionSwitches(t *testing.T) {
	likes, svc := likeFixture()
	likes.beforeCreate = func(s *memLikeStore) { s.insert(1, 10, false) }

	status, err := svc.Toggle(context.Background(), 1, 10, true)
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.True(t, *status)
	assert.Len(t, likes.records, 1)
}

func TestToggleUnknownMovie(t *testing.T) {
	_, svc := likeFixture()

	_, err := svc.Toggle(context.Background(), 999, 10, true)
	assert.ErrorIs(t, err, ErrMovieNotFound)
}

func TestToggleUnknownUser(t *testing.T) {
	_, svc := likeFixture()

	_, err := svc.Toggle(context.Background(), 1, 999, true)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
