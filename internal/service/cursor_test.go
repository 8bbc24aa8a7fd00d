package service

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moviestream/backend/internal/model"
)

func TestEncodeCursorCarriesSortFields(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := model.Movie{ID: 42, Title: "Stalker", LikeCount: 7, CreatedAt: created}

	token := EncodeCursor(m, []SortKey{
		{Field: SortLikeCount, Desc: true},
		{Field: SortTitle},
		{Field: SortID},
	})
	require.NotEmpty(t, token)

	pos, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), pos.ID)
	require.NotNil(t, pos.Title)
	assert.Equal(t, "Stalker", *pos.Title)
	require.NotNil(t, pos.LikeCount)
	assert.Equal(t, uint64(7), *pos.LikeCount)
	// created_at was not a sort key, so it is not encoded.
	assert.Nil(t, pos.CreatedAt)
}

func TestDecodeCursorEmptyTokenMeansFirstPage(t *testing.T) {
	pos, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, pos)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	cases := map[string]string{
		"not base64": "%%%not-base64%%%",
		"not json":   base64.URLEncoding.EncodeToString([]byte("not json")),
		"missing id": base64.URLEncoding.EncodeToString([]byte(`{"title":"x"}`)),
		"zero id":    base64.URLEncoding.EncodeToString([]byte(`{"id":0}`)),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeCursor(token)
			assert.ErrorIs(t, err, ErrInvalidCursor)
		})
	}
}

func TestCursorRoundTripPreservesTimestamps(t *testing.T) {
	created := time.Date(2023, 11, 30, 8, 45, 13, 0, time.UTC)
	m := model.Movie{ID: 9, CreatedAt: created}

	pos, err := DecodeCursor(EncodeCursor(m, []SortKey{{Field: SortCreatedAt, Desc: true}, {Field: SortID}}))
	require.NoError(t, err)
	require.NotNil(t, pos.CreatedAt)
	assert.True(t, pos.CreatedAt.Equal(created))
}
