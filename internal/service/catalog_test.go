package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moviestream/backend/internal/model"
)

func catalogFixture() (*memMovieStore, *memLikeStore, *CatalogService) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	movies := &memMovieStore{}
	for i := 1; i <= 25; i++ {
		movies.movies = append(movies.movies, model.Movie{
			ID:        uint64(i),
			Title:     fmt.Sprintf("Movie %02d", i),
			LikeCount: uint64(i % 7),
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}
	likes := newMemLikeStore()
	return movies, likes, NewCatalogService(movies, likes)
}

// collectAll walks the catalog page by page until the cursor runs out.
func collectAll(t *testing.T, svc *CatalogService, q PageQuery) []model.Movie {
	t.Helper()
	var out []model.Movie
	for i := 0; ; i++ {
		require.Less(t, i, 100, "pagination did not terminate")
		page, err := svc.FindPage(context.Background(), q)
		require.NoError(t, err)
		out = append(out, page.Data...)
		if page.NextCursor == "" {
			return out
		}
		q.Cursor = page.NextCursor
	}
}

func TestFindPageWalksEveryRowExactlyOnce(t *testing.T) {
	_, _, svc := catalogFixture()

	for _, pageSize := range []int{1, 3, 7, 25, 100} {
		t.Run(fmt.Sprintf("page_size_%d", pageSize), func(t *testing.T) {
			all := collectAll(t, svc, PageQuery{PageSize: pageSize})
			require.Len(t, all, 25)
			seen := map[uint64]bool{}
			for _, m := range all {
				assert.False(t, seen[m.ID], "row %d returned twice", m.ID)
				seen[m.ID] = true
			}
		})
	}
}

func TestFindPageExhaustiveUnderEverySortKey(t *testing.T) {
	_, _, svc := catalogFixture()

	sorts := [][]SortKey{
		{{Field: SortTitle}},
		{{Field: SortLikeCount, Desc: true}},
		{{Field: SortCreatedAt, Desc: true}},
		{{Field: SortLikeCount, Desc: true}, {Field: SortTitle}},
	}
	for _, sort := range sorts {
		all := collectAll(t, svc, PageQuery{PageSize: 4, Sort: sort})
		assert.Len(t, all, 25)
	}
}

func TestFindPageIsDeterministic(t *testing.T) {
	_, _, svc := catalogFixture()
	q := PageQuery{PageSize: 5, Sort: []SortKey{{Field: SortLikeCount, Desc: true}}}

	first, err := svc.FindPage(context.Background(), q)
	require.NoError(t, err)
	second, err := svc.FindPage(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestFindPageTieBreaksOnID(t *testing.T) {
	_, _, svc := catalogFixture()
	// like_count cycles mod 7, so ties are everywhere; ids must ascend
	// within each tied run.
	all := collectAll(t, svc, PageQuery{PageSize: 6, Sort: []SortKey{{Field: SortLikeCount, Desc: true}}})

	for i := 1; i < len(all); i++ {
		if all[i-1].LikeCount == all[i].LikeCount {
			assert.Less(t, all[i-1].ID, all[i].ID)
		}
	}
}

func TestFindPageLastPageHasNoCursor(t *testing.T) {
	_, _, svc := catalogFixture()

	page, err := svc.FindPage(context.Background(), PageQuery{PageSize: 25})
	require.NoError(t, err)
	assert.Len(t, page.Data, 25)
	assert.Empty(t, page.NextCursor, "exact fit must not promise another page")
}

func TestFindPageTitleFilter(t *testing.T) {
	_, _, svc := catalogFixture()

	page, err := svc.FindPage(context.Background(), PageQuery{PageSize: 50, TitleContains: "movie 1"})
	require.NoError(t, err)
	// Movie 10 .. Movie 19.
	assert.Len(t, page.Data, 10)
}

func TestFindPageOverlaysCallerReactions(t *testing.T) {
	_, likes, svc := catalogFixture()
	likes.insert(3, 99, true)
	likes.insert(5, 99, false)
	likes.insert(7, 42, true) // someone else's reaction

	page, err := svc.FindPage(context.Background(), PageQuery{PageSize: 10, UserID: 99})
	require.NoError(t, err)

	byID := map[uint64]*bool{}
	for _, m := range page.Data {
		byID[m.ID] = m.LikeStatus
	}
	require.NotNil(t, byID[3])
	assert.True(t, *byID[3])
	require.NotNil(t, byID[5])
	assert.False(t, *byID[5])
	assert.Nil(t, byID[7], "another user's reaction must not leak")
	assert.Nil(t, byID[1])
}

func TestFindPageAnonymousHasNoOverlay(t *testing.T) {
	_, likes, svc := catalogFixture()
	likes.insert(3, 99, true)

	page, err := svc.FindPage(context.Background(), PageQuery{PageSize: 10})
	require.NoError(t, err)
	for _, m := range page.Data {
		assert.Nil(t, m.LikeStatus)
	}
}

func TestFindPageRejectsBadInput(t *testing.T) {
	_, _, svc := catalogFixture()

	_, err := svc.FindPage(context.Background(), PageQuery{PageSize: 0})
	assert.ErrorIs(t, err, ErrInvalidPageSize)

	_, err = svc.FindPage(context.Background(), PageQuery{PageSize: 5, Sort: []SortKey{{Field: "password_hash"}}})
	assert.ErrorIs(t, err, ErrInvalidSort)

	_, err = svc.FindPage(context.Background(), PageQuery{PageSize: 5, Cursor: "!!!"})
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestFindPageStaleCursorYieldsEmptyPage(t *testing.T) {
	movies, _, svc := catalogFixture()

	// Cursor taken at the end of the set.
	last := movies.movies[len(movies.movies)-1]
	token := EncodeCursor(last, []SortKey{{Field: SortID}})

	page, err := svc.FindPage(context.Background(), PageQuery{PageSize: 5, Cursor: token})
	require.NoError(t, err)
	assert.Empty(t, page.Data)
	assert.Empty(t, page.NextCursor)
}

func TestFindPageCursorFromDifferentSortYieldsEmptyPage(t *testing.T) {
	movies, _, svc := catalogFixture()

	// Token encodes only the id position; replaying it under a title
	// sort lacks the title value and cannot match anything.
	token := EncodeCursor(movies.movies[10], []SortKey{{Field: SortID}})

	page, err := svc.FindPage(context.Background(), PageQuery{
		PageSize: 5,
		Sort:     []SortKey{{Field: SortTitle}},
		Cursor:   token,
	})
	require.NoError(t, err)
	assert.Empty(t, page.Data)
	assert.Empty(t, page.NextCursor)
}
