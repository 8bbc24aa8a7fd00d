package service

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/moviestream/backend/internal/model"
)

// memMovieStore is an in-memory MovieStore that reproduces the SQL
// repository's ordering and cursor semantics.
type memMovieStore struct {
	movies []model.Movie
}

func (m *memMovieStore) FindByID(_ context.Context, id uint64) (model.Movie, error) {
	for _, mv := range m.movies {
		if mv.ID == id {
			return mv, nil
		}
	}
	return model.Movie{}, sql.ErrNoRows
}

func (m *memMovieStore) Find(_ context.Context, q MovieQuery) ([]model.Movie, error) {
	rows := make([]model.Movie, 0, len(m.movies))
	for _, mv := range m.movies {
		if q.TitleContains != "" &&
			!strings.Contains(strings.ToLower(mv.Title), strings.ToLower(q.TitleContains)) {
			continue
		}
		rows = append(rows, mv)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return compareMovies(rows[i], rows[j], q.Sort) < 0
	})

	if q.After != nil {
		kept := rows[:0]
		for _, mv := range rows {
			after, ok := afterCursor(mv, q.After, q.Sort)
			if ok && after {
				kept = append(kept, mv)
			}
		}
		rows = kept
	}

	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	return rows, nil
}

// compareMovies orders a before b under the sort keys, honoring the
// per-key direction.
func compareMovies(a, b model.Movie, keys []SortKey) int {
	for _, k := range keys {
		c := compareField(a, b, k.Field)
		if c == 0 {
			continue
		}
		if k.Desc {
			return -c
		}
		return c
	}
	return 0
}

func compareField(a, b model.Movie, field string) int {
	switch field {
	case SortID:
		return cmpUint(a.ID, b.ID)
	case SortTitle:
		return strings.Compare(a.Title, b.Title)
	case SortLikeCount:
		return cmpUint(a.LikeCount, b.LikeCount)
	case SortCreatedAt:
		return cmpTime(a.CreatedAt, b.CreatedAt)
	}
	return 0
}

func cmpUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

// afterCursor reports whether mv sits strictly after the cursor
// position. Keys whose value is absent from the cursor make the whole
// comparison fail, mirroring the repository's empty-page behavior.
func afterCursor(mv model.Movie, pos *PageCursor, keys []SortKey) (bool, bool) {
	for _, k := range keys {
		cv, ok := cursorField(pos, k.Field)
		if !ok {
			return false, false
		}
		c := compareField(mv, cv, k.Field)
		if k.Desc {
			c = -c
		}
		if c != 0 {
			return c > 0, true
		}
	}
	return false, true
}

// cursorField projects the cursor position into a movie so the same
// field comparison applies to both.
func cursorField(pos *PageCursor, field string) (model.Movie, bool) {
	switch field {
	case SortID:
		return model.Movie{ID: pos.ID}, true
	case SortTitle:
		if pos.Title == nil {
			return model.Movie{}, false
		}
		return model.Movie{Title: *pos.Title}, true
	case SortLikeCount:
		if pos.LikeCount == nil {
			return model.Movie{}, false
		}
		return model.Movie{LikeCount: *pos.LikeCount}, true
	case SortCreatedAt:
		if pos.CreatedAt == nil {
			return model.Movie{}, false
		}
		return model.Movie{CreatedAt: *pos.CreatedAt}, true
	}
	return model.Movie{}, false
}

// memLikeStore is an in-memory LikeStore enforcing the (movie, user)
// uniqueness constraint. beforeCreate runs under the lock just before
// the uniqueness check, simulating a concurrent insert winning the
// race.
type memLikeStore struct {
	mu           sync.Mutex
	nextID       uint64
	records      map[uint64]model.MovieUserLike
	beforeCreate func(s *memLikeStore)
}

func newMemLikeStore() *memLikeStore {
	return &memLikeStore{nextID: 1, records: map[uint64]model.MovieUserLike{}}
}

func (s *memLikeStore) FindByMovieAndUser(_ context.Context, movieID, userID uint64) (model.MovieUserLike, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.MovieID == movieID && r.UserID == userID {
			return r, nil
		}
	}
	return model.MovieUserLike{}, sql.ErrNoRows
}

func (s *memLikeStore) FindForMovies(_ context.Context, userID uint64, movieIDs []uint64) (map[uint64]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := map[uint64]bool{}
	for _, id := range movieIDs {
		want[id] = true
	}
	out := map[uint64]bool{}
	for _, r := range s.records {
		if r.UserID == userID && want[r.MovieID] {
			out[r.MovieID] = r.IsLike
		}
	}
	return out, nil
}

func (s *memLikeStore) Create(_ context.Context, movieID, userID uint64, isLike bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.beforeCreate != nil {
		hook := s.beforeCreate
		s.beforeCreate = nil
		hook(s)
	}
	for _, r := range s.records {
		if r.MovieID == movieID && r.UserID == userID {
			return ErrDuplicate
		}
	}
	s.insert(movieID, userID, isLike)
	return nil
}

// insert bypasses the uniqueness check for test setup and race hooks.
// Callers must hold the lock or be single-threaded.
func (s *memLikeStore) insert(movieID, userID uint64, isLike bool) {
	s.records[s.nextID] = model.MovieUserLike{ID: s.nextID, MovieID: movieID, UserID: userID, IsLike: isLike}
	s.nextID++
}

func (s *memLikeStore) UpdateIsLike(_ context.Context, id uint64, isLike bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return sql.ErrNoRows
	}
	r.IsLike = isLike
	s.records[id] = r
	return nil
}

func (s *memLikeStore) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.records, id)
	return nil
}

// memUserStore is a fixed user table.
type memUserStore struct {
	users []model.User
}

func (s *memUserStore) FindByID(_ context.Context, id uint64) (model.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, sql.ErrNoRows
}

func (s *memUserStore) FindFirstAdmin(_ context.Context) (model.User, error) {
	var best model.User
	for _, u := range s.users {
		if u.Role != model.RoleAdmin {
			continue
		}
		if best.ID == 0 || u.ID < best.ID {
			best = u
		}
	}
	if best.ID == 0 {
		return model.User{}, sql.ErrNoRows
	}
	return best, nil
}

// memChatStore backs the chat provisioner with maps. The "transaction"
// is a plain mutex scope; rollback is not simulated beyond surfacing
// the callback error.
type memChatStore struct {
	mu         sync.Mutex
	users      *memUserStore
	nextRoomID uint64
	nextChatID uint64
	rooms      map[uint64]model.ChatRoom
	chats      []model.Chat
	// beforeCreateRoom runs inside CreateRoom before the uniqueness
	// check, simulating a concurrent winner.
	beforeCreateRoom func(s *memChatStore)
}

func newMemChatStore(users *memUserStore) *memChatStore {
	return &memChatStore{users: users, nextRoomID: 1, nextChatID: 1, rooms: map[uint64]model.ChatRoom{}}
}

func (s *memChatStore) WithTransaction(_ context.Context, fn func(tx ChatTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(memChatTx{s})
}

func (s *memChatStore) RoomsForUser(_ context.Context, userID uint64) ([]model.ChatRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ChatRoom
	for _, r := range s.rooms {
		if r.UserID == userID || r.AdminID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// insertRoom bypasses the tx surface for test setup and race hooks.
func (s *memChatStore) insertRoom(userID, adminID uint64) model.ChatRoom {
	room := model.ChatRoom{ID: s.nextRoomID, UserID: userID, AdminID: adminID}
	s.nextRoomID++
	s.rooms[room.ID] = room
	return room
}

type memChatTx struct{ s *memChatStore }

func (t memChatTx) FindUser(ctx context.Context, id uint64) (model.User, error) {
	return t.s.users.FindByID(ctx, id)
}

func (t memChatTx) FindFirstAdmin(ctx context.Context) (model.User, error) {
	return t.s.users.FindFirstAdmin(ctx)
}

func (t memChatTx) FindRoomByID(_ context.Context, id uint64) (model.ChatRoom, error) {
	if r, ok := t.s.rooms[id]; ok {
		return r, nil
	}
	return model.ChatRoom{}, sql.ErrNoRows
}

func (t memChatTx) FindRoomByMember(_ context.Context, userID uint64) (model.ChatRoom, error) {
	var ids []uint64
	for id := range t.s.rooms {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		r := t.s.rooms[id]
		if r.UserID == userID || r.AdminID == userID {
			return r, nil
		}
	}
	return model.ChatRoom{}, sql.ErrNoRows
}

func (t memChatTx) CreateRoom(_ context.Context, userID, adminID uint64) (model.ChatRoom, error) {
	if t.s.beforeCreateRoom != nil {
		hook := t.s.beforeCreateRoom
		t.s.beforeCreateRoom = nil
		hook(t.s)
	}
	for _, r := range t.s.rooms {
		if r.UserID == userID {
			return model.ChatRoom{}, ErrDuplicate
		}
	}
	return t.s.insertRoom(userID, adminID), nil
}

func (t memChatTx) CreateChat(_ context.Context, roomID, authorID uint64, message string) (model.Chat, error) {
	chat := model.Chat{ID: t.s.nextChatID, ChatRoomID: roomID, AuthorID: authorID, Message: message}
	t.s.nextChatID++
	t.s.chats = append(t.s.chats, chat)
	return chat, nil
}

// recordingNotifier captures fan-out calls for assertions.
type recordingNotifier struct {
	created  []model.ChatRoom
	messages []model.Chat
	rooms    []model.ChatRoom
	echoes   []bool
}

func (n *recordingNotifier) RoomCreated(room model.ChatRoom) {
	n.created = append(n.created, room)
}

func (n *recordingNotifier) NewMessage(room model.ChatRoom, chat model.Chat, echoSender bool) {
	n.rooms = append(n.rooms, room)
	n.messages = append(n.messages, chat)
	n.echoes = append(n.echoes, echoSender)
}
