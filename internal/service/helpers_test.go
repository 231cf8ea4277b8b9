package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"guessthesong/internal/cache"
	"guessthesong/internal/clock"
	"guessthesong/internal/metrics"
	"guessthesong/internal/model"
	"guessthesong/internal/repository"
)

type recordingBroadcaster struct {
	store cache.StateStore

	mu       sync.Mutex
	calls    map[string]int
	last     map[string]*model.RoomState
	notified []string
}

func newRecordingBroadcaster(store cache.StateStore) *recordingBroadcaster {
	return &recordingBroadcaster{
		store: store,
		calls: make(map[string]int),
		last:  make(map[string]*model.RoomState),
	}
}

func (r *recordingBroadcaster) Broadcast(ctx context.Context, code string) {
	st, _ := r.store.Get(ctx, code)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[code]++
	r.last[code] = st
}

func (r *recordingBroadcaster) Notify(userID, eventType string, _ interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notified = append(r.notified, eventType+":"+userID)
}

func (r *recordingBroadcaster) count(code string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[code]
}

type fakePresence struct {
	mu     sync.Mutex
	online map[string]bool
}

func (p *fakePresence) set(userID string, online bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online[userID] = online
}

func (p *fakePresence) HasConnection(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online[userID]
}

var (
	host   = model.Identity{ID: "host", DisplayName: "Hosty"}
	alice  = model.Identity{ID: "alice", DisplayName: "Alice"}
	bob    = model.Identity{ID: "bob", DisplayName: "Bob"}
	epoch  = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	noMask = func() float64 { return 0.999 }
)

type fixture struct {
	t        *testing.T
	ctx      context.Context
	clock    *clock.Fake
	store    cache.StateStore
	roomRepo repository.RoomRepo
	messages repository.MessageRepo
	lb       cache.LeaderboardCache
	bc       *recordingBroadcaster
	presence *fakePresence
	metrics  *metrics.Metrics

	rooms   *RoomService
	songs   *SongService
	guesses *GuessService
	sched   *Scheduler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:        t,
		ctx:      context.Background(),
		clock:    clock.NewFake(epoch),
		store:    cache.NewMemoryStore(),
		roomRepo: repository.NewMemoryRoomRepo(),
		messages: repository.NewMemoryMessageRepo(),
		lb:       cache.NewMemoryLeaderboard(),
		presence: &fakePresence{online: make(map[string]bool)},
		metrics:  metrics.New(),
	}
	f.bc = newRecordingBroadcaster(f.store)
	log := zap.NewNop()
	defaults := model.RoomSettings{SongsPerPlayer: 2, TimePerSong: 10, RevealPercentage: 20}

	f.rooms = NewRoomService(f.roomRepo, f.store, f.messages, f.lb, f.bc, f.presence, f.clock, f.metrics, log, defaults)
	f.songs = NewSongService(f.store, f.bc, log)
	f.guesses = NewGuessService(f.store, f.messages, f.lb, f.bc, f.clock, f.metrics, log)
	f.sched = NewScheduler(f.store, f.bc, f.clock, f.metrics, log, SchedulerOptions{
		PreRoll: 3 * time.Second,
		Rand:    noMask,
		Shuffle: func([]model.Song) {},
	})
	return f
}

// lobby creates a room hosted by host with alice joined.
func (f *fixture) lobby() string {
	f.t.Helper()
	st, err := f.rooms.CreateRoom(f.ctx, host, nil)
	require.NoError(f.t, err)
	_, err = f.rooms.Join(f.ctx, st.Room.Code, alice)
	require.NoError(f.t, err)
	return st.Room.Code
}

// withSongs adds one song for host and one for alice.
func (f *fixture) withSongs(code string) {
	f.t.Helper()
	_, err := f.songs.AddSong(f.ctx, code, host, model.CatalogTrack{Title: "Yellow Submarine", Artist: "The Beatles", SourceID: "1"})
	require.NoError(f.t, err)
	_, err = f.songs.AddSong(f.ctx, code, alice, model.CatalogTrack{Title: "Bohemian Rhapsody", Artist: "Queen", SourceID: "2"})
	require.NoError(f.t, err)
}

func (f *fixture) state(code string) *model.RoomState {
	f.t.Helper()
	st, err := f.store.Get(f.ctx, code)
	require.NoError(f.t, err)
	return st
}
