package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"guessthesong/internal/cache"
	"guessthesong/internal/clock"
	"guessthesong/internal/metrics"
	"guessthesong/internal/model"
)

// DefaultPreRoll is the countdown before every round goes live.
const DefaultPreRoll = 3 * time.Second

const (
	DefaultRetryDelay = time.Second
	maxRetryDelay     = 30 * time.Second
)

var errStale = errors.New("stale transition")

type SchedulerOptions struct {
	PreRoll time.Duration
	// RetryDelay is the first wait before a failed transition is tried again.
	// It doubles per consecutive failure of the same step, up to 30s.
	RetryDelay time.Duration
	// Rand returns values in [0,1) for the reveal hash; nil uses the process source.
	Rand func() float64
	// Shuffle orders the songs for a new game; nil uses a uniform shuffle.
	Shuffle func(songs []model.Song)
}

type roomTimer struct {
	timer clock.Timer
	seq   uint64
}

type stepFunc func(ctx context.Context, roomCode, roundID string)

// Scheduler drives each started room through countdown and playing phases on
// timers. Transitions are keyed by round id, so a timer that fires after the
// room moved on is a no-op. Deadlines live in the persisted rounds, which is
// what lets Resume re-arm a game after a restart.
type Scheduler struct {
	store       cache.StateStore
	broadcaster StateBroadcaster
	clock       clock.Clock
	metrics     *metrics.Metrics
	log         *zap.Logger
	opts        SchedulerOptions

	mu       sync.Mutex
	timers   map[string]roomTimer
	failures map[string]int // consecutive failed transitions per room
	seq      uint64
	stopped  bool
}

func NewScheduler(
	store cache.StateStore,
	broadcaster StateBroadcaster,
	clk clock.Clock,
	m *metrics.Metrics,
	log *zap.Logger,
	opts SchedulerOptions,
) *Scheduler {
	if opts.PreRoll <= 0 {
		opts.PreRoll = DefaultPreRoll
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.Shuffle == nil {
		opts.Shuffle = func(songs []model.Song) {
			rand.Shuffle(len(songs), func(i, j int) { songs[i], songs[j] = songs[j], songs[i] })
		}
	}
	return &Scheduler{
		store:       store,
		broadcaster: broadcaster,
		clock:       clk,
		metrics:     m,
		log:         log.Named("scheduler"),
		opts:        opts,
		timers:      make(map[string]roomTimer),
		failures:    make(map[string]int),
	}
}

func (s *Scheduler) newRound(number int, song model.Song, startedAt time.Time, revealPct int) *model.Round {
	return &model.Round{
		ID:          uuid.NewString(),
		RoundNumber: number,
		Song:        song,
		StartedAt:   startedAt,
		Hash:        RevealHash(song.Title, revealPct, s.opts.Rand),
		Guesses:     []model.Guess{},
	}
}

// StartGame is host-only and only valid from the lobby. It fixes the play order
// and schedules the first round one pre-roll from now.
func (s *Scheduler) StartGame(ctx context.Context, roomCode, userID string) (*model.RoomState, error) {
	var first *model.Round
	state, err := s.store.Update(ctx, roomCode, func(st *model.RoomState) error {
		if st.HostID() != userID {
			return ErrNotHost
		}
		if !st.Room.IsActive {
			return ErrRoomInactive
		}
		if !st.InLobby() {
			return ErrGameStarted
		}
		if len(st.Songs) == 0 {
			return ErrNoSongs
		}

		songs := append([]model.Song(nil), st.Songs...)
		s.opts.Shuffle(songs)
		st.Songs = songs
		st.TotalRounds = len(songs)

		first = s.newRound(1, songs[0], s.clock.Now().Add(s.opts.PreRoll), st.Settings.RevealPercentage)
		st.CountDown = true
		st.IsPlaying = false
		st.Round = nil
		st.NextRound = first
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("game started",
		zap.String("room", roomCode),
		zap.Int("rounds", state.TotalRounds))
	s.broadcaster.Broadcast(ctx, roomCode)
	s.arm(roomCode, first.StartedAt, first.ID, s.activate)
	return state, nil
}

// activate promotes the pending round to the live one.
func (s *Scheduler) activate(ctx context.Context, roomCode, roundID string) {
	var live *model.Round
	state, err := s.store.Update(ctx, roomCode, func(st *model.RoomState) error {
		if !st.CountDown || st.NextRound == nil || st.NextRound.ID != roundID {
			return errStale
		}
		live = st.NextRound
		for i := range st.Songs {
			if st.Songs[i].ID == live.Song.ID {
				st.Songs[i].IsPlayed = true
				live.Song.IsPlayed = true
			}
		}
		st.Round = live
		st.NextRound = nil
		st.IsPlaying = true
		st.CountDown = false
		return nil
	})
	if err != nil {
		s.transitionFailed(roomCode, roundID, "activate", s.activate, err)
		return
	}
	s.transitionDone(roomCode)

	s.metrics.RoundsStarted.Inc()
	s.log.Debug("round live",
		zap.String("room", roomCode),
		zap.Int("round", live.RoundNumber))
	s.broadcaster.Broadcast(ctx, roomCode)
	s.arm(roomCode, live.EndsAt(state.Settings.TimePerSong), live.ID, s.advance)
}

// advance ends the live round and either finishes the game or counts down
// into the next one. The next round starts one pre-roll after this one's song
// ends, so every round occupies timePerSong plus the pre-roll.
func (s *Scheduler) advance(ctx context.Context, roomCode, roundID string) {
	var next *model.Round
	_, err := s.store.Update(ctx, roomCode, func(st *model.RoomState) error {
		if !st.IsPlaying || st.Round == nil || st.Round.ID != roundID {
			return errStale
		}
		last := st.Round
		st.Round = nil
		next = nil

		if last.RoundNumber >= st.TotalRounds || last.RoundNumber >= len(st.Songs) {
			st.IsPlaying = false
			st.CountDown = false
			st.NextRound = nil
			return nil
		}

		startAt := last.EndsAt(st.Settings.TimePerSong).Add(s.opts.PreRoll)
		next = s.newRound(last.RoundNumber+1, st.Songs[last.RoundNumber], startAt, st.Settings.RevealPercentage)
		st.IsPlaying = false
		st.CountDown = true
		st.NextRound = next
		return nil
	})
	if err != nil {
		s.transitionFailed(roomCode, roundID, "advance", s.advance, err)
		return
	}
	s.transitionDone(roomCode)

	s.broadcaster.Broadcast(ctx, roomCode)
	if next == nil {
		s.metrics.GamesFinished.Inc()
		s.log.Info("game finished", zap.String("room", roomCode))
		return
	}
	s.arm(roomCode, next.StartedAt, next.ID, s.activate)
}

// transitionFailed re-arms a step whose store update failed, so a transient
// store error delays the game instead of leaving it stuck mid-round. Stale
// steps and rooms that no longer exist are dropped.
func (s *Scheduler) transitionFailed(roomCode, roundID, step string, retry stepFunc, err error) {
	if errors.Is(err, errStale) {
		s.log.Debug("stale transition", zap.String("room", roomCode), zap.String("step", step))
		s.transitionDone(roomCode)
		return
	}
	if errors.Is(err, cache.ErrRoomNotFound) {
		s.log.Warn("room vanished mid-game", zap.String("room", roomCode), zap.String("step", step))
		s.transitionDone(roomCode)
		return
	}

	s.mu.Lock()
	s.failures[roomCode]++
	attempt := s.failures[roomCode]
	s.mu.Unlock()

	delay := s.opts.RetryDelay
	for i := 1; i < attempt && delay < maxRetryDelay; i++ {
		delay *= 2
	}
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	s.log.Error("transition failed, retrying",
		zap.String("room", roomCode),
		zap.String("round", roundID),
		zap.String("step", step),
		zap.Int("attempt", attempt),
		zap.Duration("retryIn", delay),
		zap.Error(err))
	s.arm(roomCode, s.clock.Now().Add(delay), roundID, retry)
}

func (s *Scheduler) transitionDone(roomCode string) {
	s.mu.Lock()
	delete(s.failures, roomCode)
	s.mu.Unlock()
}

// arm schedules step for the room at the given time, replacing whatever was
// pending for that room. Overdue deadlines fire immediately.
func (s *Scheduler) arm(roomCode string, at time.Time, roundID string, step stepFunc) {
	delay := at.Sub(s.clock.Now())
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if prev, ok := s.timers[roomCode]; ok {
		prev.timer.Stop()
	}
	s.seq++
	seq := s.seq
	t := s.clock.AfterFunc(delay, func() {
		s.mu.Lock()
		if cur, ok := s.timers[roomCode]; ok && cur.seq == seq {
			delete(s.timers, roomCode)
		}
		stopped := s.stopped
		s.mu.Unlock()
		if stopped {
			return
		}
		step(context.Background(), roomCode, roundID)
	})
	s.timers[roomCode] = roomTimer{timer: t, seq: seq}
}

// Resume re-arms the pending transition of a room from its persisted deadlines.
// It reports whether the room had a game in progress.
func (s *Scheduler) Resume(ctx context.Context, roomCode string) (bool, error) {
	st, err := s.store.Get(ctx, roomCode)
	if err != nil {
		return false, err
	}
	switch st.Phase() {
	case model.PhaseCountdown:
		if st.NextRound == nil {
			return false, nil
		}
		s.arm(roomCode, st.NextRound.StartedAt, st.NextRound.ID, s.activate)
		return true, nil
	case model.PhasePlaying:
		if st.Round == nil {
			return false, nil
		}
		s.arm(roomCode, st.Round.EndsAt(st.Settings.TimePerSong), st.Round.ID, s.advance)
		return true, nil
	default:
		return false, nil
	}
}

// ResumeAll re-arms every stored game that was in progress when the previous
// process stopped and returns how many were resumed.
func (s *Scheduler) ResumeAll(ctx context.Context) (int, error) {
	codes, err := s.store.Codes(ctx)
	if err != nil {
		return 0, err
	}
	resumed := 0
	for _, code := range codes {
		ok, err := s.Resume(ctx, code)
		if err != nil {
			s.log.Warn("resume failed", zap.String("room", code), zap.Error(err))
			continue
		}
		if ok {
			resumed++
		}
	}
	return resumed, nil
}

// Pending reports whether a transition is scheduled for the room.
func (s *Scheduler) Pending(roomCode string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[roomCode]
	return ok
}

// Stop cancels every pending transition. The persisted deadlines remain for
// the next process to resume.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for code, t := range s.timers {
		t.timer.Stop()
		delete(s.timers, code)
	}
}
