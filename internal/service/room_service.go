package service

import (
	"context"
	"crypto/rand"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"guessthesong/internal/apperr"
	"guessthesong/internal/cache"
	"guessthesong/internal/clock"
	"guessthesong/internal/metrics"
	"guessthesong/internal/model"
	"guessthesong/internal/repository"
)

var validate = validator.New()

const roomCodeLen = 4

// Presence answers whether a user currently holds a live connection.
type Presence interface {
	HasConnection(userID string) bool
}

// RoomService owns room creation and membership: join, leave, kick and the
// eviction that follows an unrecovered disconnect.
type RoomService struct {
	rooms       repository.RoomRepo
	store       cache.StateStore
	messages    repository.MessageRepo
	leaderboard cache.LeaderboardCache
	broadcaster StateBroadcaster
	presence    Presence
	clock       clock.Clock
	metrics     *metrics.Metrics
	log         *zap.Logger
	defaults    model.RoomSettings
}

func NewRoomService(
	rooms repository.RoomRepo,
	store cache.StateStore,
	messages repository.MessageRepo,
	leaderboard cache.LeaderboardCache,
	broadcaster StateBroadcaster,
	presence Presence,
	clk clock.Clock,
	m *metrics.Metrics,
	log *zap.Logger,
	defaults model.RoomSettings,
) *RoomService {
	return &RoomService{
		rooms:       rooms,
		store:       store,
		messages:    messages,
		leaderboard: leaderboard,
		broadcaster: broadcaster,
		presence:    presence,
		clock:       clk,
		metrics:     m,
		log:         log.Named("rooms"),
		defaults:    defaults,
	}
}

func validateSettings(settings *model.RoomSettings) error {
	if err := validate.Struct(settings); err != nil {
		return apperr.Wrap(apperr.KindInvalidInput, "invalid room settings", err)
	}
	return nil
}

// CreateRoom opens a lobby with the creator as host. Nil settings take the
// configured defaults.
func (s *RoomService) CreateRoom(ctx context.Context, host model.Identity, settings *model.RoomSettings) (*model.RoomState, error) {
	if settings == nil {
		d := s.defaults
		settings = &d
	}
	if err := validateSettings(settings); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	for attempts := 0; attempts < 10; attempts++ {
		code, err := s.generateRoomCode(ctx)
		if err != nil {
			return nil, err
		}

		room := model.Room{
			ID:        uuid.NewString(),
			Code:      code,
			HostID:    host.ID,
			IsActive:  true,
			CreatedAt: now,
		}
		state := &model.RoomState{
			Room:     room,
			Settings: *settings,
			Players: []model.Player{{
				User:     host,
				Role:     model.RoleHost,
				JoinedAt: now,
			}},
			Songs: []model.Song{},
		}

		// The state store is the arbiter of code uniqueness; losing the race retries.
		if err := s.store.Create(ctx, state); err != nil {
			if apperr.KindOf(err) == apperr.KindConflict {
				continue
			}
			return nil, err
		}
		// The live state is already claimed and playable; GetRoom falls back
		// to it when the registry has no record.
		if err := s.rooms.Create(ctx, &room); err != nil {
			s.log.Warn("persist room", zap.String("room", code), zap.Error(err))
		}

		s.log.Info("room created", zap.String("room", code), zap.String("host", host.ID))
		return state, nil
	}
	return nil, ErrCodeExhausted
}

// generateRoomCode draws a code from an alphabet without look-alike characters.
func (s *RoomService) generateRoomCode(ctx context.Context) (string, error) {
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	for attempts := 0; attempts < 10; attempts++ {
		b := make([]byte, roomCodeLen)
		if _, err := rand.Read(b); err != nil {
			return "", err
		}

		code := make([]byte, roomCodeLen)
		for i := range code {
			code[i] = chars[int(b[i])%len(chars)]
		}
		codeStr := string(code)

		exists, err := s.store.Exists(ctx, codeStr)
		if err != nil {
			return "", err
		}
		if !exists {
			return codeStr, nil
		}
	}
	return "", ErrCodeExhausted
}

// GetRoom returns the durable room record, falling back to live state when the
// registry has not seen it.
func (s *RoomService) GetRoom(ctx context.Context, code string) (*model.Room, error) {
	room, err := s.rooms.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if room != nil {
		return room, nil
	}
	state, err := s.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	return &state.Room, nil
}

func (s *RoomService) IsMember(ctx context.Context, code, userID string) (bool, error) {
	state, err := s.store.Get(ctx, code)
	if err != nil {
		return false, err
	}
	return state.IsMember(userID), nil
}

func (s *RoomService) Join(ctx context.Context, code string, user model.Identity) (*model.RoomState, error) {
	state, err := s.store.Update(ctx, code, func(st *model.RoomState) error {
		if !st.Room.IsActive {
			return ErrRoomInactive
		}
		if st.IsMember(user.ID) {
			return ErrAlreadyInRoom
		}
		st.Players = append(st.Players, model.Player{
			User:     user,
			Role:     model.RolePlayer,
			JoinedAt: s.clock.Now(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.systemMessage(ctx, state.Room.ID, user.DisplayName+" joined the room")
	s.broadcaster.Broadcast(ctx, code)
	return state, nil
}

func (s *RoomService) Leave(ctx context.Context, code string, user model.Identity) error {
	var removed model.Player
	state, err := s.store.Update(ctx, code, func(st *model.RoomState) error {
		p, ok := st.RemovePlayer(user.ID)
		if !ok {
			return ErrNotMember
		}
		removed = p
		return nil
	})
	if err != nil {
		return err
	}

	s.afterRemoval(ctx, state, removed, removed.User.DisplayName+" left the room")
	return nil
}

// Kick lets the host remove another player.
func (s *RoomService) Kick(ctx context.Context, code string, acting model.Identity, targetID string) error {
	var removed model.Player
	state, err := s.store.Update(ctx, code, func(st *model.RoomState) error {
		if st.HostID() != acting.ID {
			return ErrNotHost
		}
		if targetID == acting.ID {
			return ErrSelfKick
		}
		p, ok := st.RemovePlayer(targetID)
		if !ok {
			return ErrPlayerNotFound
		}
		removed = p
		return nil
	})
	if err != nil {
		return err
	}

	s.broadcaster.Notify(targetID, EventKicked, map[string]string{"roomCode": code})
	s.afterRemoval(ctx, state, removed, removed.User.DisplayName+" was kicked")
	return nil
}

// RemoveOnDisconnectTimeout runs when a disconnect grace period expires. The
// user is only removed if they are still offline, the room still exists and
// they are still a member; otherwise it does nothing. It reports whether the
// player was removed.
func (s *RoomService) RemoveOnDisconnectTimeout(ctx context.Context, code, userID string) (bool, error) {
	if s.presence.HasConnection(userID) {
		return false, nil
	}

	var removed model.Player
	state, err := s.store.Update(ctx, code, func(st *model.RoomState) error {
		p, ok := st.RemovePlayer(userID)
		if !ok {
			return errNoop
		}
		removed = p
		return nil
	})
	if errors.Is(err, errNoop) || errors.Is(err, cache.ErrRoomNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.metrics.GraceEvictions.Inc()
	s.log.Info("player evicted after disconnect", zap.String("room", code), zap.String("user", userID))
	s.afterRemoval(ctx, state, removed, removed.User.DisplayName+" disconnected")
	return true, nil
}

func (s *RoomService) afterRemoval(ctx context.Context, state *model.RoomState, removed model.Player, note string) {
	if err := s.leaderboard.Remove(ctx, state.Room.Code, removed.User.ID); err != nil {
		s.log.Warn("leaderboard remove", zap.String("room", state.Room.Code), zap.Error(err))
	}
	s.systemMessage(ctx, state.Room.ID, note)
	s.broadcaster.Broadcast(ctx, state.Room.Code)
}

// UpdateSettings is host-only and only allowed before the game starts.
func (s *RoomService) UpdateSettings(ctx context.Context, code string, user model.Identity, settings model.RoomSettings) (*model.RoomState, error) {
	if err := validateSettings(&settings); err != nil {
		return nil, err
	}
	state, err := s.store.Update(ctx, code, func(st *model.RoomState) error {
		if st.HostID() != user.ID {
			return ErrNotHost
		}
		if !st.InLobby() {
			return ErrGameStarted
		}
		st.Settings = settings
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.broadcaster.Broadcast(ctx, code)
	return state, nil
}

// EndRoom closes the room to new joins. A game already running plays out.
func (s *RoomService) EndRoom(ctx context.Context, code string, user model.Identity) error {
	state, err := s.store.Update(ctx, code, func(st *model.RoomState) error {
		if st.HostID() != user.ID {
			return ErrNotHost
		}
		st.Room.IsActive = false
		return nil
	})
	if err != nil {
		return err
	}
	if err := s.rooms.Update(ctx, &state.Room); err != nil {
		s.log.Warn("persist ended room", zap.String("room", code), zap.Error(err))
	}
	s.systemMessage(ctx, state.Room.ID, "The host ended the room")
	s.broadcaster.Broadcast(ctx, code)
	return nil
}

// Leaderboard returns the top players of a room with their display names.
func (s *RoomService) Leaderboard(ctx context.Context, code string, limit int) ([]cache.LeaderboardEntry, error) {
	state, err := s.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}
	entries, err := s.leaderboard.GetTop(ctx, code, limit)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if idx := state.PlayerIndex(entries[i].UserID); idx >= 0 {
			entries[i].DisplayName = state.Players[idx].User.DisplayName
		}
	}
	return entries, nil
}

func (s *RoomService) systemMessage(ctx context.Context, roomID, content string) {
	msg := &model.Message{
		RoomID:    roomID,
		Content:   content,
		Type:      model.MessageSystem,
		CreatedAt: s.clock.Now(),
	}
	if err := s.messages.Append(ctx, msg); err != nil {
		s.log.Warn("append system message", zap.String("roomId", roomID), zap.Error(err))
	}
}
