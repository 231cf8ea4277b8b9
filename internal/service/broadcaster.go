package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"guessthesong/internal/cache"
	"guessthesong/internal/clock"
	"guessthesong/internal/metrics"
	"guessthesong/internal/model"
	"guessthesong/internal/repository"
)

// Pusher delivers serialized events to a user's live connection. Implemented
// by the websocket hub; kept here to avoid an import cycle.
type Pusher interface {
	Push(userID string, data []byte) error
	HasConnection(userID string) bool
}

// StateBroadcaster is what the game services need from BroadcastService.
type StateBroadcaster interface {
	Broadcast(ctx context.Context, roomCode string)
	Notify(userID string, eventType string, payload interface{})
}

const (
	EventGameState = "gameState"
	EventKicked    = "kicked"
)

// ISO8601 with millisecond precision, as browsers print it.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Envelope is the frame pushed to clients.
type Envelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type GameStatePayload struct {
	GameState model.GameState `json:"gameState"`
	Timestamp string          `json:"timestamp"`
}

// BroadcastService recomputes a room's GameState and fans it out to every
// connected member.
type BroadcastService struct {
	store    cache.StateStore
	messages repository.MessageRepo
	pusher   Pusher
	clock    clock.Clock
	metrics  *metrics.Metrics
	log      *zap.Logger
	history  int
}

func NewBroadcastService(
	store cache.StateStore,
	messages repository.MessageRepo,
	pusher Pusher,
	clk clock.Clock,
	m *metrics.Metrics,
	log *zap.Logger,
	history int,
) *BroadcastService {
	return &BroadcastService{
		store:    store,
		messages: messages,
		pusher:   pusher,
		clock:    clk,
		metrics:  m,
		log:      log.Named("broadcast"),
		history:  history,
	}
}

// GameState builds the snapshot fresh from the store. It is also the
// full-refetch path for reconnecting clients. Chat history is secondary: if it
// cannot be read the snapshot goes out without it.
func (b *BroadcastService) GameState(ctx context.Context, roomCode string) (*model.GameState, error) {
	state, err := b.store.Get(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	msgs, err := b.messages.Recent(ctx, state.Room.ID, b.history)
	if err != nil {
		b.log.Warn("load messages", zap.String("room", roomCode), zap.Error(err))
		msgs = []model.Message{}
	}
	gs := state.Snapshot(msgs)
	return &gs, nil
}

func (b *BroadcastService) frame(gs *model.GameState) ([]byte, error) {
	return json.Marshal(Envelope{
		Type: EventGameState,
		Payload: GameStatePayload{
			GameState: *gs,
			Timestamp: b.clock.Now().UTC().Format(timestampLayout),
		},
	})
}

// Broadcast pushes the current state to each connected player. Nothing is
// returned: a failure to reach one player never affects the others or the caller.
func (b *BroadcastService) Broadcast(ctx context.Context, roomCode string) {
	gs, err := b.GameState(ctx, roomCode)
	if err != nil {
		b.log.Warn("skip broadcast", zap.String("room", roomCode), zap.Error(err))
		return
	}
	data, err := b.frame(gs)
	if err != nil {
		b.log.Error("encode game state", zap.String("room", roomCode), zap.Error(err))
		return
	}
	b.metrics.Broadcasts.Inc()

	for _, p := range gs.Players {
		if !b.pusher.HasConnection(p.User.ID) {
			continue
		}
		if err := b.pusher.Push(p.User.ID, data); err != nil {
			b.log.Warn("push failed",
				zap.String("room", roomCode),
				zap.String("user", p.User.ID),
				zap.Error(err))
		}
	}
}

// SendState pushes the current state to a single user, used right after a
// connection registers.
func (b *BroadcastService) SendState(ctx context.Context, roomCode, userID string) error {
	gs, err := b.GameState(ctx, roomCode)
	if err != nil {
		return err
	}
	data, err := b.frame(gs)
	if err != nil {
		return err
	}
	return b.pusher.Push(userID, data)
}

// Notify sends a one-off event to a single user, best effort.
func (b *BroadcastService) Notify(userID string, eventType string, payload interface{}) {
	if !b.pusher.HasConnection(userID) {
		return
	}
	data, err := json.Marshal(Envelope{Type: eventType, Payload: payload})
	if err != nil {
		b.log.Error("encode event", zap.String("type", eventType), zap.Error(err))
		return
	}
	if err := b.pusher.Push(userID, data); err != nil {
		b.log.Warn("push failed", zap.String("user", userID), zap.String("type", eventType), zap.Error(err))
	}
}

var _ StateBroadcaster = (*BroadcastService)(nil)
