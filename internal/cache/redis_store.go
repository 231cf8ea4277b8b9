package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"guessthesong/internal/apperr"
	"guessthesong/internal/model"
)

const (
	maxTxAttempts = 5
	txBackoff     = 5 * time.Millisecond
)

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
	locks  *roomLocker
}

// NewRedisStore keeps each room's state as one JSON document. Writers in this
// process queue on a per-room lock; writers in other processes are caught by
// WATCH and the transaction is replayed against fresh state.
func NewRedisStore(client *redis.Client, ttl time.Duration) StateStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &redisStore{
		client: client,
		ttl:    ttl,
		locks:  newRoomLocker(),
	}
}

func (s *redisStore) key(code string) string {
	return fmt.Sprintf("room:%s:state", code)
}

func (s *redisStore) Create(ctx context.Context, state *model.RoomState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	ok, err := s.client.SetNX(ctx, s.key(state.Room.Code), data, s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Conflict("room code already in use")
	}
	return nil
}

func (s *redisStore) Get(ctx context.Context, code string) (*model.RoomState, error) {
	data, err := s.client.Get(ctx, s.key(code)).Bytes()
	if err == redis.Nil {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	var state model.RoomState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *redisStore) GetRoomIDByCode(ctx context.Context, code string) (string, error) {
	state, err := s.Get(ctx, code)
	if err != nil {
		return "", err
	}
	return state.Room.ID, nil
}

func (s *redisStore) Update(ctx context.Context, code string, fn UpdateFunc) (*model.RoomState, error) {
	unlock := s.locks.Lock(code)
	defer unlock()

	key := s.key(code)
	var out *model.RoomState

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return ErrRoomNotFound
		}
		if err != nil {
			return err
		}

		var state model.RoomState
		if err := json.Unmarshal(data, &state); err != nil {
			return err
		}
		if err := fn(&state); err != nil {
			return err
		}
		state.UpdatedAt = time.Now()

		next, err := json.Marshal(&state)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		out = &state
		return nil
	}

	for i := 0; i < maxTxAttempts; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, err
		}
		// another process won the race; back off with jitter before replaying
		wait := time.Duration(i+1)*txBackoff + time.Duration(rand.Int64N(int64(txBackoff)))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, apperr.Conflict("room state changed concurrently")
}

func (s *redisStore) Exists(ctx context.Context, code string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(code)).Result()
	return n > 0, err
}

func (s *redisStore) Codes(ctx context.Context) ([]string, error) {
	var codes []string
	iter := s.client.Scan(ctx, 0, s.key("*"), 100).Iterator()
	for iter.Next(ctx) {
		k := strings.TrimSuffix(strings.TrimPrefix(iter.Val(), "room:"), ":state")
		codes = append(codes, k)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return codes, nil
}
