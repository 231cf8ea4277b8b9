package cache

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"guessthesong/internal/apperr"
	"guessthesong/internal/model"
)

type memoryStore struct {
	mu     sync.RWMutex
	states map[string][]byte
	locks  *roomLocker
}

// NewMemoryStore is a single-process StateStore. States are kept serialized so
// callers never share memory with the stored copy.
func NewMemoryStore() StateStore {
	return &memoryStore{
		states: make(map[string][]byte),
		locks:  newRoomLocker(),
	}
}

func (s *memoryStore) Create(_ context.Context, state *model.RoomState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.states[state.Room.Code]; ok {
		return apperr.Conflict("room code already in use")
	}
	s.states[state.Room.Code] = data
	return nil
}

func (s *memoryStore) Get(_ context.Context, code string) (*model.RoomState, error) {
	s.mu.RLock()
	data, ok := s.states[code]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrRoomNotFound
	}
	var state model.RoomState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *memoryStore) GetRoomIDByCode(ctx context.Context, code string) (string, error) {
	state, err := s.Get(ctx, code)
	if err != nil {
		return "", err
	}
	return state.Room.ID, nil
}

func (s *memoryStore) Update(ctx context.Context, code string, fn UpdateFunc) (*model.RoomState, error) {
	unlock := s.locks.Lock(code)
	defer unlock()

	state, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := fn(state); err != nil {
		return nil, err
	}
	state.UpdatedAt = time.Now()

	data, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.states[code] = data
	s.mu.Unlock()
	return state, nil
}

func (s *memoryStore) Exists(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.states[code]
	return ok, nil
}

func (s *memoryStore) Codes(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	codes := make([]string, 0, len(s.states))
	for code := range s.states {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes, nil
}
