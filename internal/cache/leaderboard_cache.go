package cache

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// LeaderboardCache keeps a sorted per-room score index next to the room state.
type LeaderboardCache interface {
	SetScore(ctx context.Context, roomCode, userID string, score float64) error
	Remove(ctx context.Context, roomCode, userID string) error
	GetTop(ctx context.Context, roomCode string, limit int) ([]LeaderboardEntry, error)
	GetRank(ctx context.Context, roomCode, userID string) (int64, error)
}

type LeaderboardEntry struct {
	UserID      string  `json:"userId"`
	DisplayName string  `json:"displayName,omitempty"`
	Score       float64 `json:"score"`
	Rank        int     `json:"rank"`
}

type leaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLeaderboardCache(client *redis.Client, ttl time.Duration) LeaderboardCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &leaderboardCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *leaderboardCache) key(roomCode string) string {
	return fmt.Sprintf("room:%s:lb", roomCode)
}

func (c *leaderboardCache) SetScore(ctx context.Context, roomCode, userID string, score float64) error {
	key := c.key(roomCode)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, redis.Z{Score: score, Member: userID})
		pipe.Expire(ctx, key, c.ttl)
		return nil
	})
	return err
}

func (c *leaderboardCache) Remove(ctx context.Context, roomCode, userID string) error {
	return c.client.ZRem(ctx, c.key(roomCode), userID).Err()
}

func (c *leaderboardCache) GetTop(ctx context.Context, roomCode string, limit int) ([]LeaderboardEntry, error) {
	results, err := c.client.ZRevRangeWithScores(ctx, c.key(roomCode), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, len(results))
	for i, z := range results {
		entries[i] = LeaderboardEntry{
			UserID: z.Member.(string),
			Score:  z.Score,
			Rank:   i + 1,
		}
	}
	return entries, nil
}

func (c *leaderboardCache) GetRank(ctx context.Context, roomCode, userID string) (int64, error) {
	rank, err := c.client.ZRevRank(ctx, c.key(roomCode), userID).Result()
	if err == redis.Nil {
		return -1, nil
	}
	return rank + 1, err // 1-indexed
}

type memoryLeaderboard struct {
	mu     sync.RWMutex
	scores map[string]map[string]float64
}

// NewMemoryLeaderboard backs the leaderboard when the server runs without Redis.
func NewMemoryLeaderboard() LeaderboardCache {
	return &memoryLeaderboard{scores: make(map[string]map[string]float64)}
}

func (m *memoryLeaderboard) SetScore(_ context.Context, roomCode, userID string, score float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.scores[roomCode]
	if !ok {
		room = make(map[string]float64)
		m.scores[roomCode] = room
	}
	room[userID] = score
	return nil
}

func (m *memoryLeaderboard) Remove(_ context.Context, roomCode, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.scores[roomCode], userID)
	return nil
}

func (m *memoryLeaderboard) sorted(roomCode string) []LeaderboardEntry {
	room := m.scores[roomCode]
	entries := make([]LeaderboardEntry, 0, len(room))
	for id, score := range room {
		entries = append(entries, LeaderboardEntry{UserID: id, Score: score})
	}
	// Ties order by member descending, like ZREVRANGE.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].UserID > entries[j].UserID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

func (m *memoryLeaderboard) GetTop(_ context.Context, roomCode string, limit int) ([]LeaderboardEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := m.sorted(roomCode)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (m *memoryLeaderboard) GetRank(_ context.Context, roomCode, userID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.sorted(roomCode) {
		if e.UserID == userID {
			return int64(e.Rank), nil
		}
	}
	return -1, nil
}
