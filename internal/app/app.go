package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"guessthesong/internal/cache"
	"guessthesong/internal/config"
	"guessthesong/internal/repository"
)

// App bundles the storage selected by store.driver.
type App struct {
	RoomRepo    repository.RoomRepo
	MessageRepo repository.MessageRepo
	StateStore  cache.StateStore
	Leaderboard cache.LeaderboardCache

	closers []func()
}

// Close releases the underlying clients in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Open connects the configured backends. The memory driver needs no external
// services and loses everything on restart.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	if cfg.Store.Driver == config.StoreMemory {
		log.Warn("using in-memory storage, state is lost on restart")
		return NewMemory(), nil
	}

	a := &App{}
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	a.closers = append(a.closers, func() { _ = mongoClient.Disconnect(context.Background()) })

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		a.Close()
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	if err := repository.EnsureIndexes(pingCtx, mongoClient, cfg.Mongo.Database); err != nil {
		a.Close()
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	log.Info("connected to mongo", zap.String("database", cfg.Mongo.Database))

	rdb := redis.NewClient(&redis.Options{
		Addr:     strings.TrimPrefix(cfg.Redis.Addr, "redis://"),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	a.closers = append(a.closers, func() { _ = rdb.Close() })
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		a.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	log.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))

	a.RoomRepo = repository.NewRoomRepo(mongoClient, cfg.Mongo.Database)
	a.MessageRepo = repository.NewMessageRepo(mongoClient, cfg.Mongo.Database)
	a.StateStore = cache.NewRedisStore(rdb, cfg.Redis.StateTTL)
	a.Leaderboard = cache.NewLeaderboardCache(rdb, cfg.Redis.StateTTL)
	return a, nil
}

// NewMemory returns process-local backends.
func NewMemory() *App {
	return &App{
		RoomRepo:    repository.NewMemoryRoomRepo(),
		MessageRepo: repository.NewMemoryMessageRepo(),
		StateStore:  cache.NewMemoryStore(),
		Leaderboard: cache.NewMemoryLeaderboard(),
	}
}
