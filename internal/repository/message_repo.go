package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"guessthesong/internal/model"
)

// MessageRepo stores the chat, system and guess messages of a room.
type MessageRepo interface {
	Append(ctx context.Context, msg *model.Message) error
	// Recent returns at most limit messages, oldest first.
	Recent(ctx context.Context, roomID string, limit int) ([]model.Message, error)
}

type messageRepo struct {
	collection *mongo.Collection
}

func NewMessageRepo(client *mongo.Client, database string) MessageRepo {
	db := client.Database(database)
	return &messageRepo{
		collection: db.Collection("messages"),
	}
}

// EnsureIndexes creates the (roomId, createdAt) index Recent relies on.
func EnsureIndexes(ctx context.Context, client *mongo.Client, database string) error {
	db := client.Database(database)
	_, err := db.Collection("messages").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "roomId", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return err
	}
	// Codes are recycled once a room's live state expires, so the registry
	// index is not unique.
	_, err = db.Collection("rooms").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "code", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	return err
}

func prepare(msg *model.Message) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
}

func (r *messageRepo) Append(ctx context.Context, msg *model.Message) error {
	prepare(msg)
	_, err := r.collection.InsertOne(ctx, msg)
	return err
}

func (r *messageRepo) Recent(ctx context.Context, roomID string, limit int) ([]model.Message, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{"roomId": roomID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var messages []model.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	// newest first from Mongo; clients render oldest first
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

type memoryMessageRepo struct {
	mu     sync.RWMutex
	byRoom map[string][]model.Message
}

func NewMemoryMessageRepo() MessageRepo {
	return &memoryMessageRepo{byRoom: make(map[string][]model.Message)}
}

func (r *memoryMessageRepo) Append(_ context.Context, msg *model.Message) error {
	prepare(msg)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byRoom[msg.RoomID] = append(r.byRoom[msg.RoomID], *msg)
	return nil
}

func (r *memoryMessageRepo) Recent(_ context.Context, roomID string, limit int) ([]model.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := append([]model.Message(nil), r.byRoom[roomID]...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}
