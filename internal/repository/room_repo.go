package repository

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"guessthesong/internal/model"
)

// RoomRepo is the durable room registry. Live game state lives in the state store.
type RoomRepo interface {
	Create(ctx context.Context, room *model.Room) error
	GetByCode(ctx context.Context, code string) (*model.Room, error)
	Update(ctx context.Context, room *model.Room) error
}

type roomRepo struct {
	collection *mongo.Collection
}

func NewRoomRepo(client *mongo.Client, database string) RoomRepo {
	db := client.Database(database)
	return &roomRepo{
		collection: db.Collection("rooms"),
	}
}

func (r *roomRepo) Create(ctx context.Context, room *model.Room) error {
	_, err := r.collection.InsertOne(ctx, room)
	return err
}

func (r *roomRepo) GetByCode(ctx context.Context, code string) (*model.Room, error) {
	var room model.Room
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	err := r.collection.FindOne(ctx, bson.M{"code": code}, opts).Decode(&room)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil // Room not found
		}
		return nil, err
	}
	return &room, nil
}

func (r *roomRepo) Update(ctx context.Context, room *model.Room) error {
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": room.ID}, room)
	return err
}

type memoryRoomRepo struct {
	mu    sync.RWMutex
	rooms map[string]model.Room
}

// NewMemoryRoomRepo keeps rooms in process for the memory store driver and tests.
func NewMemoryRoomRepo() RoomRepo {
	return &memoryRoomRepo{rooms: make(map[string]model.Room)}
}

func (r *memoryRoomRepo) Create(_ context.Context, room *model.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms[room.Code] = *room
	return nil
}

func (r *memoryRoomRepo) GetByCode(_ context.Context, code string) (*model.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[code]
	if !ok {
		return nil, nil
	}
	return &room, nil
}

func (r *memoryRoomRepo) Update(ctx context.Context, room *model.Room) error {
	return r.Create(ctx, room)
}
