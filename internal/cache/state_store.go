package cache

import (
	"context"

	"guessthesong/internal/apperr"
	"guessthesong/internal/model"
)

var ErrRoomNotFound = apperr.NotFound("room not found")

// UpdateFunc mutates a room's state in place. Returning an error aborts the
// update without persisting anything. It may run more than once if a
// concurrent writer in another process wins the race, so it must only
// derive its effects from the state it is given.
type UpdateFunc func(state *model.RoomState) error

// StateStore is the room-scoped game state store. Create writes a new room;
// after that Update is the only write path. It is the serialized
// read-modify-write boundary: two concurrent Updates on the same room never
// interleave, and there is no blind save that could clobber one.
type StateStore interface {
	Create(ctx context.Context, state *model.RoomState) error
	Get(ctx context.Context, code string) (*model.RoomState, error)
	GetRoomIDByCode(ctx context.Context, code string) (string, error)
	Update(ctx context.Context, code string, fn UpdateFunc) (*model.RoomState, error)
	Exists(ctx context.Context, code string) (bool, error)
	Codes(ctx context.Context) ([]string, error)
}
