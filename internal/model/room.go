package model

import "time"

// Room is the durable container for one game. Identity is immutable once created.
type Room struct {
	ID        string    `json:"id" bson:"_id"`
	Code      string    `json:"code" bson:"code"`
	HostID    string    `json:"hostId" bson:"hostId"`
	IsActive  bool      `json:"isActive" bson:"isActive"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// RoomSettings are the host-tunable knobs of a room.
type RoomSettings struct {
	SongsPerPlayer   int `json:"songsPerPlayer" bson:"songsPerPlayer" validate:"min=1,max=10"`
	TimePerSong      int `json:"timePerSong" bson:"timePerSong" validate:"min=5,max=120"`             // seconds
	RevealPercentage int `json:"revealPercentage" bson:"revealPercentage" validate:"min=0,max=100"` // hint mask probability
}
