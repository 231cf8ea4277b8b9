package model

import "time"

type Role string

const (
	RoleHost   Role = "HOST"
	RolePlayer Role = "PLAYER"
)

// Identity is the verified user handed to the core by the identity provider.
type Identity struct {
	ID          string `json:"id" bson:"id"`
	DisplayName string `json:"displayName" bson:"displayName"`
	AvatarURL   string `json:"avatarUrl,omitempty" bson:"avatarUrl,omitempty"`
}

// Player is a member of a room. One per (room, user).
type Player struct {
	User     Identity  `json:"user"`
	Role     Role      `json:"role"`
	Score    float64   `json:"score"`
	JoinedAt time.Time `json:"joinedAt"`
}

func (p Player) IsHost() bool {
	return p.Role == RoleHost
}
