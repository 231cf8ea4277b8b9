package model

import "time"

type MessageType string

const (
	MessageChat   MessageType = "chat"
	MessageSystem MessageType = "system"
	MessageGuess  MessageType = "guess"
)

// Message is a chat, system or guess-notification entry. System messages carry no user.
type Message struct {
	ID          string      `json:"id" bson:"_id"`
	RoomID      string      `json:"roomId" bson:"roomId"`
	Content     string      `json:"content" bson:"content"`
	Type        MessageType `json:"type" bson:"type"`
	CreatedAt   time.Time   `json:"createdAt" bson:"createdAt"`
	DisplayName string      `json:"displayName,omitempty" bson:"displayName,omitempty"`
	AvatarURL   string      `json:"avatarUrl,omitempty" bson:"avatarUrl,omitempty"`
	User        string      `json:"user,omitempty" bson:"user,omitempty"`
}
