package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const MaxChatMessageLength = 5000

type ChatMessage struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	GigID     primitive.ObjectID `bson:"gig_id" json:"gigId"`
	SenderID  primitive.ObjectID `bson:"sender_id" json:"senderId"`
	Text      string             `bson:"text" json:"text"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}

// ChatMessageView is the shape broadcast to a gig room and returned by the history endpoint.
type ChatMessageView struct {
	*ChatMessage
	Sender *PublicUser `json:"sender,omitempty"`
}
