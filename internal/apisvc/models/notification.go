package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	NotificationFriendRequest   = "friend_request"
	NotificationFriendAccepted  = "friend_accepted"
	NotificationMatchInvitation = "match_invitation"
	NotificationMatchAdded      = "match_added"
)

// Notification is a stored domain event shown to a user.
type Notification struct {
	ID        primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	Recipient primitive.ObjectID     `bson:"recipient" json:"recipient"`
	Sender    primitive.ObjectID     `bson:"sender" json:"sender"`
	Type      string                 `bson:"type" json:"type"`
	Message   string                 `bson:"message" json:"message"`
	Data      map[string]interface{} `bson:"data,omitempty" json:"data,omitempty"`
	IsRead    bool                   `bson:"is_read" json:"isRead"`
	CreatedAt time.Time              `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time              `bson:"updated_at" json:"updatedAt"`
}

// NotificationView is a Notification with the sender expanded for display.
type NotificationView struct {
	Notification `bson:",inline"`
	SenderUser   *UserRef `json:"senderUser,omitempty"`
}
