package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents a document in the users collection.
type User struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username         string             `bson:"username" json:"username"`
	Email            string             `bson:"email" json:"email"`
	Password         string             `bson:"password" json:"-"`
	Avatar           string             `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Games            []GameEntry        `bson:"games,omitempty" json:"games,omitempty"`
	Friends          []Friend           `bson:"friends,omitempty" json:"friends,omitempty"`
	IsEmailVerified  bool               `bson:"is_email_verified" json:"isEmailVerified"`
	EmailVerifyToken string             `bson:"email_verify_token,omitempty" json:"-"`
	CreatedAt        time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updatedAt"`
}

// GameEntry is one game in a user's personal collection.
type GameEntry struct {
	BggID       string    `bson:"bgg_id" json:"bggId"`
	Name        string    `bson:"name" json:"name"`
	Image       string    `bson:"image,omitempty" json:"image,omitempty"`
	MinPlayers  int       `bson:"min_players,omitempty" json:"minPlayers,omitempty"`
	MaxPlayers  int       `bson:"max_players,omitempty" json:"maxPlayers,omitempty"`
	PlayingTime int       `bson:"playing_time,omitempty" json:"playingTime,omitempty"`
	AddedAt     time.Time `bson:"added_at" json:"addedAt"`
}

const (
	FriendPending  = "pending"
	FriendAccepted = "accepted"
)

// Friend is an embedded friendship edge on the user document.
type Friend struct {
	User      primitive.ObjectID `bson:"user" json:"user"`
	Status    string             `bson:"status" json:"status"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}

// UserRef is the display-safe projection of a user embedded in API
// responses. It never carries email or credentials.
type UserRef struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	Username string             `bson:"username" json:"username"`
	Avatar   string             `bson:"avatar,omitempty" json:"avatar,omitempty"`
}

// Ref returns the display projection for u.
func (u *User) Ref() UserRef {
	return UserRef{ID: u.ID, Username: u.Username, Avatar: u.Avatar}
}
