package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Guest is a player identity created by a registered user to represent
// someone without an account. A Guest with a non-nil SyncedWith has been
// permanently reconciled with that user and must not be synced again.
type Guest struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name         string              `bson:"name" json:"name"`
	Email        string              `bson:"email,omitempty" json:"email,omitempty"`
	Avatar       string              `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Notes        string              `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedBy    primitive.ObjectID  `bson:"created_by" json:"createdBy"`
	TotalMatches int                 `bson:"total_matches" json:"totalMatches"`
	TotalWins    int                 `bson:"total_wins" json:"totalWins"`
	SyncedWith   *primitive.ObjectID `bson:"synced_with,omitempty" json:"syncedWith,omitempty"`
	SyncedAt     *time.Time          `bson:"synced_at,omitempty" json:"syncedAt,omitempty"`
	CreatedAt    time.Time           `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time           `bson:"updated_at" json:"updatedAt"`
}

func (g *Guest) Synced() bool {
	return g.SyncedWith != nil
}

// GuestView is a Guest with the reconciled user expanded for display.
type GuestView struct {
	Guest      `bson:",inline"`
	SyncedUser *UserRef `json:"syncedUser,omitempty"`
}
