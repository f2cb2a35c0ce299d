package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Game is the embedded game metadata on a match. The backend treats it
// as opaque caller-supplied data.
type Game struct {
	BggID string `bson:"bgg_id,omitempty" json:"bggId,omitempty"`
	Name  string `bson:"name" json:"name"`
	Image string `bson:"image,omitempty" json:"image,omitempty"`
}

// Player is one entry in Match.Players. At creation exactly one identity
// source is active: a registered user reference, or a guest identity
// (persistent Guest reference and/or free-text name). Reconciliation
// later attaches User to a guest entry while keeping the guest fields,
// so history stays auditable. GuestID records which sync pass attached
// the user.
type Player struct {
	User        *primitive.ObjectID `bson:"user,omitempty" json:"user,omitempty"`
	Guest       *primitive.ObjectID `bson:"guest,omitempty" json:"guest,omitempty"`
	GuestID     string              `bson:"guest_id,omitempty" json:"guestId,omitempty"`
	GuestName   string              `bson:"guest_name,omitempty" json:"guestName,omitempty"`
	GuestAvatar string              `bson:"guest_avatar,omitempty" json:"guestAvatar,omitempty"`
	Score       int                 `bson:"score" json:"score"`
	IsWinner    bool                `bson:"is_winner" json:"isWinner"`
	Team        string              `bson:"team,omitempty" json:"team,omitempty"`
}

// RegisteredPlayer builds an entry for a user with an account.
func RegisteredPlayer(userID primitive.ObjectID) Player {
	return Player{User: &userID}
}

// GuestPlayer builds an entry for a guest. guestID is nil for a
// transient guest that only has a display name.
func GuestPlayer(guestID *primitive.ObjectID, name, avatar string) Player {
	return Player{Guest: guestID, GuestName: name, GuestAvatar: avatar}
}

func (p *Player) HasUser() bool {
	return p.User != nil
}

func (p *Player) HasGuestIdentity() bool {
	return p.Guest != nil || p.GuestName != ""
}

// UnclaimedGuest reports whether the entry is a guest with no user
// attached yet. Every reconciliation predicate builds on this, which is
// what makes each sync pass idempotent: once a user is attached the
// entry stops matching.
func (p *Player) UnclaimedGuest() bool {
	return p.User == nil && p.HasGuestIdentity()
}

// GuestNameIs reports a case-insensitive exact (full string) name match.
func (p *Player) GuestNameIs(name string) bool {
	return p.GuestName != "" && strings.EqualFold(p.GuestName, name)
}

// ReferencesGuest reports whether the entry points at the given
// persistent Guest record.
func (p *Player) ReferencesGuest(guestID primitive.ObjectID) bool {
	return p.Guest != nil && *p.Guest == guestID
}

const (
	MatchScheduled  = "scheduled"
	MatchInProgress = "in-progress"
	MatchCompleted  = "completed"
)

// Match is a recorded play session.
type Match struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Game          Game               `bson:"game" json:"game"`
	Creator       primitive.ObjectID `bson:"creator" json:"creator"`
	Players       []Player           `bson:"players" json:"players"`
	Duration      int                `bson:"duration" json:"duration"`
	Date          time.Time          `bson:"date" json:"date"`
	Location      string             `bson:"location" json:"location"`
	Notes         string             `bson:"notes,omitempty" json:"notes,omitempty"`
	IsTeamGame    bool               `bson:"is_team_game" json:"isTeamGame"`
	IsCooperative bool               `bson:"is_cooperative" json:"isCooperative"`
	HasWinner     bool               `bson:"has_winner" json:"hasWinner"`
	Status        string             `bson:"status" json:"status"`
	CreatedAt     time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updatedAt"`
}

// HasParticipant reports whether userID appears as a registered player.
func (m *Match) HasParticipant(userID primitive.ObjectID) bool {
	for i := range m.Players {
		if m.Players[i].User != nil && *m.Players[i].User == userID {
			return true
		}
	}
	return false
}
