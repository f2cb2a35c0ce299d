package service

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tavolo/tabletop-services/internal/apisvc/models"
)

// GuestStore is the persistence surface the guest services depend on.
// The mongo-backed implementation lives in the store package.
type GuestStore interface {
	Insert(ctx context.Context, guest *models.Guest) error
	ListByOwner(ctx context.Context, owner primitive.ObjectID) ([]models.Guest, error)
	SearchUnsynced(ctx context.Context, owner primitive.ObjectID, query string, limit int64) ([]models.Guest, error)
	GetByOwner(ctx context.Context, id, owner primitive.ObjectID) (*models.Guest, error)
	Update(ctx context.Context, id, owner primitive.ObjectID, fields GuestUpdate) (*models.Guest, error)
	Delete(ctx context.Context, id, owner primitive.ObjectID) (bool, error)
	MarkSynced(ctx context.Context, id, target primitive.ObjectID, at time.Time) error
	SetTotals(ctx context.Context, id primitive.ObjectID, matches, wins int) error
}

// GuestUpdate is a partial update; nil fields are left untouched.
type GuestUpdate struct {
	Name   *string
	Email  *string
	Avatar *string
	Notes  *string
}

type MatchStore interface {
	Insert(ctx context.Context, match *models.Match) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Match, error)
	ListByParticipant(ctx context.Context, user primitive.ObjectID, page, limit int64) ([]models.Match, int64, error)
	ListByGameAndParticipant(ctx context.Context, gameID string, user primitive.ObjectID, page, limit int64) ([]models.Match, int64, error)
	ListAllByParticipant(ctx context.Context, user primitive.ObjectID) ([]models.Match, error)
	Update(ctx context.Context, id primitive.ObjectID, update MatchUpdate) (*models.Match, error)
	Delete(ctx context.Context, id primitive.ObjectID) error

	// Reconciliation queries. FindUnclaimedByGuestNames matches entries
	// with no user reference whose guest name equals one of the given
	// names, case-insensitively and as a full string.
	FindByGuest(ctx context.Context, guestID primitive.ObjectID) ([]models.Match, error)
	CountByGuest(ctx context.Context, guestID primitive.ObjectID) (int64, error)
	FindUnclaimedByGuestNames(ctx context.Context, names []string) ([]models.Match, error)
	FindByGuestOrName(ctx context.Context, guestID primitive.ObjectID, name string) ([]models.Match, error)

	// SavePlayers persists the mutated player entries of one match in a
	// single write.
	SavePlayers(ctx context.Context, matchID primitive.ObjectID, players []models.Player) error
}

// MatchUpdate is a partial update of match fields; nil fields are left
// untouched.
type MatchUpdate struct {
	Game          *models.Game
	Players       *[]models.Player
	Duration      *int
	Date          *time.Time
	Location      *string
	Notes         *string
	IsTeamGame    *bool
	IsCooperative *bool
	HasWinner     *bool
	Status        *string
}

type UserStore interface {
	Insert(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByVerifyToken(ctx context.Context, token string) (*models.User, error)
	Refs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserRef, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, username, email string) (*models.User, error)
	SetAvatar(ctx context.Context, id primitive.ObjectID, avatar string) (*models.User, error)
	SetEmailVerified(ctx context.Context, id primitive.ObjectID) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	Search(ctx context.Context, query string, limit int64) ([]models.User, error)
	AddFriend(ctx context.Context, userID primitive.ObjectID, friend models.Friend) error
	SetFriendStatus(ctx context.Context, userID, friendID primitive.ObjectID, status string) (bool, error)
	AddGame(ctx context.Context, userID primitive.ObjectID, game models.GameEntry) error
	RemoveGame(ctx context.Context, userID primitive.ObjectID, bggID string) error
}

type NotificationStore interface {
	Insert(ctx context.Context, n *models.Notification) error
	ListByRecipient(ctx context.Context, recipient primitive.ObjectID, page, limit int64) ([]models.Notification, error)
	CountUnread(ctx context.Context, recipient primitive.ObjectID) (int64, error)
	MarkRead(ctx context.Context, id, recipient primitive.ObjectID) (*models.Notification, error)
	MarkAllRead(ctx context.Context, recipient primitive.ObjectID) (int64, error)
}
