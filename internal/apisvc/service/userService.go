package service

import (
	"context"
	"math"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tavolo/tabletop-services/internal/apisvc/models"
)

const userSearchCap = 20

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// UserService covers profiles, the friend graph, the personal game
// collection and play statistics.
type UserService struct {
	userStore  UserStore
	matchStore MatchStore
}

func NewUserService(userStore UserStore, matchStore MatchStore) *UserService {
	return &UserService{userStore: userStore, matchStore: matchStore}
}

func (s *UserService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, username, email string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if !usernamePattern.MatchString(username) {
		return nil, &models.ValidationError{Field: "username", Reason: "username may only contain letters, numbers and underscores"}
	}
	if !emailPattern.MatchString(email) {
		return nil, &models.ValidationError{Field: "email", Reason: "invalid email format"}
	}

	if existing, err := s.userStore.GetByEmail(ctx, email); err == nil && existing.ID != userID {
		return nil, &models.DuplicateError{Field: "email"}
	} else if err != nil && !models.IsNotFound(err) {
		return nil, err
	}
	if existing, err := s.userStore.GetByUsername(ctx, username); err == nil && existing.ID != userID {
		return nil, &models.DuplicateError{Field: "username"}
	} else if err != nil && !models.IsNotFound(err) {
		return nil, err
	}

	return s.userStore.UpdateProfile(ctx, userID, username, email)
}

func (s *UserService) SetAvatar(ctx context.Context, userID primitive.ObjectID, avatar string) (*models.User, error) {
	if avatar == "" {
		return nil, &models.ValidationError{Field: "avatar", Reason: "avatar is required"}
	}
	return s.userStore.SetAvatar(ctx, userID, avatar)
}

func (s *UserService) DeleteUser(ctx context.Context, userID primitive.ObjectID) error {
	return s.userStore.Delete(ctx, userID)
}

// SearchUsers finds users by username or email substring. Queries
// shorter than two characters return nothing.
func (s *UserService) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	if len(query) < minSearchLen {
		return []models.User{}, nil
	}
	return s.userStore.Search(ctx, query, userSearchCap)
}

type UserProfile struct {
	User    PublicUser  `json:"user"`
	Matches []MatchView `json:"matches"`
}

// PublicUser is a user stripped of credentials with friends expanded.
type PublicUser struct {
	models.User
	FriendUsers []FriendView `json:"friendUsers,omitempty"`
}

type FriendView struct {
	models.Friend
	User models.UserRef `json:"userRef"`
}

// GetUserProfile returns a public view of a user with their ten most
// recent matches.
func (s *UserService) GetUserProfile(ctx context.Context, userID primitive.ObjectID) (*UserProfile, error) {
	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	public, err := s.publicUser(ctx, user)
	if err != nil {
		return nil, err
	}

	matches, _, err := s.matchStore.ListByParticipant(ctx, userID, 1, 10)
	if err != nil {
		return nil, err
	}
	views, err := NewMatchService(s.matchStore, s.userStore).expand(ctx, matches)
	if err != nil {
		return nil, err
	}

	return &UserProfile{User: *public, Matches: views}, nil
}

// GetMe returns the authenticated user's own document with friends
// expanded.
func (s *UserService) GetMe(ctx context.Context, userID primitive.ObjectID) (*PublicUser, error) {
	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.publicUser(ctx, user)
}

func (s *UserService) publicUser(ctx context.Context, user *models.User) (*PublicUser, error) {
	public := PublicUser{User: *user}
	public.Password = ""
	public.EmailVerifyToken = ""

	if len(user.Friends) > 0 {
		var ids []primitive.ObjectID
		for _, f := range user.Friends {
			ids = append(ids, f.User)
		}
		refs, err := s.userStore.Refs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, f := range user.Friends {
			public.FriendUsers = append(public.FriendUsers, FriendView{Friend: f, User: refs[f.User]})
		}
	}
	return &public, nil
}

// SendFriendRequest records a pending edge on the target user and
// returns the created notification for delivery.
func (s *UserService) SendFriendRequest(ctx context.Context, from *models.User, targetID primitive.ObjectID) (*models.Notification, error) {
	if from.ID == targetID {
		return nil, &models.ValidationError{Field: "userId", Reason: "cannot send a friend request to yourself"}
	}

	target, err := s.userStore.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	for _, f := range target.Friends {
		if f.User == from.ID {
			return nil, &models.ConflictError{Reason: "friend request already exists or already friends"}
		}
	}

	if err := s.userStore.AddFriend(ctx, targetID, models.Friend{
		User:      from.ID,
		Status:    models.FriendPending,
		CreatedAt: time.Now(),
	}); err != nil {
		return nil, err
	}

	return &models.Notification{
		Recipient: targetID,
		Sender:    from.ID,
		Type:      models.NotificationFriendRequest,
		Message:   from.Username + " sent you a friend request",
	}, nil
}

// AcceptFriendRequest flips the pending edge on the accepting user and
// mirrors an accepted edge onto the sender.
func (s *UserService) AcceptFriendRequest(ctx context.Context, current *models.User, senderID primitive.ObjectID) (*models.Notification, error) {
	found, err := s.userStore.SetFriendStatus(ctx, current.ID, senderID, models.FriendAccepted)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &models.NotFoundError{Resource: "friend request"}
	}

	if err := s.userStore.AddFriend(ctx, senderID, models.Friend{
		User:      current.ID,
		Status:    models.FriendAccepted,
		CreatedAt: time.Now(),
	}); err != nil {
		return nil, err
	}

	return &models.Notification{
		Recipient: senderID,
		Sender:    current.ID,
		Type:      models.NotificationFriendAccepted,
		Message:   current.Username + " accepted your friend request",
	}, nil
}

func (s *UserService) AddGame(ctx context.Context, userID primitive.ObjectID, game models.GameEntry) error {
	if game.Name == "" {
		return &models.ValidationError{Field: "name", Reason: "game name is required"}
	}
	if game.AddedAt.IsZero() {
		game.AddedAt = time.Now()
	}
	return s.userStore.AddGame(ctx, userID, game)
}

func (s *UserService) RemoveGame(ctx context.Context, userID primitive.ObjectID, bggID string) error {
	if bggID == "" {
		return &models.ValidationError{Field: "bggId", Reason: "game id is required"}
	}
	return s.userStore.RemoveGame(ctx, userID, bggID)
}

type GameCount struct {
	Game  models.Game `json:"game"`
	Count int         `json:"count"`
}

type CoPlayerCount struct {
	User  models.UserRef `json:"user"`
	Count int            `json:"count"`
}

type MonthlyCount struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Count int `json:"count"`
}

type UserStats struct {
	TotalMatches         int            `json:"totalMatches"`
	Wins                 int            `json:"wins"`
	WinRate              float64        `json:"winRate"`
	MatchesThisMonth     int            `json:"matchesThisMonth"`
	UniqueGamesThisMonth int            `json:"uniqueGamesThisMonth"`
	MostPlayedGame       *GameCount     `json:"mostPlayedGame,omitempty"`
	MostPlayedWith       *CoPlayerCount `json:"mostPlayedWith,omitempty"`
	MonthlyStats         []MonthlyCount `json:"monthlyStats"`
}

// GetUserStats aggregates a user's play history in memory. Co-player
// and game counters break ties by the id encountered first in
// date-descending order, which keeps the result deterministic.
func (s *UserService) GetUserStats(ctx context.Context, userID primitive.ObjectID) (*UserStats, error) {
	matches, err := s.matchStore.ListAllByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	sixMonthsBack := startOfMonth.AddDate(0, -5, 0)

	stats := &UserStats{TotalMatches: len(matches), MonthlyStats: []MonthlyCount{}}

	gamesThisMonth := map[string]struct{}{}
	gameCounts := map[string]int{}
	var gameOrder []string
	gameInfo := map[string]models.Game{}
	coCounts := map[primitive.ObjectID]int{}
	var coOrder []primitive.ObjectID
	monthly := map[[2]int]int{}

	for _, m := range matches {
		for i := range m.Players {
			p := &m.Players[i]
			if p.User != nil && *p.User == userID {
				if p.IsWinner {
					stats.Wins++
				}
			} else if p.User != nil {
				if _, seen := coCounts[*p.User]; !seen {
					coOrder = append(coOrder, *p.User)
				}
				coCounts[*p.User]++
			}
		}

		if !m.Date.Before(startOfMonth) {
			stats.MatchesThisMonth++
			gamesThisMonth[m.Game.BggID] = struct{}{}
		}

		if _, seen := gameCounts[m.Game.BggID]; !seen {
			gameOrder = append(gameOrder, m.Game.BggID)
			gameInfo[m.Game.BggID] = m.Game
		}
		gameCounts[m.Game.BggID]++

		if !m.Date.Before(sixMonthsBack) {
			monthly[[2]int{m.Date.Year(), int(m.Date.Month())}]++
		}
	}

	stats.UniqueGamesThisMonth = len(gamesThisMonth)
	if stats.TotalMatches > 0 {
		stats.WinRate = math.Round(float64(stats.Wins)/float64(stats.TotalMatches)*1000) / 10
	}

	best := -1
	for _, id := range gameOrder {
		if gameCounts[id] > best {
			best = gameCounts[id]
			stats.MostPlayedGame = &GameCount{Game: gameInfo[id], Count: gameCounts[id]}
		}
	}

	best = -1
	var bestCo primitive.ObjectID
	for _, id := range coOrder {
		if coCounts[id] > best {
			best = coCounts[id]
			bestCo = id
		}
	}
	if best > 0 {
		refs, err := s.userStore.Refs(ctx, []primitive.ObjectID{bestCo})
		if err != nil {
			return nil, err
		}
		stats.MostPlayedWith = &CoPlayerCount{User: refs[bestCo], Count: best}
	}

	for cursor := sixMonthsBack; !cursor.After(startOfMonth); cursor = cursor.AddDate(0, 1, 0) {
		key := [2]int{cursor.Year(), int(cursor.Month())}
		if count, ok := monthly[key]; ok {
			stats.MonthlyStats = append(stats.MonthlyStats, MonthlyCount{Year: key[0], Month: key[1], Count: count})
		}
	}

	return stats, nil
}
