package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tavolo/tabletop-services/internal/apisvc/models"
)

// In-memory stores used by the service tests. They mirror the query
// semantics of the mongo-backed stores, in particular the
// case-insensitive full-string guest name matching.

type fakeGuestStore struct {
	guests map[primitive.ObjectID]*models.Guest
}

func newFakeGuestStore() *fakeGuestStore {
	return &fakeGuestStore{guests: map[primitive.ObjectID]*models.Guest{}}
}

func (s *fakeGuestStore) Insert(_ context.Context, guest *models.Guest) error {
	for _, g := range s.guests {
		if g.CreatedBy == guest.CreatedBy && strings.EqualFold(g.Name, guest.Name) {
			return &models.DuplicateError{Field: "guest name"}
		}
	}
	guest.ID = primitive.NewObjectID()
	cp := *guest
	s.guests[guest.ID] = &cp
	return nil
}

func (s *fakeGuestStore) ListByOwner(_ context.Context, owner primitive.ObjectID) ([]models.Guest, error) {
	var out []models.Guest
	for _, g := range s.guests {
		if g.CreatedBy == owner {
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *fakeGuestStore) SearchUnsynced(_ context.Context, owner primitive.ObjectID, query string, limit int64) ([]models.Guest, error) {
	out := []models.Guest{}
	for _, g := range s.guests {
		if g.CreatedBy == owner && g.SyncedWith == nil &&
			strings.Contains(strings.ToLower(g.Name), strings.ToLower(query)) {
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeGuestStore) GetByOwner(_ context.Context, id, owner primitive.ObjectID) (*models.Guest, error) {
	g, ok := s.guests[id]
	if !ok || g.CreatedBy != owner {
		return nil, &models.NotFoundError{Resource: "guest"}
	}
	cp := *g
	return &cp, nil
}

func (s *fakeGuestStore) Update(_ context.Context, id, owner primitive.ObjectID, fields GuestUpdate) (*models.Guest, error) {
	g, ok := s.guests[id]
	if !ok || g.CreatedBy != owner {
		return nil, &models.NotFoundError{Resource: "guest"}
	}
	if fields.Name != nil {
		g.Name = *fields.Name
	}
	if fields.Email != nil {
		g.Email = *fields.Email
	}
	if fields.Avatar != nil {
		g.Avatar = *fields.Avatar
	}
	if fields.Notes != nil {
		g.Notes = *fields.Notes
	}
	g.UpdatedAt = time.Now()
	cp := *g
	return &cp, nil
}

func (s *fakeGuestStore) Delete(_ context.Context, id, owner primitive.ObjectID) (bool, error) {
	g, ok := s.guests[id]
	if !ok || g.CreatedBy != owner {
		return false, nil
	}
	delete(s.guests, id)
	return true, nil
}

func (s *fakeGuestStore) MarkSynced(_ context.Context, id, target primitive.ObjectID, at time.Time) error {
	g, ok := s.guests[id]
	if !ok {
		return &models.NotFoundError{Resource: "guest"}
	}
	g.SyncedWith = &target
	g.SyncedAt = &at
	g.UpdatedAt = at
	return nil
}

func (s *fakeGuestStore) SetTotals(_ context.Context, id primitive.ObjectID, matches, wins int) error {
	g, ok := s.guests[id]
	if !ok {
		return &models.NotFoundError{Resource: "guest"}
	}
	g.TotalMatches = matches
	g.TotalWins = wins
	return nil
}

type fakeMatchStore struct {
	matches map[primitive.ObjectID]*models.Match
}

func newFakeMatchStore() *fakeMatchStore {
	return &fakeMatchStore{matches: map[primitive.ObjectID]*models.Match{}}
}

func (s *fakeMatchStore) Insert(_ context.Context, match *models.Match) error {
	match.ID = primitive.NewObjectID()
	cp := *match
	cp.Players = append([]models.Player(nil), match.Players...)
	s.matches[match.ID] = &cp
	return nil
}

func (s *fakeMatchStore) GetByID(_ context.Context, id primitive.ObjectID) (*models.Match, error) {
	m, ok := s.matches[id]
	if !ok {
		return nil, &models.NotFoundError{Resource: "match"}
	}
	return copyMatch(m), nil
}

func copyMatch(m *models.Match) *models.Match {
	cp := *m
	cp.Players = append([]models.Player(nil), m.Players...)
	return &cp
}

func dateSorted(matches []models.Match) []models.Match {
	sort.Slice(matches, func(i, j int) bool { return matches[i].Date.After(matches[j].Date) })
	return matches
}

func (s *fakeMatchStore) participantMatches(user primitive.ObjectID) []models.Match {
	var out []models.Match
	for _, m := range s.matches {
		if m.HasParticipant(user) {
			out = append(out, *copyMatch(m))
		}
	}
	return dateSorted(out)
}

func (s *fakeMatchStore) ListByParticipant(_ context.Context, user primitive.ObjectID, page, limit int64) ([]models.Match, int64, error) {
	all := s.participantMatches(user)
	return pageSlice(all, page, limit), int64(len(all)), nil
}

func (s *fakeMatchStore) ListByGameAndParticipant(_ context.Context, gameID string, user primitive.ObjectID, page, limit int64) ([]models.Match, int64, error) {
	var filtered []models.Match
	for _, m := range s.participantMatches(user) {
		if m.Game.BggID == gameID {
			filtered = append(filtered, m)
		}
	}
	return pageSlice(filtered, page, limit), int64(len(filtered)), nil
}

func (s *fakeMatchStore) ListAllByParticipant(_ context.Context, user primitive.ObjectID) ([]models.Match, error) {
	return s.participantMatches(user), nil
}

func pageSlice(matches []models.Match, page, limit int64) []models.Match {
	start := (page - 1) * limit
	if start >= int64(len(matches)) {
		return []models.Match{}
	}
	end := start + limit
	if end > int64(len(matches)) {
		end = int64(len(matches))
	}
	return matches[start:end]
}

func (s *fakeMatchStore) Update(_ context.Context, id primitive.ObjectID, update MatchUpdate) (*models.Match, error) {
	m, ok := s.matches[id]
	if !ok {
		return nil, &models.NotFoundError{Resource: "match"}
	}
	if update.Game != nil {
		m.Game = *update.Game
	}
	if update.Players != nil {
		m.Players = append([]models.Player(nil), *update.Players...)
	}
	if update.Duration != nil {
		m.Duration = *update.Duration
	}
	if update.Date != nil {
		m.Date = *update.Date
	}
	if update.Location != nil {
		m.Location = *update.Location
	}
	if update.Notes != nil {
		m.Notes = *update.Notes
	}
	if update.IsTeamGame != nil {
		m.IsTeamGame = *update.IsTeamGame
	}
	if update.IsCooperative != nil {
		m.IsCooperative = *update.IsCooperative
	}
	if update.HasWinner != nil {
		m.HasWinner = *update.HasWinner
	}
	if update.Status != nil {
		m.Status = *update.Status
	}
	m.UpdatedAt = time.Now()
	return copyMatch(m), nil
}

func (s *fakeMatchStore) Delete(_ context.Context, id primitive.ObjectID) error {
	if _, ok := s.matches[id]; !ok {
		return &models.NotFoundError{Resource: "match"}
	}
	delete(s.matches, id)
	return nil
}

func (s *fakeMatchStore) FindByGuest(_ context.Context, guestID primitive.ObjectID) ([]models.Match, error) {
	var out []models.Match
	for _, m := range s.matches {
		for i := range m.Players {
			if m.Players[i].ReferencesGuest(guestID) {
				out = append(out, *copyMatch(m))
				break
			}
		}
	}
	return dateSorted(out), nil
}

func (s *fakeMatchStore) CountByGuest(ctx context.Context, guestID primitive.ObjectID) (int64, error) {
	matches, _ := s.FindByGuest(ctx, guestID)
	return int64(len(matches)), nil
}

func (s *fakeMatchStore) FindUnclaimedByGuestNames(_ context.Context, names []string) ([]models.Match, error) {
	var out []models.Match
	for _, m := range s.matches {
		for i := range m.Players {
			p := &m.Players[i]
			if p.HasUser() {
				continue
			}
			matched := false
			for _, name := range names {
				if name != "" && p.GuestNameIs(name) {
					matched = true
					break
				}
			}
			if matched {
				out = append(out, *copyMatch(m))
				break
			}
		}
	}
	return dateSorted(out), nil
}

func (s *fakeMatchStore) FindByGuestOrName(_ context.Context, guestID primitive.ObjectID, name string) ([]models.Match, error) {
	var out []models.Match
	for _, m := range s.matches {
		for i := range m.Players {
			p := &m.Players[i]
			if p.ReferencesGuest(guestID) || (!p.HasUser() && p.GuestNameIs(name)) {
				out = append(out, *copyMatch(m))
				break
			}
		}
	}
	return dateSorted(out), nil
}

func (s *fakeMatchStore) SavePlayers(_ context.Context, matchID primitive.ObjectID, players []models.Player) error {
	m, ok := s.matches[matchID]
	if !ok {
		return &models.NotFoundError{Resource: "match"}
	}
	m.Players = append([]models.Player(nil), players...)
	m.UpdatedAt = time.Now()
	return nil
}

type fakeUserStore struct {
	users map[primitive.ObjectID]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[primitive.ObjectID]*models.User{}}
}

func (s *fakeUserStore) Insert(_ context.Context, user *models.User) error {
	user.ID = primitive.NewObjectID()
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *fakeUserStore) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, &models.NotFoundError{Resource: "user"}
	}
	cp := *u
	return &cp, nil
}

func (s *fakeUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, &models.NotFoundError{Resource: "user"}
}

func (s *fakeUserStore) GetByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, &models.NotFoundError{Resource: "user"}
}

func (s *fakeUserStore) GetByVerifyToken(_ context.Context, token string) (*models.User, error) {
	for _, u := range s.users {
		if u.EmailVerifyToken == token {
			cp := *u
			return &cp, nil
		}
	}
	return nil, &models.NotFoundError{Resource: "user"}
}

func (s *fakeUserStore) Refs(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserRef, error) {
	refs := map[primitive.ObjectID]models.UserRef{}
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			refs[id] = u.Ref()
		}
	}
	return refs, nil
}

func (s *fakeUserStore) UpdateProfile(_ context.Context, id primitive.ObjectID, username, email string) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, &models.NotFoundError{Resource: "user"}
	}
	u.Username = username
	u.Email = email
	u.UpdatedAt = time.Now()
	cp := *u
	return &cp, nil
}

func (s *fakeUserStore) SetAvatar(_ context.Context, id primitive.ObjectID, avatar string) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, &models.NotFoundError{Resource: "user"}
	}
	u.Avatar = avatar
	cp := *u
	return &cp, nil
}

func (s *fakeUserStore) SetEmailVerified(_ context.Context, id primitive.ObjectID) error {
	u, ok := s.users[id]
	if !ok {
		return &models.NotFoundError{Resource: "user"}
	}
	u.IsEmailVerified = true
	u.EmailVerifyToken = ""
	return nil
}

func (s *fakeUserStore) Delete(_ context.Context, id primitive.ObjectID) error {
	if _, ok := s.users[id]; !ok {
		return &models.NotFoundError{Resource: "user"}
	}
	delete(s.users, id)
	return nil
}

func (s *fakeUserStore) Search(_ context.Context, query string, limit int64) ([]models.User, error) {
	out := []models.User{}
	q := strings.ToLower(query)
	for _, u := range s.users {
		if strings.Contains(strings.ToLower(u.Username), q) || strings.Contains(strings.ToLower(u.Email), q) {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeUserStore) AddFriend(_ context.Context, userID primitive.ObjectID, friend models.Friend) error {
	u, ok := s.users[userID]
	if !ok {
		return &models.NotFoundError{Resource: "user"}
	}
	u.Friends = append(u.Friends, friend)
	return nil
}

func (s *fakeUserStore) SetFriendStatus(_ context.Context, userID, friendID primitive.ObjectID, status string) (bool, error) {
	u, ok := s.users[userID]
	if !ok {
		return false, &models.NotFoundError{Resource: "user"}
	}
	for i := range u.Friends {
		if u.Friends[i].User == friendID && u.Friends[i].Status == models.FriendPending {
			u.Friends[i].Status = status
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeUserStore) AddGame(_ context.Context, userID primitive.ObjectID, game models.GameEntry) error {
	u, ok := s.users[userID]
	if !ok {
		return &models.NotFoundError{Resource: "user"}
	}
	u.Games = append(u.Games, game)
	return nil
}

func (s *fakeUserStore) RemoveGame(_ context.Context, userID primitive.ObjectID, bggID string) error {
	u, ok := s.users[userID]
	if !ok {
		return &models.NotFoundError{Resource: "user"}
	}
	kept := u.Games[:0]
	for _, g := range u.Games {
		if g.BggID != bggID {
			kept = append(kept, g)
		}
	}
	u.Games = kept
	return nil
}

type fakeNotificationStore struct {
	notifications []*models.Notification
}

func newFakeNotificationStore() *fakeNotificationStore {
	return &fakeNotificationStore{}
}

func (s *fakeNotificationStore) Insert(_ context.Context, n *models.Notification) error {
	n.ID = primitive.NewObjectID()
	cp := *n
	s.notifications = append(s.notifications, &cp)
	return nil
}

func (s *fakeNotificationStore) ListByRecipient(_ context.Context, recipient primitive.ObjectID, page, limit int64) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range s.notifications {
		if n.Recipient == recipient {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	start := (page - 1) * limit
	if start >= int64(len(out)) {
		return []models.Notification{}, nil
	}
	end := start + limit
	if end > int64(len(out)) {
		end = int64(len(out))
	}
	return out[start:end], nil
}

func (s *fakeNotificationStore) CountUnread(_ context.Context, recipient primitive.ObjectID) (int64, error) {
	var count int64
	for _, n := range s.notifications {
		if n.Recipient == recipient && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (s *fakeNotificationStore) MarkRead(_ context.Context, id, recipient primitive.ObjectID) (*models.Notification, error) {
	for _, n := range s.notifications {
		if n.ID == id && n.Recipient == recipient {
			n.IsRead = true
			cp := *n
			return &cp, nil
		}
	}
	return nil, &models.NotFoundError{Resource: "notification"}
}

func (s *fakeNotificationStore) MarkAllRead(_ context.Context, recipient primitive.ObjectID) (int64, error) {
	var count int64
	for _, n := range s.notifications {
		if n.Recipient == recipient && !n.IsRead {
			n.IsRead = true
			count++
		}
	}
	return count, nil
}
