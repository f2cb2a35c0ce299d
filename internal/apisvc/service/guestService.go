package service

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tavolo/tabletop-services/internal/apisvc/models"
	log "github.com/sirupsen/logrus"
)

const (
	maxNotesLen    = 500
	minSearchLen   = 2
	guestSearchCap = 10
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// GuestService owns the lifecycle of guest identities, scoped per
// owning user, including the single-guest sync entry point of the
// reconciliation engine.
type GuestService struct {
	guestStore GuestStore
	matchStore MatchStore
	userStore  UserStore
}

func NewGuestService(guestStore GuestStore, matchStore MatchStore, userStore UserStore) *GuestService {
	return &GuestService{
		guestStore: guestStore,
		matchStore: matchStore,
		userStore:  userStore,
	}
}

type CreateGuestInput struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar"`
	Notes  string `json:"notes"`
}

func (s *GuestService) CreateGuest(ctx context.Context, owner primitive.ObjectID, in CreateGuestInput) (*models.Guest, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, &models.ValidationError{Field: "name", Reason: "guest name is required"}
	}
	email := strings.TrimSpace(in.Email)
	if email != "" && !emailPattern.MatchString(email) {
		return nil, &models.ValidationError{Field: "email", Reason: "invalid email format"}
	}
	if len(in.Notes) > maxNotesLen {
		return nil, &models.ValidationError{Field: "notes", Reason: fmt.Sprintf("notes cannot exceed %d characters", maxNotesLen)}
	}

	now := time.Now()
	guest := &models.Guest{
		Name:      name,
		Email:     strings.ToLower(email),
		Avatar:    in.Avatar,
		Notes:     in.Notes,
		CreatedBy: owner,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.guestStore.Insert(ctx, guest); err != nil {
		return nil, err
	}
	return guest, nil
}

// GetGuests returns all guests owned by a user, sorted by name, with
// the reconciled user expanded to a display projection.
func (s *GuestService) GetGuests(ctx context.Context, owner primitive.ObjectID) ([]models.GuestView, error) {
	guests, err := s.guestStore.ListByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}

	var ids []primitive.ObjectID
	for i := range guests {
		if guests[i].SyncedWith != nil {
			ids = append(ids, *guests[i].SyncedWith)
		}
	}
	refs := map[primitive.ObjectID]models.UserRef{}
	if len(ids) > 0 {
		if refs, err = s.userStore.Refs(ctx, ids); err != nil {
			return nil, err
		}
	}

	views := make([]models.GuestView, 0, len(guests))
	for _, g := range guests {
		v := models.GuestView{Guest: g}
		if g.SyncedWith != nil {
			if ref, ok := refs[*g.SyncedWith]; ok {
				r := ref
				v.SyncedUser = &r
			}
		}
		views = append(views, v)
	}
	return views, nil
}

// SearchGuests finds up to 10 unsynced guests whose name contains the
// query. Queries shorter than two characters return nothing.
func (s *GuestService) SearchGuests(ctx context.Context, owner primitive.ObjectID, query string) ([]models.Guest, error) {
	if len(query) < minSearchLen {
		return []models.Guest{}, nil
	}
	return s.guestStore.SearchUnsynced(ctx, owner, query, guestSearchCap)
}

type GuestStats struct {
	TotalMatches  int            `json:"totalMatches"`
	TotalWins     int            `json:"totalWins"`
	WinRate       float64        `json:"winRate"`
	RecentMatches []models.Match `json:"recentMatches"`
}

type GuestDetail struct {
	Guest   models.GuestView `json:"guest"`
	Stats   GuestStats       `json:"stats"`
	Matches []models.Match   `json:"matches"`
}

// GetGuest returns one guest with its match history and computed stats.
func (s *GuestService) GetGuest(ctx context.Context, guestID, owner primitive.ObjectID) (*GuestDetail, error) {
	guest, err := s.guestStore.GetByOwner(ctx, guestID, owner)
	if err != nil {
		return nil, err
	}

	matches, err := s.matchStore.FindByGuest(ctx, guestID)
	if err != nil {
		return nil, err
	}

	total, wins := guestTotals(matches, guestID)
	rate := 0.0
	if total > 0 {
		rate = math.Round(float64(wins)/float64(total)*1000) / 10
	}

	view := models.GuestView{Guest: *guest}
	if guest.SyncedWith != nil {
		refs, err := s.userStore.Refs(ctx, []primitive.ObjectID{*guest.SyncedWith})
		if err != nil {
			return nil, err
		}
		if ref, ok := refs[*guest.SyncedWith]; ok {
			view.SyncedUser = &ref
		}
	}

	return &GuestDetail{
		Guest: view,
		Stats: GuestStats{
			TotalMatches:  total,
			TotalWins:     wins,
			WinRate:       rate,
			RecentMatches: headMatches(matches, 5),
		},
		Matches: headMatches(matches, 10),
	}, nil
}

func (s *GuestService) UpdateGuest(ctx context.Context, guestID, owner primitive.ObjectID, upd GuestUpdate) (*models.Guest, error) {
	if upd.Name != nil {
		trimmed := strings.TrimSpace(*upd.Name)
		if trimmed == "" {
			return nil, &models.ValidationError{Field: "name", Reason: "guest name cannot be empty"}
		}
		upd.Name = &trimmed
	}
	if upd.Email != nil && *upd.Email != "" && !emailPattern.MatchString(*upd.Email) {
		return nil, &models.ValidationError{Field: "email", Reason: "invalid email format"}
	}
	if upd.Notes != nil && len(*upd.Notes) > maxNotesLen {
		return nil, &models.ValidationError{Field: "notes", Reason: fmt.Sprintf("notes cannot exceed %d characters", maxNotesLen)}
	}
	return s.guestStore.Update(ctx, guestID, owner, upd)
}

// DeleteGuest removes a guest that has no match history. Guests still
// referenced by matches cannot be deleted.
func (s *GuestService) DeleteGuest(ctx context.Context, guestID, owner primitive.ObjectID) error {
	count, err := s.matchStore.CountByGuest(ctx, guestID)
	if err != nil {
		return err
	}
	if count > 0 {
		return &models.ConflictError{Reason: "cannot delete guest with associated matches"}
	}

	deleted, err := s.guestStore.Delete(ctx, guestID, owner)
	if err != nil {
		return err
	}
	if !deleted {
		return &models.NotFoundError{Resource: "guest"}
	}
	return nil
}

type SyncGuestResult struct {
	Guest          *models.Guest `json:"guest"`
	UpdatedMatches int           `json:"updatedMatches"`
	Message        string        `json:"message"`
}

// SyncGuest reconciles a persistent guest with a registered user. Every
// match entry that references the guest directly, or that is an
// unclaimed entry carrying the same name, gets the target user attached;
// transient entries are backfilled with the guest reference so future
// queries by guest id find them. Syncing is one-shot per guest.
func (s *GuestService) SyncGuest(ctx context.Context, guestID, owner, target primitive.ObjectID) (*SyncGuestResult, error) {
	guest, err := s.guestStore.GetByOwner(ctx, guestID, owner)
	if err != nil {
		return nil, err
	}
	if guest.Synced() {
		return nil, &models.ConflictError{Reason: "guest is already synced with a user"}
	}

	matches, err := s.matchStore.FindByGuestOrName(ctx, guestID, guest.Name)
	if err != nil {
		return nil, err
	}

	updated := 0
	for i := range matches {
		match := &matches[i]
		touched := false
		for j := range match.Players {
			p := &match.Players[j]
			if p.ReferencesGuest(guestID) || (!p.HasUser() && p.GuestNameIs(guest.Name)) {
				uid := target
				p.User = &uid
				if p.Guest == nil {
					gid := guestID
					p.Guest = &gid
				}
				touched = true
			}
		}
		if touched {
			if err := s.matchStore.SavePlayers(ctx, match.ID, match.Players); err != nil {
				return nil, err
			}
			updated++
			log.Infof("guest sync updated match %s", match.ID.Hex())
		}
	}

	now := time.Now()
	if err := s.guestStore.MarkSynced(ctx, guestID, target, now); err != nil {
		return nil, err
	}
	guest.SyncedWith = &target
	guest.SyncedAt = &now
	guest.UpdatedAt = now

	if _, _, err := s.RefreshGuestStats(ctx, guestID); err != nil {
		log.Warnf("refreshing stats for guest %s after sync: %v", guestID.Hex(), err)
	}

	log.Infof("guest sync completed: %d matches updated", updated)

	return &SyncGuestResult{
		Guest:          guest,
		UpdatedMatches: updated,
		Message:        fmt.Sprintf("Guest %q synced with user. %d matches updated.", guest.Name, updated),
	}, nil
}

// RefreshGuestStats recomputes the cached match/win totals from match
// history. The cached fields are a projection and are never trusted to
// stay in sync on their own.
func (s *GuestService) RefreshGuestStats(ctx context.Context, guestID primitive.ObjectID) (int, int, error) {
	matches, err := s.matchStore.FindByGuest(ctx, guestID)
	if err != nil {
		return 0, 0, err
	}
	total, wins := guestTotals(matches, guestID)
	if err := s.guestStore.SetTotals(ctx, guestID, total, wins); err != nil {
		return 0, 0, err
	}
	return total, wins, nil
}

func guestTotals(matches []models.Match, guestID primitive.ObjectID) (total, wins int) {
	total = len(matches)
	for _, m := range matches {
		for i := range m.Players {
			if m.Players[i].ReferencesGuest(guestID) && m.Players[i].IsWinner {
				wins++
				break
			}
		}
	}
	return total, wins
}

func headMatches(matches []models.Match, n int) []models.Match {
	if len(matches) > n {
		return matches[:n]
	}
	return matches
}
