package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tavolo/tabletop-services/internal/apisvc/models"
	log "github.com/sirupsen/logrus"
)

// GuestSyncService reconciles guest-named match entries with registered
// users, either automatically at registration or after explicit user
// confirmation. Matching is always a case-insensitive full-string
// comparison of the guest name against the username or email.
type GuestSyncService struct {
	matchStore MatchStore
	userStore  UserStore
}

func NewGuestSyncService(matchStore MatchStore, userStore UserStore) *GuestSyncService {
	return &GuestSyncService{matchStore: matchStore, userStore: userStore}
}

// AutoSyncResult reports the outcome of a best-effort sync run. Failure
// is carried in the result instead of an error return so a storage
// hiccup never fails the registration that triggered the run.
type AutoSyncResult struct {
	Success       bool   `json:"success"`
	SyncedMatches int    `json:"syncedMatches"`
	SyncedPlayers int    `json:"syncedPlayers"`
	Message       string `json:"message,omitempty"`
	Error         string `json:"error,omitempty"`
}

// AutoSyncOnRegistration attaches a newly registered user to every
// unclaimed guest entry whose name matches the username or email.
// Each touched match is persisted once.
func (s *GuestSyncService) AutoSyncOnRegistration(ctx context.Context, userID primitive.ObjectID, email, username string) AutoSyncResult {
	matches, err := s.matchStore.FindUnclaimedByGuestNames(ctx, []string{username, email})
	if err != nil {
		log.Errorf("auto sync: finding candidate matches: %v", err)
		return AutoSyncResult{Error: err.Error()}
	}

	syncedMatches, syncedPlayers := 0, 0
	for i := range matches {
		match := &matches[i]
		touched := false
		for j := range match.Players {
			p := &match.Players[j]
			if !p.HasUser() && (p.GuestNameIs(username) || p.GuestNameIs(email)) {
				uid := userID
				p.User = &uid
				p.GuestID = autoSyncMarker(time.Now())
				touched = true
				syncedPlayers++
			}
		}
		if touched {
			if err := s.matchStore.SavePlayers(ctx, match.ID, match.Players); err != nil {
				log.Errorf("auto sync: persisting match %s: %v", match.ID.Hex(), err)
				return AutoSyncResult{
					Error:         err.Error(),
					SyncedMatches: syncedMatches,
					SyncedPlayers: syncedPlayers,
				}
			}
			syncedMatches++
		}
	}

	return AutoSyncResult{
		Success:       true,
		SyncedMatches: syncedMatches,
		SyncedPlayers: syncedPlayers,
		Message:       fmt.Sprintf("Synchronized %d guest entries across %d matches", syncedPlayers, syncedMatches),
	}
}

type GuestMatchEntry struct {
	GuestName string `json:"guestName"`
	Score     int    `json:"score"`
	IsWinner  bool   `json:"isWinner"`
}

type GuestMatchCandidate struct {
	MatchID      primitive.ObjectID `json:"matchId"`
	Game         models.Game        `json:"game"`
	Date         time.Time          `json:"date"`
	Creator      models.UserRef     `json:"creator"`
	GuestPlayers []GuestMatchEntry  `json:"guestPlayers"`
}

type GuestMatchReport struct {
	Matches           []GuestMatchCandidate `json:"matches"`
	TotalMatches      int                   `json:"totalMatches"`
	TotalGuestEntries int                   `json:"totalGuestEntries"`
}

// FindGuestMatches previews the candidate set for a user without
// mutating anything, so the user can confirm before a manual sync.
func (s *GuestSyncService) FindGuestMatches(ctx context.Context, email, username string) (*GuestMatchReport, error) {
	matches, err := s.matchStore.FindUnclaimedByGuestNames(ctx, []string{username, email})
	if err != nil {
		return nil, err
	}

	var creatorIDs []primitive.ObjectID
	for i := range matches {
		creatorIDs = append(creatorIDs, matches[i].Creator)
	}
	refs := map[primitive.ObjectID]models.UserRef{}
	if len(creatorIDs) > 0 {
		if refs, err = s.userStore.Refs(ctx, creatorIDs); err != nil {
			return nil, err
		}
	}

	report := &GuestMatchReport{Matches: []GuestMatchCandidate{}}
	for i := range matches {
		m := &matches[i]
		var entries []GuestMatchEntry
		for j := range m.Players {
			p := &m.Players[j]
			if !p.HasUser() && (p.GuestNameIs(username) || p.GuestNameIs(email)) {
				entries = append(entries, GuestMatchEntry{
					GuestName: p.GuestName,
					Score:     p.Score,
					IsWinner:  p.IsWinner,
				})
			}
		}
		if len(entries) == 0 {
			continue
		}
		report.Matches = append(report.Matches, GuestMatchCandidate{
			MatchID:      m.ID,
			Game:         m.Game,
			Date:         m.Date,
			Creator:      refs[m.Creator],
			GuestPlayers: entries,
		})
		report.TotalGuestEntries += len(entries)
	}
	report.TotalMatches = len(report.Matches)
	return report, nil
}

type SyncCounts struct {
	SyncedMatches int `json:"syncedMatches"`
	SyncedPlayers int `json:"syncedPlayers"`
}

// ManualSync attaches the acting user to unclaimed entries carrying the
// confirmed guest name, limited to the given matches. Matches that no
// longer exist are skipped.
func (s *GuestSyncService) ManualSync(ctx context.Context, userID primitive.ObjectID, matchIDs []primitive.ObjectID, guestName string) (*SyncCounts, error) {
	if len(matchIDs) == 0 {
		return nil, &models.ValidationError{Field: "matchIds", Reason: "at least one match id is required"}
	}
	if strings.TrimSpace(guestName) == "" {
		return nil, &models.ValidationError{Field: "guestName", Reason: "guest name is required"}
	}

	counts := &SyncCounts{}
	for _, id := range matchIDs {
		match, err := s.matchStore.GetByID(ctx, id)
		if err != nil {
			if models.IsNotFound(err) {
				continue
			}
			return nil, err
		}

		touched := false
		for j := range match.Players {
			p := &match.Players[j]
			if !p.HasUser() && p.GuestNameIs(guestName) {
				uid := userID
				p.User = &uid
				p.GuestID = manualSyncMarker(time.Now())
				touched = true
				counts.SyncedPlayers++
			}
		}
		if touched {
			if err := s.matchStore.SavePlayers(ctx, match.ID, match.Players); err != nil {
				return nil, err
			}
			counts.SyncedMatches++
		}
	}
	return counts, nil
}

func autoSyncMarker(t time.Time) string {
	return fmt.Sprintf("synced_%d", t.UnixMilli())
}

func manualSyncMarker(t time.Time) string {
	return fmt.Sprintf("manual_sync_%d", t.UnixMilli())
}
