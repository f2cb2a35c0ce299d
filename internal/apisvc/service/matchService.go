package service

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tavolo/tabletop-services/internal/apisvc/models"
)

// MatchService is plain CRUD over match records. It holds no
// reconciliation logic; the sync services mutate matches through the
// shared store.
type MatchService struct {
	matchStore MatchStore
	userStore  UserStore
}

func NewMatchService(matchStore MatchStore, userStore UserStore) *MatchService {
	return &MatchService{matchStore: matchStore, userStore: userStore}
}

// MatchView is a match with creator and registered players expanded to
// display projections. PlayerUsers is index-aligned with Players and
// nil for guest entries.
type MatchView struct {
	models.Match
	CreatorUser *models.UserRef   `json:"creatorUser,omitempty"`
	PlayerUsers []*models.UserRef `json:"playerUsers"`
}

type MatchPage struct {
	Matches     []MatchView `json:"matches"`
	TotalPages  int64       `json:"totalPages"`
	CurrentPage int64       `json:"currentPage"`
	Total       int64       `json:"total"`
}

type CreateMatchInput struct {
	Game          models.Game     `json:"game"`
	Players       []models.Player `json:"players"`
	Duration      int             `json:"duration"`
	Date          time.Time       `json:"date"`
	Location      string          `json:"location"`
	Notes         string          `json:"notes"`
	IsTeamGame    bool            `json:"isTeamGame"`
	IsCooperative bool            `json:"isCooperative"`
	HasWinner     *bool           `json:"hasWinner"`
	Status        string          `json:"status"`
}

func validStatus(status string) bool {
	switch status {
	case models.MatchScheduled, models.MatchInProgress, models.MatchCompleted:
		return true
	}
	return false
}

func (s *MatchService) CreateMatch(ctx context.Context, creator primitive.ObjectID, in CreateMatchInput) (*MatchView, error) {
	if in.Game.Name == "" {
		return nil, &models.ValidationError{Field: "game.name", Reason: "game name is required"}
	}
	if len(in.Players) == 0 {
		return nil, &models.ValidationError{Field: "players", Reason: "at least one player is required"}
	}
	if in.Duration < 1 {
		return nil, &models.ValidationError{Field: "duration", Reason: "duration must be a positive number"}
	}
	if in.Date.IsZero() {
		return nil, &models.ValidationError{Field: "date", Reason: "valid date is required"}
	}
	if in.Location == "" {
		return nil, &models.ValidationError{Field: "location", Reason: "location is required"}
	}
	if len(in.Notes) > maxNotesLen {
		return nil, &models.ValidationError{Field: "notes", Reason: fmt.Sprintf("notes cannot exceed %d characters", maxNotesLen)}
	}
	for i := range in.Players {
		p := &in.Players[i]
		if p.HasUser() == p.HasGuestIdentity() {
			return nil, &models.ValidationError{
				Field:  "players",
				Reason: fmt.Sprintf("player %d must have exactly one identity source (user or guest)", i),
			}
		}
	}

	status := in.Status
	if status == "" {
		status = models.MatchCompleted
	}
	if !validStatus(status) {
		return nil, &models.ValidationError{Field: "status", Reason: "invalid match status"}
	}

	hasWinner := true
	if in.HasWinner != nil {
		hasWinner = *in.HasWinner
	}

	now := time.Now()
	match := &models.Match{
		Game:          in.Game,
		Creator:       creator,
		Players:       in.Players,
		Duration:      in.Duration,
		Date:          in.Date,
		Location:      in.Location,
		Notes:         in.Notes,
		IsTeamGame:    in.IsTeamGame,
		IsCooperative: in.IsCooperative,
		HasWinner:     hasWinner,
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.matchStore.Insert(ctx, match); err != nil {
		return nil, err
	}

	views, err := s.expand(ctx, []models.Match{*match})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *MatchService) GetUserMatches(ctx context.Context, user primitive.ObjectID, page, limit int64) (*MatchPage, error) {
	matches, total, err := s.matchStore.ListByParticipant(ctx, user, page, limit)
	if err != nil {
		return nil, err
	}
	return s.buildPage(ctx, matches, total, page, limit)
}

func (s *MatchService) GetMatchesByGame(ctx context.Context, gameID string, user primitive.ObjectID, page, limit int64) (*MatchPage, error) {
	matches, total, err := s.matchStore.ListByGameAndParticipant(ctx, gameID, user, page, limit)
	if err != nil {
		return nil, err
	}
	return s.buildPage(ctx, matches, total, page, limit)
}

func (s *MatchService) GetMatch(ctx context.Context, matchID primitive.ObjectID) (*MatchView, error) {
	match, err := s.matchStore.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	views, err := s.expand(ctx, []models.Match{*match})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// UpdateMatch applies a partial update. Creator authorization is
// enforced by the caller.
func (s *MatchService) UpdateMatch(ctx context.Context, matchID primitive.ObjectID, upd MatchUpdate) (*MatchView, error) {
	if upd.Players != nil {
		for i := range *upd.Players {
			p := &(*upd.Players)[i]
			if p.HasUser() == p.HasGuestIdentity() {
				return nil, &models.ValidationError{
					Field:  "players",
					Reason: fmt.Sprintf("player %d must have exactly one identity source (user or guest)", i),
				}
			}
		}
	}
	if upd.Status != nil && !validStatus(*upd.Status) {
		return nil, &models.ValidationError{Field: "status", Reason: "invalid match status"}
	}

	match, err := s.matchStore.Update(ctx, matchID, upd)
	if err != nil {
		return nil, err
	}
	views, err := s.expand(ctx, []models.Match{*match})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *MatchService) DeleteMatch(ctx context.Context, matchID primitive.ObjectID) error {
	return s.matchStore.Delete(ctx, matchID)
}

func (s *MatchService) buildPage(ctx context.Context, matches []models.Match, total, page, limit int64) (*MatchPage, error) {
	views, err := s.expand(ctx, matches)
	if err != nil {
		return nil, err
	}
	totalPages := total / limit
	if total%limit != 0 {
		totalPages++
	}
	return &MatchPage{
		Matches:     views,
		TotalPages:  totalPages,
		CurrentPage: page,
		Total:       total,
	}, nil
}

func (s *MatchService) expand(ctx context.Context, matches []models.Match) ([]MatchView, error) {
	var ids []primitive.ObjectID
	for i := range matches {
		ids = append(ids, matches[i].Creator)
		for j := range matches[i].Players {
			if matches[i].Players[j].User != nil {
				ids = append(ids, *matches[i].Players[j].User)
			}
		}
	}
	refs := map[primitive.ObjectID]models.UserRef{}
	if len(ids) > 0 {
		var err error
		if refs, err = s.userStore.Refs(ctx, ids); err != nil {
			return nil, err
		}
	}

	views := make([]MatchView, 0, len(matches))
	for _, m := range matches {
		v := MatchView{Match: m, PlayerUsers: make([]*models.UserRef, len(m.Players))}
		if ref, ok := refs[m.Creator]; ok {
			r := ref
			v.CreatorUser = &r
		}
		for j := range m.Players {
			if m.Players[j].User != nil {
				if ref, ok := refs[*m.Players[j].User]; ok {
					r := ref
					v.PlayerUsers[j] = &r
				}
			}
		}
		views = append(views, v)
	}
	return views, nil
}
