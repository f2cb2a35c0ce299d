package handlers

import (
	"net/http"

	"github.com/go-chi/chi"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tavolo/tabletop-services/internal/apisvc/models"
	"github.com/tavolo/tabletop-services/internal/apisvc/service"
)

const defaultMatchPageSize = 10

func (h *Handler) matchParam(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "matchId"))
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid match id"})
		return primitive.NilObjectID, false
	}
	return id, true
}

func (h *Handler) CreateMatch(w http.ResponseWriter, r *http.Request) {
	creator, err := h.currentUser(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var in service.CreateMatchInput
	if !h.decode(w, r, &in) {
		return
	}

	match, err := h.matchService.CreateMatch(r.Context(), creator.ID, in)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.notifyCoPlayers(r, creator, &match.Match)

	h.CreateResponse(w, Response{Message: "match created successfully", Code: http.StatusCreated, Data: match})
}

// notifyCoPlayers tells every registered co-player that a match they
// took part in was recorded. Failures only lose the notification.
func (h *Handler) notifyCoPlayers(r *http.Request, creator *models.User, match *models.Match) {
	for i := range match.Players {
		p := &match.Players[i]
		if p.User == nil || *p.User == creator.ID {
			continue
		}
		n, err := h.notificationService.Create(r.Context(), &models.Notification{
			Recipient: *p.User,
			Sender:    creator.ID,
			Type:      models.NotificationMatchAdded,
			Message:   creator.Username + " added a match you played in: " + match.Game.Name,
			Data: map[string]interface{}{
				"matchId": match.ID.Hex(),
			},
		})
		if err != nil {
			continue
		}
		h.broker.PublishNotification(n, creator.Ref())
	}
}

func (h *Handler) GetUserMatches(w http.ResponseWriter, r *http.Request) {
	userID, err := h.currentUserID(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: "invalid token"})
		return
	}

	page, limit := pageParams(r, defaultMatchPageSize)
	result, err := h.matchService.GetUserMatches(r.Context(), userID, page, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.CreateResponse(w, Response{Code: http.StatusOK, Data: result})
}

func (h *Handler) GetMatchesByGame(w http.ResponseWriter, r *http.Request) {
	userID, err := h.currentUserID(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: "invalid token"})
		return
	}

	page, limit := pageParams(r, defaultMatchPageSize)
	result, err := h.matchService.GetMatchesByGame(r.Context(), chi.URLParam(r, "gameId"), userID, page, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.CreateResponse(w, Response{Code: http.StatusOK, Data: result})
}

// GetMatch returns a match only to its creator or a registered
// participant.
func (h *Handler) GetMatch(w http.ResponseWriter, r *http.Request) {
	userID, err := h.currentUserID(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: "invalid token"})
		return
	}
	matchID, ok := h.matchParam(w, r)
	if !ok {
		return
	}

	match, err := h.matchService.GetMatch(r.Context(), matchID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if match.Creator != userID && !match.HasParticipant(userID) {
		h.CreateResponse(w, Response{Code: http.StatusForbidden, Error: "not a participant of this match"})
		return
	}
	h.CreateResponse(w, Response{Code: http.StatusOK, Data: match})
}

func (h *Handler) UpdateMatch(w http.ResponseWriter, r *http.Request) {
	userID, err := h.currentUserID(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: "invalid token"})
		return
	}
	matchID, ok := h.matchParam(w, r)
	if !ok {
		return
	}

	existing, err := h.matchService.GetMatch(r.Context(), matchID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if existing.Creator != userID {
		h.CreateResponse(w, Response{Code: http.StatusForbidden, Error: "only the match creator can update it"})
		return
	}

	var upd service.MatchUpdate
	if !h.decode(w, r, &upd) {
		return
	}

	match, err := h.matchService.UpdateMatch(r.Context(), matchID, upd)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.CreateResponse(w, Response{Message: "match updated successfully", Code: http.StatusOK, Data: match})
}

func (h *Handler) DeleteMatch(w http.ResponseWriter, r *http.Request) {
	userID, err := h.currentUserID(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: "invalid token"})
		return
	}
	matchID, ok := h.matchParam(w, r)
	if !ok {
		return
	}

	existing, err := h.matchService.GetMatch(r.Context(), matchID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if existing.Creator != userID {
		h.CreateResponse(w, Response{Code: http.StatusForbidden, Error: "only the match creator can delete it"})
		return
	}

	if err := h.matchService.DeleteMatch(r.Context(), matchID); err != nil {
		h.writeError(w, err)
		return
	}
	h.CreateResponse(w, Response{Message: "match deleted successfully", Code: http.StatusOK})
}
