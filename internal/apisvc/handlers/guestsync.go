package handlers

import (
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FindGuestMatches previews unclaimed guest entries matching the
// caller's own username or email. Identity always comes from the
// session, never from the request.
func (h *Handler) FindGuestMatches(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	report, err := h.guestSyncService.FindGuestMatches(r.Context(), user.Email, user.Username)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.CreateResponse(w, Response{Code: http.StatusOK, Data: report})
}

// ManualSync claims confirmed guest entries for the caller on the
// selected matches.
func (h *Handler) ManualSync(w http.ResponseWriter, r *http.Request) {
	userID, err := h.currentUserID(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: "invalid token"})
		return
	}

	var in struct {
		MatchIDs  []string `json:"matchIds"`
		GuestName string   `json:"guestName"`
	}
	if !h.decode(w, r, &in) {
		return
	}

	matchIDs := make([]primitive.ObjectID, 0, len(in.MatchIDs))
	for _, raw := range in.MatchIDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid match id: " + raw})
			return
		}
		matchIDs = append(matchIDs, id)
	}

	counts, err := h.guestSyncService.ManualSync(r.Context(), userID, matchIDs, in.GuestName)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.CreateResponse(w, Response{Message: "guest entries synced successfully", Code: http.StatusOK, Data: counts})
}
