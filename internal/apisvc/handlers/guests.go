package handlers

import (
	"net/http"

	"github.com/go-chi/chi"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tavolo/tabletop-services/internal/apisvc/service"
)

func (h *Handler) guestParam(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "guestId"))
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid guest id"})
		return primitive.NilObjectID, false
	}
	return id, true
}

func (h *Handler) CreateGuest(w http.ResponseWriter, r *http.Request) {
	owner, err := h.currentUserID(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: "invalid token"})
		return
	}

	var in service.CreateGuestInput
	if !h.decode(w, r, &in) {
		return
	}

	guest, err := h.guestService.CreateGuest(r.Context(), owner, in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.CreateResponse(w, Response{Message: "guest created successfully", Code: http.StatusCreated, Data: guest})
}

func (h *Handler) GetGuests(w http.ResponseWriter, r *http.Request) {
	owner, err := h.currentUserID(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: "invalid token"})
		return
	}

	guests, err := h.guestService.GetGuests(r.Context(), owner)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.CreateResponse(w, Response{Code: http.StatusOK, Data: guests})
}

func (h *Handler) SearchGuests(w http.ResponseWriter, r *http.Request) {
	owner, err := h.currentUserID(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: "invalid token"})
		return
	}

	guests, err := h.guestService.SearchGuests(r.Context(), owner, r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.CreateResponse(w, Response{Code: http.StatusOK, Data: guests})
}

func (h *Handler) GetGuest(w http.ResponseWriter, r *http.Request) {
	owner, err := h.currentUserID(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: "invalid token"})
		return
	}
	guestID, ok := h.guestParam(w, r)
	if !ok {
		return
	}

	detail, err := h.guestService.GetGuest(r.Context(), guestID, owner)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.CreateResponse(w, Response{Code: http.StatusOK, Data: detail})
}

func (h *Handler) UpdateGuest(w http.ResponseWriter, r *http.Request) {
	owner, err := h.currentUserID(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: "invalid token"})
		return
	}
	guestID, ok := h.guestParam(w, r)
	if !ok {
		return
	}

	var upd service.GuestUpdate
	if !h.decode(w, r, &upd) {
		return
	}

	guest, err := h.guestService.UpdateGuest(r.Context(), guestID, owner, upd)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.CreateResponse(w, Response{Message: "guest updated successfully", Code: http.StatusOK, Data: guest})
}

func (h *Handler) DeleteGuest(w http.ResponseWriter, r *http.Request) {
	owner, err := h.currentUserID(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: "invalid token"})
		return
	}
	guestID, ok := h.guestParam(w, r)
	if !ok {
		return
	}

	if err := h.guestService.DeleteGuest(r.Context(), guestID, owner); err != nil {
		h.writeError(w, err)
		return
	}
	h.CreateResponse(w, Response{Message: "guest deleted successfully", Code: http.StatusOK})
}

// SyncGuest reconciles a saved guest with a registered user account.
func (h *Handler) SyncGuest(w http.ResponseWriter, r *http.Request) {
	owner, err := h.currentUserID(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: "invalid token"})
		return
	}
	guestID, ok := h.guestParam(w, r)
	if !ok {
		return
	}

	var in struct {
		UserID string `json:"userId"`
	}
	if !h.decode(w, r, &in) {
		return
	}
	target, err := primitive.ObjectIDFromHex(in.UserID)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid user id"})
		return
	}

	result, err := h.guestService.SyncGuest(r.Context(), guestID, owner, target)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.CreateResponse(w, Response{Message: result.Message, Code: http.StatusOK, Data: result})
}
