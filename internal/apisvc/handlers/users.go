package handlers

import (
	"net/http"

	"github.com/go-chi/chi"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tavolo/tabletop-services/internal/apisvc/models"
)

func (h *Handler) userParam(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userId"))
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid user id"})
		return primitive.NilObjectID, false
	}
	return id, true
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := h.currentUserID(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: "invalid token"})
		return
	}

	var in struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if !h.decode(w, r, &in) {
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), userID, in.Username, in.Email)
	if err != nil {
		h.writeError(w, err)
		return
	}
	user.Password = ""
	user.EmailVerifyToken = ""
	h.CreateResponse(w, Response{Message: "profile updated successfully", Code: http.StatusOK, Data: user})
}

func (h *Handler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	userID, err := h.currentUserID(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: "invalid token"})
		return
	}

	var in struct {
		Avatar string `json:"avatar"`
	}
	if !h.decode(w, r, &in) {
		return
	}

	user, err := h.userService.SetAvatar(r.Context(), userID, in.Avatar)
	if err != nil {
		h.writeError(w, err)
		return
	}
	user.Password = ""
	user.EmailVerifyToken = ""
	h.CreateResponse(w, Response{Message: "avatar updated successfully", Code: http.StatusOK, Data: user})
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, err := h.currentUserID(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: "invalid token"})
		return
	}

	if err := h.userService.DeleteUser(r.Context(), userID); err != nil {
		h.writeError(w, err)
		return
	}
	h.CreateResponse(w, Response{Message: "account deleted successfully", Code: http.StatusOK})
}

func (h *Handler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.SearchUsers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	refs := make([]models.UserRef, 0, len(users))
	for i := range users {
		refs = append(refs, users[i].Ref())
	}
	h.CreateResponse(w, Response{Code: http.StatusOK, Data: refs})
}

func (h *Handler) GetUserStats(w http.ResponseWriter, r *http.Request) {
	userID, err := h.currentUserID(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: "invalid token"})
		return
	}

	stats, err := h.userService.GetUserStats(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.CreateResponse(w, Response{Code: http.StatusOK, Data: stats})
}

func (h *Handler) GetUserProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userParam(w, r)
	if !ok {
		return
	}

	profile, err := h.userService.GetUserProfile(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.CreateResponse(w, Response{Code: http.StatusOK, Data: profile})
}

func (h *Handler) SendFriendRequest(w http.ResponseWriter, r *http.Request) {
	current, err := h.currentUser(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	targetID, ok := h.userParam(w, r)
	if !ok {
		return
	}

	notification, err := h.userService.SendFriendRequest(r.Context(), current, targetID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if stored, err := h.notificationService.Create(r.Context(), notification); err == nil {
		h.broker.PublishNotification(stored, current.Ref())
	}

	h.CreateResponse(w, Response{Message: "friend request sent", Code: http.StatusOK})
}

func (h *Handler) AcceptFriendRequest(w http.ResponseWriter, r *http.Request) {
	current, err := h.currentUser(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	senderID, ok := h.userParam(w, r)
	if !ok {
		return
	}

	notification, err := h.userService.AcceptFriendRequest(r.Context(), current, senderID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if stored, err := h.notificationService.Create(r.Context(), notification); err == nil {
		h.broker.PublishNotification(stored, current.Ref())
	}

	h.CreateResponse(w, Response{Message: "friend request accepted", Code: http.StatusOK})
}

func (h *Handler) AddGame(w http.ResponseWriter, r *http.Request) {
	userID, err := h.currentUserID(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: "invalid token"})
		return
	}

	var game models.GameEntry
	if !h.decode(w, r, &game) {
		return
	}

	if err := h.userService.AddGame(r.Context(), userID, game); err != nil {
		h.writeError(w, err)
		return
	}
	h.CreateResponse(w, Response{Message: "game added to collection", Code: http.StatusCreated})
}

func (h *Handler) RemoveGame(w http.ResponseWriter, r *http.Request) {
	userID, err := h.currentUserID(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: "invalid token"})
		return
	}

	if err := h.userService.RemoveGame(r.Context(), userID, chi.URLParam(r, "bggId")); err != nil {
		h.writeError(w, err)
		return
	}
	h.CreateResponse(w, Response{Message: "game removed from collection", Code: http.StatusOK})
}
