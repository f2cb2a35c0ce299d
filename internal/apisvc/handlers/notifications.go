package handlers

import (
	"net/http"

	"github.com/go-chi/chi"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const defaultNotificationPageSize = 20

func (h *Handler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	userID, err := h.currentUserID(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: "invalid token"})
		return
	}

	page, limit := pageParams(r, defaultNotificationPageSize)
	result, err := h.notificationService.GetUserNotifications(r.Context(), userID, page, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.CreateResponse(w, Response{Code: http.StatusOK, Data: result})
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	userID, err := h.currentUserID(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: "invalid token"})
		return
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "notificationId"))
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid notification id"})
		return
	}

	notification, err := h.notificationService.MarkAsRead(r.Context(), id, userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.CreateResponse(w, Response{Message: "notification marked as read", Code: http.StatusOK, Data: notification})
}

func (h *Handler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	userID, err := h.currentUserID(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: "invalid token"})
		return
	}

	count, err := h.notificationService.MarkAllAsRead(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.CreateResponse(w, Response{
		Message: "all notifications marked as read",
		Code:    http.StatusOK,
		Data:    map[string]int64{"updated": count},
	})
}
