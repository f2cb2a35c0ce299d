package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/jwtauth"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tavolo/tabletop-services/internal/apisvc/broker"
	"github.com/tavolo/tabletop-services/internal/apisvc/models"
	"github.com/tavolo/tabletop-services/internal/apisvc/service"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	tokenAuth *jwtauth.JWTAuth

	authService         *service.AuthService
	userService         *service.UserService
	guestService        *service.GuestService
	guestSyncService    *service.GuestSyncService
	matchService        *service.MatchService
	notificationService *service.NotificationService
	broker              *broker.Broker
}

func NewHandler(
	authService *service.AuthService,
	userService *service.UserService,
	guestService *service.GuestService,
	guestSyncService *service.GuestSyncService,
	matchService *service.MatchService,
	notificationService *service.NotificationService,
	b *broker.Broker,
) *Handler {
	return &Handler{
		authService:         authService,
		userService:         userService,
		guestService:        guestService,
		guestSyncService:    guestSyncService,
		matchService:        matchService,
		notificationService: notificationService,
		broker:              b,
	}
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)

	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

// writeError maps the error taxonomy to HTTP status codes. Unknown
// errors are logged and hidden behind a generic server error.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var code int
	switch {
	case models.IsValidation(err), models.IsDuplicate(err):
		code = http.StatusBadRequest
	case models.IsNotFound(err):
		code = http.StatusNotFound
	case models.IsConflict(err):
		code = http.StatusConflict
	default:
		log.Errorf("internal error: %v", err)
		h.CreateResponse(w, Response{Message: "server error", Code: http.StatusInternalServerError, Error: "internal server error"})
		return
	}
	h.CreateResponse(w, Response{Code: code, Error: err.Error()})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid request body"})
		return false
	}
	return true
}

// currentUserID reads the authenticated user id from the verified JWT
// claims.
func (h *Handler) currentUserID(r *http.Request) (primitive.ObjectID, error) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return primitive.NilObjectID, err
	}
	raw, _ := claims["user_id"].(string)
	return primitive.ObjectIDFromHex(raw)
}

// currentUser loads the full authenticated user document.
func (h *Handler) currentUser(r *http.Request) (*models.User, error) {
	id, err := h.currentUserID(r)
	if err != nil {
		return nil, err
	}
	return h.authService.GetUser(r.Context(), id)
}

func (h *Handler) issueToken(userID primitive.ObjectID) string {
	_, tokenString, _ := h.tokenAuth.Encode(map[string]interface{}{
		"user_id": userID.Hex(),
		"exp":     time.Now().Add(7 * 24 * time.Hour).Unix(),
	})
	return tokenString
}

func pageParams(r *http.Request, defaultLimit int64) (int64, int64) {
	page, err := strconv.ParseInt(r.URL.Query().Get("page"), 10, 64)
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	return page, limit
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	rsp := Response{
		Message: "api service is running at port " + os.Getenv("API_SERVICE_PORT"),
		Code:    200,
		Data:    nil,
	}
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode health response: %v", err)
	}
}
