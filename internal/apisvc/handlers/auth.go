package handlers

import (
	"net/http"

	"github.com/tavolo/tabletop-services/internal/apisvc/service"
)

type authResponse struct {
	Token string      `json:"token"`
	User  interface{} `json:"user"`
}

type userSummary struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Avatar          string `json:"avatar,omitempty"`
	IsEmailVerified bool   `json:"isEmailVerified"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if !h.decode(w, r, &in) {
		return
	}

	user, err := h.authService.Register(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.CreateResponse(w, Response{
		Message: "user created successfully",
		Code:    http.StatusCreated,
		Data: authResponse{
			Token: h.issueToken(user.ID),
			User: userSummary{
				ID:              user.ID.Hex(),
				Username:        user.Username,
				Email:           user.Email,
				Avatar:          user.Avatar,
				IsEmailVerified: user.IsEmailVerified,
			},
		},
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !h.decode(w, r, &in) {
		return
	}

	user, err := h.authService.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.CreateResponse(w, Response{
		Code: http.StatusOK,
		Data: authResponse{
			Token: h.issueToken(user.ID),
			User: userSummary{
				ID:              user.ID.Hex(),
				Username:        user.Username,
				Email:           user.Email,
				Avatar:          user.Avatar,
				IsEmailVerified: user.IsEmailVerified,
			},
		},
	})
}

func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if err := h.authService.VerifyEmail(r.Context(), token); err != nil {
		h.writeError(w, err)
		return
	}
	h.CreateResponse(w, Response{Message: "email verified successfully", Code: http.StatusOK})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := h.currentUserID(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: "invalid token"})
		return
	}

	me, err := h.userService.GetMe(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.CreateResponse(w, Response{Code: http.StatusOK, Data: me})
}
