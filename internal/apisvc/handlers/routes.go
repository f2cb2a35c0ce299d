package handlers

import (
	"os"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
)

func (h *Handler) SetRoutes(r *chi.Mux) {
	r.Route("/v1", func(r chi.Router) {

		// public routes
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)
		r.Get("/auth/verify-email", h.VerifyEmail)

		// Secure routes
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(h.tokenAuth))
			r.Use(jwtauth.Authenticator)

			r.Get("/health", h.HealthHandler)
			r.Get("/auth/me", h.Me)

			r.Route("/users", func(r chi.Router) {
				r.Put("/profile", h.UpdateProfile)
				r.Put("/avatar", h.UpdateAvatar)
				r.Delete("/", h.DeleteUser)
				r.Get("/search", h.SearchUsers)
				r.Get("/stats", h.GetUserStats)
				r.Post("/friends/{userId}", h.SendFriendRequest)
				r.Put("/friends/{userId}/accept", h.AcceptFriendRequest)
				r.Post("/games", h.AddGame)
				r.Delete("/games/{bggId}", h.RemoveGame)
				r.Get("/{userId}", h.GetUserProfile)
			})

			r.Route("/guests", func(r chi.Router) {
				r.Post("/", h.CreateGuest)
				r.Get("/", h.GetGuests)
				r.Get("/search", h.SearchGuests)
				r.Get("/{guestId}", h.GetGuest)
				r.Put("/{guestId}", h.UpdateGuest)
				r.Delete("/{guestId}", h.DeleteGuest)
				r.Post("/{guestId}/sync", h.SyncGuest)
			})

			r.Route("/guest-sync", func(r chi.Router) {
				r.Get("/find-matches", h.FindGuestMatches)
				r.Post("/manual-sync", h.ManualSync)
			})

			r.Route("/matches", func(r chi.Router) {
				r.Post("/", h.CreateMatch)
				r.Get("/", h.GetUserMatches)
				r.Get("/game/{gameId}", h.GetMatchesByGame)
				r.Get("/{matchId}", h.GetMatch)
				r.Put("/{matchId}", h.UpdateMatch)
				r.Delete("/{matchId}", h.DeleteMatch)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", h.GetNotifications)
				r.Put("/read-all", h.MarkAllNotificationsRead)
				r.Put("/{notificationId}/read", h.MarkNotificationRead)
			})
		})
	})
}

func (h *Handler) InitAuth() {
	var jwtKey = os.Getenv("JWT_SECRET_KEY")
	h.tokenAuth = jwtauth.New("HS256", []byte(jwtKey), nil)
}
