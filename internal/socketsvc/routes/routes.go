package routes

import (
	"os"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"

	"github.com/tavolo/tabletop-services/internal/socketsvc/handlers"
	"github.com/tavolo/tabletop-services/internal/socketsvc/ws"
)

var tokenAuth *jwtauth.JWTAuth

func SetRoutes(r *chi.Mux, s *ws.Ws) {
	h := handlers.NewHandler(s, tokenAuth)
	r.Route("/v1", func(r chi.Router) {
		// token arrives as a query parameter, verified in the handler
		r.Get("/ws", h.HandleWebSocket)

		// Secure routes
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(tokenAuth))
			r.Use(jwtauth.Authenticator)

			r.Get("/health", h.HealthHandler)
		})
	})
}

func InitAuth() {
	var jwtKey = os.Getenv("JWT_SECRET_KEY")
	tokenAuth = jwtauth.New("HS256", []byte(jwtKey), nil)
}
