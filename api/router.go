// Package api wires the REST surface and the websocket endpoint onto
// one chi router.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"pairchat/auth"
	"pairchat/gateway"
)

// NewRouter assembles the HTTP surface. Auth endpoints are public;
// everything else under /api requires a valid Bearer token. The
// websocket endpoint authenticates during its own handshake.
func NewRouter(authenticator auth.Authenticator, authHandler *AuthHandler,
	messageHandler *MessageHandler, userHandler *UserHandler,
	statsHandler *StatsHandler, gw *gateway.Gateway) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Route("/api", func(api chi.Router) {
		authHandler.RegisterRoutes(api)

		api.Group(func(protected chi.Router) {
			protected.Use(authenticator.Middleware)
			messageHandler.RegisterRoutes(protected)
			userHandler.RegisterRoutes(protected)
			statsHandler.RegisterRoutes(protected)
		})
	})

	r.Get("/ws", gw.Handle)

	return r
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
