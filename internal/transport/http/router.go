package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/dkovacev/chatter/internal/transport/http/handlers"
	"github.com/dkovacev/chatter/internal/transport/http/middleware"
	"github.com/dkovacev/chatter/internal/transport/ws"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(
	logger zerolog.Logger,
	jwtSecret string,
	hub *ws.Hub,
	authHandler *handlers.AuthHandler,
	convHandler *handlers.ConversationHandler,
	msgHandler *handlers.MessageHandler,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Metrics)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok"}`))
	})

	// Public
	r.Post("/api/v1/auth/register", authHandler.Register)
	r.Post("/api/v1/auth/login", authHandler.Login)

	// WebSocket upgrade (token via query param)
	r.Get("/ws", ws.ServeWS(hub, jwtSecret, logger))

	// Protected
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(jwtSecret))

		r.Post("/api/v1/conversations", convHandler.CreateOrGet)
		r.Get("/api/v1/conversations", convHandler.List)
		r.Get("/api/v1/conversations/{id}/messages", msgHandler.List)
		r.Post("/api/v1/conversations/{id}/read", convHandler.MarkRead)
		r.Delete("/api/v1/conversations/{id}", convHandler.Delete)
		r.Post("/api/v1/messages", msgHandler.Send)
	})

	return r
}
