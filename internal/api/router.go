package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	apimw "github.com/phrazzld/scry-assistant/internal/api/middleware"
)

// RouterConfig holds what NewRouter needs.
type RouterConfig struct {
	Sessions     *SessionManager
	Logger       *slog.Logger
	QueryTimeout time.Duration
	// CheckOrigin filters websocket origins. Nil allows same-origin only.
	CheckOrigin func(*http.Request) bool
}

// NewRouter creates the HTTP API.
func NewRouter(cfg RouterConfig) http.Handler {
	sessions := NewSessionHandler(cfg.Sessions, cfg.QueryTimeout)
	progress := NewProgressHandler(cfg.Sessions, cfg.CheckOrigin)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(apimw.NewTraceMiddleware(cfg.Logger))
	r.Use(chimw.Recoverer)

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", sessions.CreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", sessions.GetSession)
			r.Delete("/", sessions.DeleteSession)
			r.Post("/queries", sessions.PostQuery)
			r.Get("/progress", progress.StreamProgress)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			cfg.Logger.Error("failed to write health check response", slog.String("error", err.Error()))
		}
	})

	return r
}
