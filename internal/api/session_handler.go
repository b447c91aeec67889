package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/scry-assistant/internal/api/shared"
	"github.com/phrazzld/scry-assistant/internal/assistant"
	"github.com/phrazzld/scry-assistant/internal/platform/logger"
	"github.com/phrazzld/scry-assistant/internal/redact"
)

// SessionHandler serves the session and query endpoints.
type SessionHandler struct {
	sessions     *SessionManager
	queryTimeout time.Duration
}

// NewSessionHandler creates a SessionHandler. A positive queryTimeout
// bounds every query run.
func NewSessionHandler(sessions *SessionManager, queryTimeout time.Duration) *SessionHandler {
	return &SessionHandler{sessions: sessions, queryTimeout: queryTimeout}
}

// CreateSession handles POST /api/sessions.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Create(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, sessionToResponse(s))
}

// GetSession handles GET /api/sessions/{id}.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFromPath(w, r, h.sessions)
	if !ok {
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, sessionToResponse(s))
}

// DeleteSession handles DELETE /api/sessions/{id}.
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFromPath(w, r, h.sessions)
	if !ok {
		return
	}
	if err := h.sessions.Delete(r.Context(), s.ID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PostQuery handles POST /api/sessions/{id}/queries. The response carries
// the assistant's message even when the run failed; the status tells
// clients whether the failure was on the server side.
func (h *SessionHandler) PostQuery(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFromPath(w, r, h.sessions)
	if !ok {
		return
	}

	var req QueryRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	ctx := r.Context()
	if h.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.queryTimeout)
		defer cancel()
	}

	res, err := h.sessions.Query(ctx, s.ID, req.Query)
	if errors.Is(err, ErrSessionNotFound) {
		HandleAPIError(w, r, err, "")
		return
	}

	status := http.StatusOK
	if err != nil {
		log := logger.FromContext(r.Context())
		if r.Context().Err() != nil {
			log.InfoContext(r.Context(), "client went away during query",
				slog.String("session_id", s.ID.String()))
			return
		}
		if !errors.Is(err, assistant.ErrAttemptsExhausted) {
			status = MapErrorToStatusCode(err)
		}
		log.WarnContext(r.Context(), "query failed",
			slog.String("session_id", s.ID.String()),
			slog.Int("status", status),
			redact.Attr(err))
	}

	shared.RespondWithJSON(w, r, status, resultToResponse(s, res, req.IncludeTranscript))
}
