package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/phrazzld/scry-assistant/internal/events"
	"github.com/phrazzld/scry-assistant/internal/platform/logger"
	"github.com/phrazzld/scry-assistant/internal/redact"
)

// Progress stream defaults
const (
	DefaultProgressBuffer = 64
	progressWriteWait     = 10 * time.Second
	progressPingPeriod    = 30 * time.Second
)

// ErrSubscriberTooSlow is reported to the emitter when a progress stream
// cannot keep up. The event is dropped for that stream only.
var ErrSubscriberTooSlow = errors.New("progress subscriber too slow")

// ProgressHandler streams the progress events of a session over a
// websocket as JSON messages.
type ProgressHandler struct {
	sessions *SessionManager
	upgrader websocket.Upgrader
	buffer   int
}

// NewProgressHandler creates a ProgressHandler. checkOrigin may be nil to
// apply the same-origin check of the websocket package.
func NewProgressHandler(sessions *SessionManager, checkOrigin func(*http.Request) bool) *ProgressHandler {
	return &ProgressHandler{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		buffer: DefaultProgressBuffer,
	}
}

// StreamProgress handles GET /api/sessions/{id}/progress. The stream ends
// when the client disconnects or the session is deleted.
func (h *ProgressHandler) StreamProgress(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFromPath(w, r, h.sessions)
	if !ok {
		return
	}
	log := logger.FromContext(r.Context()).With(slog.String("session_id", s.ID.String()))

	queue := make(chan *events.ProgressEvent, h.buffer)
	unsubscribe := h.sessions.Subscribe(s.ID, events.HandlerFunc(func(_ context.Context, event *events.ProgressEvent) error {
		select {
		case queue <- event:
			return nil
		default:
			return ErrSubscriberTooSlow
		}
	}))

	// Subscribed before the upgrade so no event of a query posted right
	// after the handshake is missed.
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader already wrote the error response.
		log.DebugContext(r.Context(), "websocket upgrade failed", redact.Attr(err))
		unsubscribe()
		return
	}

	// The client never sends data; reading detects the close handshake.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer func() {
		unsubscribe()
		_ = conn.Close()
		<-closed
	}()

	log.InfoContext(r.Context(), "progress stream opened")
	ping := time.NewTicker(progressPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			log.InfoContext(r.Context(), "progress stream closed by client")
			return
		case <-s.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session deleted"),
				time.Now().Add(progressWriteWait))
			return
		case event := <-queue:
			_ = conn.SetWriteDeadline(time.Now().Add(progressWriteWait))
			if err := conn.WriteJSON(event); err != nil {
				log.DebugContext(r.Context(), "progress write failed", redact.Attr(err))
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(progressWriteWait)); err != nil {
				return
			}
		}
	}
}
