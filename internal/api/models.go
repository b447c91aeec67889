package api

import (
	"time"

	"github.com/phrazzld/scry-assistant/internal/assistant"
	"github.com/phrazzld/scry-assistant/internal/history"
	"github.com/phrazzld/scry-assistant/internal/llm"
)

// QueryRequest is the body of POST /api/sessions/{id}/queries.
type QueryRequest struct {
	Query             string `json:"query" validate:"required,max=4000"`
	IncludeTranscript bool   `json:"include_transcript"`
}

// SessionResponse describes a session.
type SessionResponse struct {
	ID         string         `json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	LastActive time.Time      `json:"last_active"`
	Studying   bool           `json:"studying"`
	Turns      []TurnResponse `json:"turns"`
}

// TurnResponse is one processed query of a session.
type TurnResponse struct {
	Query   string `json:"query"`
	Result  string `json:"result"`
	Message string `json:"message"`
}

// QueryResponse is the outcome of a query.
type QueryResponse struct {
	SessionID    string          `json:"session_id"`
	Kind         string          `json:"kind"`
	Message      string          `json:"message"`
	StateHistory []string        `json:"state_history"`
	Transcript   [][]llm.Message `json:"transcript,omitempty"`
}

func sessionToResponse(s *Session) SessionResponse {
	engine := s.Conversation().Engine()
	turns := engine.History().Turns()
	return SessionResponse{
		ID:         s.ID.String(),
		CreatedAt:  s.CreatedAt,
		LastActive: s.LastActive(),
		Studying:   engine.Studying(),
		Turns:      turnsToResponse(turns),
	}
}

func turnsToResponse(turns []history.Turn) []TurnResponse {
	out := make([]TurnResponse, len(turns))
	for i, t := range turns {
		out[i] = TurnResponse{Query: t.Query, Result: string(t.Result), Message: t.Message}
	}
	return out
}

func resultToResponse(s *Session, res *assistant.ExecutionResult, transcript bool) QueryResponse {
	states := make([]string, len(res.StateHistory))
	for i, id := range res.StateHistory {
		states[i] = string(id)
	}
	resp := QueryResponse{
		SessionID:    s.ID.String(),
		Kind:         string(res.Kind),
		Message:      res.Message,
		StateHistory: states,
	}
	if transcript {
		resp.Transcript = res.Transcript
	}
	return resp
}
