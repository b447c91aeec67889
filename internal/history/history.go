// Package history keeps the per-session record the assistant consults when
// building prompts: every repository action it executed, every raw user
// query and how each run ended.
package history

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-assistant/internal/domain"
)

// Action is a committed repository change. It is immutable once appended.
type Action struct {
	Description string
	Deck        *domain.Deck
	Card        *domain.Card
	At          time.Time
}

// Result identifies how a run ended, as far as the log is concerned.
type Result string

// Results recorded for turns
const (
	ResultAnswer             Result = "answer"
	ResultTaskFinished       Result = "task_finished"
	ResultMissingInformation Result = "missing_information"
	ResultStudy              Result = "study"
	ResultLimitReached       Result = "limit_reached"
	ResultFailed             Result = "failed"
)

// Turn is one processed user query and the outcome of its run.
type Turn struct {
	Query   string
	Result  Result
	Message string
}

// Log is an append-only session log. It is safe for concurrent use.
type Log struct {
	mu      sync.RWMutex
	actions []Action
	turns   []Turn
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{}
}

// Append records an action. A zero At is set to the current time.
func (l *Log) Append(a Action) {
	if a.At.IsZero() {
		a.At = time.Now().UTC()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.actions = append(l.actions, a)
}

// Actions returns a copy of all actions in order.
func (l *Log) Actions() []Action {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Action, len(l.actions))
	copy(out, l.actions)
	return out
}

// RecordTurn stores a processed query together with its outcome.
func (l *Log) RecordTurn(t Turn) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = append(l.turns, t)
}

// Turns returns a copy of all recorded turns in order.
func (l *Log) Turns() []Turn {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

// Queries returns the raw user queries in order.
func (l *Log) Queries() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, len(l.turns))
	for i, t := range l.turns {
		out[i] = t.Query
	}
	return out
}

// IsEmpty reports whether neither turns nor actions have been recorded.
func (l *Log) IsEmpty() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.turns) == 0 && len(l.actions) == 0
}

// PendingQuery joins query with every earlier query that is still waiting for
// information, using " - " as separator. A query is waiting when no run after
// it ended with something other than missing information.
func (l *Log) PendingQuery(query string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	start := 0
	for i := len(l.turns) - 1; i >= 0; i-- {
		if l.turns[i].Result != ResultMissingInformation {
			start = i + 1
			break
		}
	}

	parts := make([]string, 0, len(l.turns)-start+1)
	for _, t := range l.turns[start:] {
		parts = append(parts, t.Query)
	}
	parts = append(parts, query)
	return strings.Join(parts, " - ")
}

// ReferencedCards returns the cards produced or mutated by earlier actions,
// first occurrence first, each card once. The snapshots may be stale; callers
// reload them from the repository.
func (l *Log) ReferencedCards() []*domain.Card {
	l.mu.RLock()
	defer l.mu.RUnlock()

	seen := make(map[uuid.UUID]struct{})
	var cards []*domain.Card
	for _, a := range l.actions {
		if a.Card == nil {
			continue
		}
		if _, ok := seen[a.Card.ID]; ok {
			continue
		}
		seen[a.Card.ID] = struct{}{}
		cards = append(cards, a.Card)
	}
	return cards
}

// RenderActions renders the action log for a prompt, one action per line.
func (l *Log) RenderActions() string {
	actions := l.Actions()
	if len(actions) == 0 {
		return "(no actions yet)"
	}

	var b strings.Builder
	for i, a := range actions {
		fmt.Fprintf(&b, "%d. %s", i+1, a.Description)
		switch {
		case a.Card != nil:
			fmt.Fprintf(&b, " [card: %q / %q]", a.Card.Question, a.Card.Answer)
		case a.Deck != nil:
			fmt.Fprintf(&b, " [deck: %q]", a.Deck.Name)
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderQueries renders the query history for a prompt, one query per line.
func (l *Log) RenderQueries() string {
	queries := l.Queries()
	if len(queries) == 0 {
		return "(no previous queries)"
	}

	var b strings.Builder
	for i, q := range queries {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q)
	}
	return strings.TrimRight(b.String(), "\n")
}
