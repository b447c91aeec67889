package assistant

import (
	"context"
	"fmt"
	"slices"

	"github.com/phrazzld/scry-assistant/internal/history"
)

// StateID names a node of the conversation graph.
type StateID string

// States of the conversation graph
const (
	StateClassifyRequest StateID = "classify_request"

	StateRewriteTask            StateID = "rewrite_task"
	StateClassifyTask           StateID = "classify_task"
	StateExecuteTask            StateID = "execute_task"
	StateReferencePreviousCards StateID = "reference_previous_cards"

	StateSelectSearchDecks StateID = "select_search_decks"
	StateClassifySearch    StateID = "classify_search"
	StateExactSearch       StateID = "exact_search"
	StateFuzzySearch       StateID = "fuzzy_search"
	StateContentSearch     StateID = "content_search"
	StateVerifySearch      StateID = "verify_search"

	StateClassifyFoundCards StateID = "classify_found_cards"
	StateCopyFoundCards     StateID = "copy_found_cards"
	StateDeleteFoundCards   StateID = "delete_found_cards"
	StateStreamFoundCards   StateID = "stream_found_cards"

	StateClassifyQuestion      StateID = "classify_question"
	StateAnswerContentQuestion StateID = "answer_content_question"
	StateAnswerSystemQuestion  StateID = "answer_system_question"

	StateStartStudy         StateID = "start_study"
	StateClassifyStudyInput StateID = "classify_study_input"
	StateExtractStudyAnswer StateID = "extract_study_answer"
	StateJudgeStudyAnswer   StateID = "judge_study_answer"

	// Terminal states
	StateAnswer             StateID = "answer"
	StateFinishedTask       StateID = "finished_task"
	StateMissingInformation StateID = "finished_missing_information"
	StateFinishedStudy      StateID = "finished_study"
)

// Final is how a run ended.
type Final struct {
	Kind    history.Result
	Message string
}

// Outcome is the result of one state's Act: either the next state or, for
// terminal states, the final result.
type Outcome struct {
	Next  StateID
	Final *Final
}

// State is one node of the conversation graph.
type State interface {
	Act(ctx context.Context, r *Run) (Outcome, error)
}

// StateFunc adapts a function to the State interface.
type StateFunc func(ctx context.Context, r *Run) (Outcome, error)

// Act implements State.
func (f StateFunc) Act(ctx context.Context, r *Run) (Outcome, error) {
	return f(ctx, r)
}

func goTo(id StateID) Outcome {
	return Outcome{Next: id}
}

type node struct {
	state State
	next  []StateID
}

// transitions is the state graph: every state with the successors it may
// move to. Terminal states have no successors.
type transitions map[StateID]node

func (t transitions) register(id StateID, state State, next ...StateID) {
	if _, exists := t[id]; exists {
		// ALLOW-PANIC: programming error during engine construction
		panic(fmt.Sprintf("state %s registered twice", id))
	}
	t[id] = node{state: state, next: next}
}

// terminal registers a state that ends the run with the message prepared by
// the state before it.
func (t transitions) terminal(id StateID, kind history.Result) {
	t.register(id, StateFunc(func(_ context.Context, r *Run) (Outcome, error) {
		return Outcome{Final: &Final{Kind: kind, Message: r.message}}, nil
	}))
}

// validate checks that every successor is registered.
func (t transitions) validate() error {
	for id, n := range t {
		for _, next := range n.next {
			if _, ok := t[next]; !ok {
				return fmt.Errorf("%w: %s -> %s", ErrUnknownState, id, next)
			}
		}
	}
	return nil
}

func (t transitions) allows(from, to StateID) bool {
	return slices.Contains(t[from].next, to)
}
