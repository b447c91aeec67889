package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/scry-assistant/internal/command"
	"github.com/phrazzld/scry-assistant/internal/domain"
	"github.com/phrazzld/scry-assistant/internal/events"
	"github.com/phrazzld/scry-assistant/internal/llm"
	"github.com/phrazzld/scry-assistant/internal/search"
)

// substringParams is one keyword of an exact search. Every key is required.
type substringParams struct {
	Term          *string `json:"search_substring" validate:"required"`
	InQuestion    *bool   `json:"search_in_question" validate:"required"`
	InAnswer      *bool   `json:"search_in_answer" validate:"required"`
	CaseSensitive *bool   `json:"case_sensitive" validate:"required"`
}

func (p substringParams) strategy() (search.Substring, error) {
	term := strings.TrimSpace(*p.Term)
	if term == "" {
		return search.Substring{}, fmt.Errorf("%w: key %q must not be empty", command.ErrFieldValue, "search_substring")
	}
	return search.Substring{
		Term:          term,
		InQuestion:    *p.InQuestion,
		InAnswer:      *p.InAnswer,
		CaseSensitive: *p.CaseSensitive,
	}, nil
}

// fuzzyParams is one keyword of a fuzzy search.
type fuzzyParams struct {
	substringParams
	Fuzzy *float64 `json:"fuzzy" validate:"required,gte=0,lte=1"`
}

// contentParams is the description of a content search.
type contentParams struct {
	Prompt *string `json:"search_prompt" validate:"required"`
}

// decodeParams decodes every object of a reply into T with the exact key
// set T declares.
func decodeParams[T any](reply string) ([]T, error) {
	objects, _, err := command.Extract(reply)
	if err != nil {
		return nil, err
	}
	if len(objects) == 0 {
		return nil, fmt.Errorf("%w: the answer must contain at least one object", command.ErrFieldValue)
	}

	params := make([]T, 0, len(objects))
	for i, raw := range objects {
		var p T
		if err := command.DecodeStrict(raw, &p); err != nil {
			return nil, fmt.Errorf("object %d: %w", i+1, err)
		}
		if err := command.Validate(p); err != nil {
			return nil, fmt.Errorf("object %d: %w", i+1, err)
		}
		params = append(params, p)
	}
	return params, nil
}

func paramsFeedback(err error) string {
	if errors.Is(err, command.ErrMalformed) {
		return fmt.Sprintf("Your answer must be valid JSON. Error: %v. Please try again.", err)
	}
	return fmt.Sprintf("Your answer could not be used: %v. Please try again.", err)
}

// selectSearchDecks asks which decks to search: "all" or an exact list.
func (e *Engine) selectSearchDecks(ctx context.Context, r *Run) (Outcome, error) {
	decks, err := e.listDecks(ctx, r)
	if err != nil {
		return Outcome{}, err
	}
	if len(decks) == 0 {
		return r.finish(StateMissingInformation, "There are no decks to search in yet."), nil
	}

	byName := make(map[string]*domain.Deck, len(decks))
	for _, d := range decks {
		byName[d.Name] = d
	}

	prompt, err := renderPrompt(promptSelectDecks, promptData{Input: r.prompt, Decks: renderDeckList(decks)})
	if err != nil {
		return Outcome{}, err
	}

	err = r.converse(ctx, prompt, e.cfg.Attempts.Classification, func(_ context.Context, reply string) (string, error) {
		answer := llm.CleanReply(reply)
		if strings.EqualFold(answer, "all") {
			r.decks = decks
			return "", nil
		}

		var selected []*domain.Deck
		var unknown []string
		seen := make(map[string]bool)
		for _, part := range strings.Split(answer, ",") {
			name := strings.Trim(strings.TrimSpace(part), `"'`)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			if d, ok := byName[name]; ok {
				selected = append(selected, d)
			} else {
				unknown = append(unknown, name)
			}
		}

		if len(unknown) > 0 || len(selected) == 0 {
			var b strings.Builder
			if len(unknown) > 0 {
				fmt.Fprintf(&b, "The following deck names are unknown: %s.\n", strings.Join(unknown, ", "))
			} else {
				b.WriteString("Your answer did not name any deck.\n")
			}
			b.WriteString(`If you want to search in all decks, answer "all" and nothing else. ` +
				"If you want to search in specific decks, answer their names as a comma-separated list.\n" +
				"Please make sure to exactly match the deck names.")
			return b.String(), nil
		}

		r.decks = selected
		return "", nil
	})
	if err != nil {
		return Outcome{}, err
	}
	return goTo(StateClassifySearch), nil
}

func (e *Engine) classifySearch(ctx context.Context, r *Run) (Outcome, error) {
	prompt, err := renderPrompt(promptClassifySearch, promptData{Input: r.prompt})
	if err != nil {
		return Outcome{}, err
	}

	signal, err := r.classify(ctx, prompt, e.cfg.Attempts.Classification,
		`Your answer must be either "exact", "fuzzy" or "content", **and nothing else**.`,
		"exact", "fuzzy", "content")
	if err != nil {
		return Outcome{}, err
	}

	switch signal {
	case "exact":
		return goTo(StateExactSearch), nil
	case "fuzzy":
		return goTo(StateFuzzySearch), nil
	default:
		return goTo(StateContentSearch), nil
	}
}

func (e *Engine) exactSearch(ctx context.Context, r *Run) (Outcome, error) {
	prompt, err := renderPrompt(promptExactSearch, promptData{Input: r.prompt})
	if err != nil {
		return Outcome{}, err
	}

	err = r.converse(ctx, prompt, e.cfg.Attempts.Parameters, func(_ context.Context, reply string) (string, error) {
		params, err := decodeParams[substringParams](reply)
		if err != nil {
			return paramsFeedback(err), nil
		}
		strategies := make([]search.Strategy, 0, len(params))
		for _, p := range params {
			s, err := p.strategy()
			if err != nil {
				return paramsFeedback(err), nil
			}
			strategies = append(strategies, s)
		}
		r.strategies = strategies
		return "", nil
	})
	if err != nil {
		return Outcome{}, err
	}

	r.searchKind = StateExactSearch
	return goTo(StateVerifySearch), nil
}

func (e *Engine) fuzzySearch(ctx context.Context, r *Run) (Outcome, error) {
	prompt, err := renderPrompt(promptFuzzySearch, promptData{Input: r.prompt, Threshold: e.cfg.FuzzyThreshold})
	if err != nil {
		return Outcome{}, err
	}

	err = r.converse(ctx, prompt, e.cfg.Attempts.Parameters, func(_ context.Context, reply string) (string, error) {
		params, err := decodeParams[fuzzyParams](reply)
		if err != nil {
			return paramsFeedback(err), nil
		}
		strategies := make([]search.Strategy, 0, len(params))
		for _, p := range params {
			sub, err := p.strategy()
			if err != nil {
				return paramsFeedback(err), nil
			}
			f, err := search.NewFuzzy(sub, *p.Fuzzy)
			if err != nil {
				return paramsFeedback(err), nil
			}
			strategies = append(strategies, f)
		}
		r.strategies = strategies
		return "", nil
	})
	if err != nil {
		return Outcome{}, err
	}

	r.searchKind = StateFuzzySearch
	return goTo(StateVerifySearch), nil
}

func (e *Engine) contentSearch(ctx context.Context, r *Run) (Outcome, error) {
	prompt, err := renderPrompt(promptContentSearch, promptData{Input: r.prompt})
	if err != nil {
		return Outcome{}, err
	}

	var description string
	err = r.converse(ctx, prompt, e.cfg.Attempts.Parameters, func(_ context.Context, reply string) (string, error) {
		params, err := decodeParams[contentParams](reply)
		if err != nil {
			return paramsFeedback(err), nil
		}
		if len(params) != 1 {
			return paramsFeedback(fmt.Errorf("%w: expected exactly one object", command.ErrFieldValue)), nil
		}
		description = strings.TrimSpace(*params[0].Prompt)
		if description == "" {
			return paramsFeedback(fmt.Errorf("%w: key %q must not be empty", command.ErrFieldValue, "search_prompt")), nil
		}
		return "", nil
	})
	if err != nil {
		return Outcome{}, err
	}

	var semantic *search.Semantic
	err = r.retry(ctx, "search index", func() error {
		var err error
		semantic, err = search.NewSemantic(ctx, e.index, description, e.cfg.ContentTopK)
		return err
	})
	if err != nil {
		return Outcome{}, err
	}

	r.strategies = []search.Strategy{semantic}
	r.searchKind = StateContentSearch
	return goTo(StateVerifySearch), nil
}

// verifySearch runs the chosen search and lets the model judge a sample of
// the result. An exact search without matches is repeated as a fuzzy
// search. A rejected result sends the run back to the search selection
// once.
func (e *Engine) verifySearch(ctx context.Context, r *Run) (Outcome, error) {
	cards, err := e.listCards(ctx, r, r.decks)
	if err != nil {
		return Outcome{}, err
	}

	found := search.UnionSearchAll(r.strategies, cards)
	if len(found) == 0 && r.searchKind == StateExactSearch {
		r.strategies = e.fuzzyFallback(r.strategies)
		r.searchKind = StateFuzzySearch
		found = search.UnionSearchAll(r.strategies, cards)
		r.logger.InfoContext(ctx, "exact search found nothing, fell back to fuzzy search",
			slog.Int("found", len(found)))
		r.emit(ctx, events.KindState, "Exact search found no cards, trying fuzzy search.")
	}

	if len(found) == 0 {
		return r.finish(StateFinishedTask, "The search found no matching cards."), nil
	}

	sample := found[:min(len(found), e.cfg.VerifySampleSize)]
	prompt, err := renderPrompt(promptVerifySearch, promptData{
		Input:  r.prompt,
		Search: describeStrategies(r.strategies),
		Total:  len(found),
		Cards:  renderCards(sample),
	})
	if err != nil {
		return Outcome{}, err
	}

	signal, err := r.classify(ctx, prompt, e.cfg.Attempts.Classification,
		"Your answer must be either 'yes' or 'no'.", "yes", "no")
	if err != nil {
		return Outcome{}, err
	}

	if signal == "yes" {
		r.found = found
		return goTo(StateClassifyFoundCards), nil
	}
	if !r.searchRetried {
		r.searchRetried = true
		r.strategies = nil
		return goTo(StateClassifySearch), nil
	}
	return r.finish(StateMissingInformation,
		"The search did not find the cards you meant. Please describe them more precisely."), nil
}

// fuzzyFallback turns exact keywords into fuzzy ones at the configured threshold.
func (e *Engine) fuzzyFallback(strategies []search.Strategy) []search.Strategy {
	fallback := make([]search.Strategy, 0, len(strategies))
	for _, s := range strategies {
		sub, ok := s.(search.Substring)
		if !ok {
			continue
		}
		f, err := search.NewFuzzy(sub, e.cfg.FuzzyThreshold)
		if err != nil {
			continue
		}
		fallback = append(fallback, f)
	}
	return fallback
}

func describeStrategies(strategies []search.Strategy) string {
	parts := make([]string, len(strategies))
	for i, s := range strategies {
		parts[i] = s.Describe()
	}
	return strings.Join(parts, " or ")
}
