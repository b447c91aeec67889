package memory

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/phrazzld/scry-assistant/internal/domain"
	"gopkg.in/yaml.v3"
)

// Seed is the YAML document accepted by LoadSeed.
//
//	decks:
//	  - name: Physics
//	    cards:
//	      - question: What is mass?
//	        answer: Amount of matter
//	        flag: red
type Seed struct {
	Decks []SeedDeck `yaml:"decks"`
}

// SeedDeck is a deck entry of a seed file.
type SeedDeck struct {
	Name  string     `yaml:"name"`
	Cards []SeedCard `yaml:"cards"`
}

// SeedCard is a card entry of a seed file. Flag and state default to none and new.
type SeedCard struct {
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
	Flag     string `yaml:"flag"`
	State    string `yaml:"state"`
}

// LoadSeed reads a seed file from path into r.
func (r *Repository) LoadSeed(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open seed file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return r.LoadSeedFrom(ctx, f)
}

// LoadSeedFrom decodes a seed document from src into r. Decks are created in
// document order; loading stops at the first invalid entry.
func (r *Repository) LoadSeedFrom(ctx context.Context, src io.Reader) error {
	var seed Seed
	dec := yaml.NewDecoder(src)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil && err != io.EOF {
		return fmt.Errorf("failed to decode seed: %w", err)
	}

	cards := 0
	for i, sd := range seed.Decks {
		deck, err := domain.NewDeck(sd.Name)
		if err != nil {
			return fmt.Errorf("seed deck %d: %w", i, err)
		}
		if err := r.CreateDeck(ctx, deck); err != nil {
			return fmt.Errorf("seed deck %q: %w", sd.Name, err)
		}

		for j, sc := range sd.Cards {
			flag, err := parseOptional(sc.Flag, domain.ParseFlag)
			if err != nil {
				return fmt.Errorf("seed deck %q card %d: %w", sd.Name, j, err)
			}
			state, err := parseOptional(sc.State, domain.ParseCardState)
			if err != nil {
				return fmt.Errorf("seed deck %q card %d: %w", sd.Name, j, err)
			}
			card, err := domain.NewCard(deck.ID, sc.Question, sc.Answer, flag, state)
			if err != nil {
				return fmt.Errorf("seed deck %q card %d: %w", sd.Name, j, err)
			}
			if err := r.CreateCard(ctx, card); err != nil {
				return fmt.Errorf("seed deck %q card %d: %w", sd.Name, j, err)
			}
			cards++
		}
	}

	r.logger.InfoContext(ctx, "seed loaded", "decks", len(seed.Decks), "cards", cards)
	return nil
}

func parseOptional[T ~string](s string, parse func(string) (T, error)) (T, error) {
	if s == "" {
		return "", nil
	}
	return parse(s)
}
