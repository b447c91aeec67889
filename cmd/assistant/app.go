package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-assistant/internal/assistant"
	"github.com/phrazzld/scry-assistant/internal/config"
	"github.com/phrazzld/scry-assistant/internal/domain/srs"
	"github.com/phrazzld/scry-assistant/internal/platform/gemini"
	"github.com/phrazzld/scry-assistant/internal/platform/memory"
	"github.com/phrazzld/scry-assistant/internal/platform/postgres"
	"github.com/phrazzld/scry-assistant/internal/redact"
	"github.com/phrazzld/scry-assistant/internal/search"
	"github.com/phrazzld/scry-assistant/internal/store"
)

// application holds the configured collaborators shared by every command.
type application struct {
	config *config.Config
	logger *slog.Logger
	deps   assistant.Dependencies
	db     *sql.DB
}

// newApplication opens the repository and the Gemini client described by cfg.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{config: cfg, logger: logger}

	repo, err := app.openRepository(ctx)
	if err != nil {
		return nil, err
	}

	client, err := gemini.NewClient(ctx, cfg.LLM)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	model, err := gemini.NewModel(client.Models, cfg.LLM, logger)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create language model: %w", err)
	}
	embedder, err := gemini.NewEmbedder(client.Models, cfg.LLM, logger)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	app.deps = assistant.Dependencies{
		Model:      model,
		Repository: repo,
		Index:      search.NewCardIndex(repo, embedder, logger),
		Scheduler:  srs.NewDefaultScheduler(),
		Logger:     logger,
	}
	return app, nil
}

// openRepository selects PostgreSQL when a database URL is configured and
// the in-memory repository otherwise.
func (app *application) openRepository(ctx context.Context) (store.Repository, error) {
	dbCfg := app.config.Database
	if dbCfg.URL == "" {
		repo := memory.NewRepository(app.logger)
		if dbCfg.SeedFile != "" {
			if err := repo.LoadSeed(ctx, dbCfg.SeedFile); err != nil {
				return nil, fmt.Errorf("failed to load seed file: %w", err)
			}
		}
		app.logger.Info("using in-memory repository", slog.Bool("seeded", dbCfg.SeedFile != ""))
		return repo, nil
	}

	db, err := postgres.Open(ctx, dbCfg.URL)
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(ctx, db, app.logger); err != nil {
		_ = db.Close()
		return nil, err
	}
	app.db = db
	app.logger.Info("using postgres repository")
	return postgres.NewRepository(db, app.logger), nil
}

// cleanup releases the resources opened by newApplication.
func (app *application) cleanup() {
	if app.db == nil {
		return
	}
	if err := app.db.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		app.logger.Error("failed to close database", redact.Attr(err))
	}
	app.db = nil
}
