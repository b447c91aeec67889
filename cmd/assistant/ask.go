package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/phrazzld/scry-assistant/internal/assistant"
	"github.com/phrazzld/scry-assistant/internal/config"
	"github.com/phrazzld/scry-assistant/internal/events"
	"github.com/phrazzld/scry-assistant/internal/platform/logger"
	"github.com/phrazzld/scry-assistant/internal/redact"
	"github.com/spf13/cobra"
)

const prompt = "> "

func newAskCmd() *cobra.Command {
	var progress bool

	cmd := &cobra.Command{
		Use:   "ask [query]",
		Short: "Ask the assistant once, or start an interactive session",
		Long: `With a query, ask runs it and prints the answer. Without one it reads
queries from standard input line by line until EOF or "exit".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			// Log records go to stderr; stdout carries only answers.
			log, err := logger.SetupWithWriter(cfg.Server, cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("failed to set up logger: %w", err)
			}

			ctx := cmd.Context()
			app, err := newApplication(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer app.cleanup()

			var progressOut io.Writer
			if progress {
				progressOut = cmd.ErrOrStderr()
			}
			return app.ask(ctx, args, cmd.InOrStdin(), cmd.OutOrStdout(), progressOut)
		},
	}
	cmd.Flags().BoolVar(&progress, "progress", false, "print state transitions and actions to stderr")
	return cmd
}

// ask answers the query in args, or every line of in when args is empty.
// A non-nil progress writer receives state and action events.
func (app *application) ask(ctx context.Context, args []string, in io.Reader, out, progress io.Writer) error {
	deps := app.deps
	if progress != nil {
		emitter := events.NewInMemoryEventEmitter(app.logger)
		emitter.RegisterHandler(events.HandlerFunc(func(_ context.Context, ev *events.ProgressEvent) error {
			if ev.Kind == events.KindResult {
				return nil
			}
			_, err := fmt.Fprintf(progress, "[%s] %s\n", ev.Kind, ev.Message)
			return err
		}))
		deps.Emitter = emitter
	}

	conv, err := assistant.NewConversation(deps, app.config.Engine)
	if err != nil {
		return fmt.Errorf("failed to start conversation: %w", err)
	}

	if len(args) > 0 {
		res, err := conv.Process(ctx, strings.Join(args, " "))
		if _, werr := fmt.Fprintln(out, res.Message); werr != nil {
			return werr
		}
		return err
	}

	scanner := bufio.NewScanner(in)
	for {
		if _, err := fmt.Fprint(out, prompt); err != nil {
			return err
		}
		if !scanner.Scan() {
			break
		}
		query := strings.TrimSpace(scanner.Text())
		switch query {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		res, err := conv.Process(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			app.logger.Warn("query failed",
				slog.String("result", string(res.Kind)),
				redact.Attr(err))
		}
		if _, err := fmt.Fprintln(out, res.Message); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(out); err != nil {
		return err
	}
	return scanner.Err()
}
