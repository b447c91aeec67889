package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/phrazzld/scry-assistant/internal/api"
	"github.com/phrazzld/scry-assistant/internal/config"
	"github.com/phrazzld/scry-assistant/internal/platform/logger"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	readHeaderTimeout = 10 * time.Second
	// minJanitorInterval is the shortest period between idle session sweeps.
	minJanitorInterval = time.Second
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the assistant HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			log, err := logger.Setup(cfg.Server)
			if err != nil {
				return fmt.Errorf("failed to set up logger: %w", err)
			}

			ctx := cmd.Context()
			app, err := newApplication(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer app.cleanup()

			listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.Port))
			if err != nil {
				return fmt.Errorf("failed to listen: %w", err)
			}
			return app.serve(ctx, listener)
		},
	}
}

// serve runs the HTTP API on listener until ctx is cancelled, then closes
// all sessions and shuts the server down gracefully.
func (app *application) serve(ctx context.Context, listener net.Listener) error {
	srvCfg := app.config.Server
	sessions := api.NewSessionManager(app.deps, app.config.Engine,
		api.WithMaxSessions(srvCfg.MaxSessions),
		api.WithIdleTimeout(srvCfg.SessionIdleTimeout))

	server := &http.Server{
		Handler: api.NewRouter(api.RouterConfig{
			Sessions:     sessions,
			Logger:       app.logger,
			QueryTimeout: srvCfg.QueryTimeout,
		}),
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(app.logger.Handler(), slog.LevelError),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		app.logger.Info("starting server", slog.String("addr", listener.Addr().String()))
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	if srvCfg.SessionIdleTimeout > 0 {
		g.Go(func() error {
			return sessions.RunJanitor(gctx, max(srvCfg.SessionIdleTimeout/4, minJanitorInterval))
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), srvCfg.ShutdownTimeout)
		defer cancel()
		// Deleting the sessions closes the hijacked progress sockets that
		// Shutdown does not track.
		sessions.Close(shutdownCtx)
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		app.logger.Info("server shutdown completed")
		return nil
	})
	return g.Wait()
}
