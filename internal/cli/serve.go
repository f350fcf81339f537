package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"futsim/internal/server"
	"futsim/persist"
)

// newServeCmd builds the long-running control server: batches advance on a
// fixed interval, the HTTP API steers the session.
func newServeCmd(rc *RootConfig) *cobra.Command {
	var (
		addr    string
		restore bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the simulation behind the HTTP control API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rc)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			session, cleanup, err := buildSession(ctx, cfg, rc)
			if err != nil {
				return err
			}
			defer cleanup()

			if restore {
				if err := session.Restore(ctx); err != nil && !errors.Is(err, persist.ErrNotFound) {
					return err
				}
			}

			interval, err := time.ParseDuration(cfg.Server.BatchInterval)
			if err != nil {
				interval = 250 * time.Millisecond
			}
			srv := server.New(session, interval)
			go srv.Run(ctx)

			httpSrv := &http.Server{
				Addr:         cfg.Server.Addr,
				Handler:      srv.Router(),
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 10 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			go func() {
				slog.Info("futsim listening", "addr", cfg.Server.Addr)
				if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					slog.Error("server error", "err", err)
					stop()
				}
			}()

			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			slog.Info("shutting down futsim...")
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				slog.Error("shutdown error", "err", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	cmd.Flags().BoolVar(&restore, "restore", false, "Restore the latest snapshot before serving")
	return cmd
}
