package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/naveenspark/folio/internal/config"
	"github.com/naveenspark/folio/internal/fakeapi"
	"github.com/naveenspark/folio/internal/zlog"
)

func newDevServerCmd(configPath *string) *cobra.Command {
	var addr string
	var assistant bool
	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run an in-memory back-end with seeded accounts",
		Long: fmt.Sprintf(`devserver serves the REST API and both push namespaces from memory.

Seeded accounts:
  %s / %s   (admin)
  %s / %s   (comptable)
  %s / %s   (customer)`,
			fakeapi.SeedAdminEmail, fakeapi.SeedAdminPassword,
			fakeapi.SeedComptableEmail, fakeapi.SeedComptablePass,
			fakeapi.SeedClientEmail, fakeapi.SeedClientPassword),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.DevServer.Addr
			}
			log, err := zlog.NewConsole(cfg.Log.Level)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			ctx, stop := signal.NotifyContext(contextOf(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serveDev(ctx, log, addr, fakeapi.Options{
				JWTKey:    cfg.DevServer.JWTKey,
				Assistant: assistant,
				Logger:    log,
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&assistant, "assistant", true, "let the automated assistant answer customers")
	return cmd
}

// serveDev runs the fake back-end until ctx is cancelled.
func serveDev(ctx context.Context, log *zap.Logger, addr string, opts fakeapi.Options) error {
	api, err := fakeapi.New(opts)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("dev server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	api.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
