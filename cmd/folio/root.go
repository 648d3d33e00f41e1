package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/naveenspark/folio/internal/config"
	"github.com/naveenspark/folio/internal/session"
	"github.com/naveenspark/folio/internal/store"
	"github.com/naveenspark/folio/internal/tui"
	"github.com/naveenspark/folio/internal/zlog"
	"github.com/naveenspark/folio/pkg/chat"
	"github.com/naveenspark/folio/pkg/client"
	"github.com/naveenspark/folio/pkg/inbox"
)

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "folio",
		Short:         "Terminal front-end for the folio hotel billing back-end",
		Long:          "folio manages clients, invoices and support chat for hotel staff, and lets customers follow their invoices.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), configPath)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ~/.folio/config.toml)")

	root.AddCommand(
		newLoginCmd(&configPath),
		newLogoutCmd(&configPath),
		newWhoamiCmd(&configPath),
		newDevServerCmd(&configPath),
		newVersionCmd(),
	)
	return root
}

// stack is the client side shared by every command: config, file logger,
// credential store and REST client.
type stack struct {
	cfg   *config.Config
	log   *zap.Logger
	store *store.Store
	api   *client.Client
}

func openStack(configPath string) (*stack, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log, err := zlog.NewFile(cfg.Log.Path, cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}
	return &stack{
		cfg:   cfg,
		log:   log,
		store: st,
		api:   client.New(cfg.APIBase(), st),
	}, nil
}

func (s *stack) Close() {
	if err := s.store.Close(); err != nil {
		s.log.Warn("close store", zap.Error(err))
	}
	_ = s.log.Sync()
}

// manager builds a session manager without live bindings, for the
// one-shot commands.
func (s *stack) manager() *session.Manager {
	mgr := session.NewManager(s.api, s.store, s.log)
	s.api.OnUnauthorized(mgr.Expire)
	return mgr
}

func runTUI(ctx context.Context, configPath string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openStack(configPath)
	if err != nil {
		return err
	}
	defer s.Close()
	s.log.Info("starting", zap.String("version", version), zap.String("api", s.cfg.APIBase()))

	alerts := tui.NewAlerter()
	box := inbox.New(s.api, inbox.Options{
		URL:               s.cfg.NotificationsURL(),
		Alerts:            s.cfg.UI.Alerts,
		Alerter:           alerts,
		HandshakeTimeout:  s.cfg.HandshakeTimeout(),
		ReconnectAttempts: s.cfg.Live.ReconnectAttempts,
		ReconnectDelay:    s.cfg.ReconnectDelay(),
		Logger:            s.log,
	})
	desk := chat.New(s.api, chat.Options{
		URL:               s.cfg.ChatURL(),
		HandshakeTimeout:  s.cfg.HandshakeTimeout(),
		ReconnectAttempts: s.cfg.Live.ReconnectAttempts,
		ReconnectDelay:    s.cfg.ReconnectDelay(),
		Logger:            s.log,
	})
	mgr := session.NewManager(s.api, s.store, s.log, box, desk)
	s.api.OnUnauthorized(mgr.Expire)

	app := tui.NewApp(tui.Deps{
		Session: mgr,
		Client:  s.api,
		Inbox:   box,
		Desk:    desk,
		Alerts:  alerts,
		Version: version,
	})
	defer app.Close()

	go func() {
		if err := mgr.Boot(ctx); err != nil {
			s.log.Warn("restore session", zap.Error(err))
		}
	}()

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	box.Stop()
	desk.Stop()
	if err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}
