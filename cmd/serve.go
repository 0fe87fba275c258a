package main

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/xhad/studio/pkg/auth"
	"github.com/xhad/studio/pkg/backup"
	"github.com/xhad/studio/server"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and web app",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := current.config
			if addr != "" {
				cfg.Server.Addr = addr
			}

			svc := server.Services{
				Studio:  current.studio,
				State:   current.state,
				Docs:    current.docs,
				Backup:  backup.NewService(cfg.Backup.FileName),
				Fetcher: current.fetcher,
			}

			// Sign-in and Drive backup stay disabled without OAuth credentials.
			if cfg.OAuth.ClientID != "" || cfg.OAuth.ClientSecret != "" {
				if errs := cfg.ValidateOAuth(); len(errs) > 0 {
					return errors.Join(validationErrors(errs)...)
				}
				svc.OAuth = auth.NewOAuth(auth.OAuthConfig{
					ClientID:     cfg.OAuth.ClientID,
					ClientSecret: cfg.OAuth.ClientSecret,
					RedirectURL:  cfg.OAuth.RedirectURL,
				})
				svc.Sessions = auth.NewSessions(cfg.Server.SessionSecret)
			} else {
				slog.Warn("google sign-in disabled, no oauth client configured")
			}

			srv, err := server.NewServer(server.Config{
				Addr:        cfg.Server.Addr,
				AppURL:      cfg.Server.AppURL,
				StaticDir:   cfg.Server.StaticDir,
				MaxUploadMB: cfg.Server.MaxUploadMB,
			}, svc)
			if err != nil {
				return err
			}
			return srv.ListenAndServe(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	return cmd
}
