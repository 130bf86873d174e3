// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/lumen/internal/ollama"
	"github.com/jeranaias/lumen/internal/provider"
	"github.com/jeranaias/lumen/internal/server"
)

func newServeCommand(opts *globalOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the sendMessage and generateTitle HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if listen != "" {
				cfg.Server.Listen = listen
			}

			app := &App{Config: cfg}
			if err := app.openModel(cmd.Context()); err != nil {
				return err
			}

			srvOpts := []server.Option{
				server.WithAddr(cfg.Server.Listen),
				server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
			}
			if len(cfg.Server.CORSOrigins) > 0 {
				cors := server.DefaultCORSConfig()
				cors.AllowedOrigins = cfg.Server.CORSOrigins
				srvOpts = append(srvOpts, server.WithCORS(cors))
			}
			srv := server.New(app.Gateway, app.Titles, srvOpts...)

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				return srv.Run(ctx)
			})
			g.Go(func() error {
				if err := checkBackend(ctx, app.Provider, cfg.Provider.BaseURL, cfg.Provider.Model); err != nil {
					log.Warn().Err(err).Msg("ollama backend not ready")
				}
				return nil
			})

			log.Info().
				Str("addr", cfg.Server.Listen).
				Str("provider", app.Provider.Name()).
				Str("model", cfg.Provider.Model).
				Msg("serving")
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "override server.listen")
	return cmd
}

// checkBackend reports whether a local Ollama backend is reachable and has
// the configured model pulled. Other providers are not checked.
func checkBackend(ctx context.Context, p provider.Provider, baseURL, model string) error {
	if p.Name() != string(provider.KindOllama) {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	client := ollama.NewClientWithConfig(&ollama.ClientConfig{BaseURL: baseURL, DefaultModel: model})
	if err := client.CheckRunning(ctx); err != nil {
		return errors.Wrapf(err, "ollama at %s", client.Config().BaseURL)
	}
	ok, err := client.HasModel(ctx, "")
	if err != nil {
		return errors.Wrap(err, "list ollama models")
	}
	if !ok {
		return errors.Errorf("model %q is not pulled; run: ollama pull %s",
			client.Config().DefaultModel, client.Config().DefaultModel)
	}
	return nil
}
