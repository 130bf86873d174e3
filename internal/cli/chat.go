// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/lumen/internal/config"
	"github.com/jeranaias/lumen/internal/ui"
)

func newChatCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Open the interactive chat screen (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, opts)
		},
	}
}

func runChat(cmd *cobra.Command, opts *globalOptions) error {
	if !IsTTY() || !IsStdoutTTY() {
		return &CommandError{
			Command: "chat",
			Action:  "start",
			Reason:  "the chat screen needs a terminal; use `lumen send` in scripts",
		}
	}

	app, err := openStore(cmd.Context(), opts.cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.openClient(cmd.Context()); err != nil {
		return err
	}

	return ui.Run(cmd.Context(), ui.Options{
		Store:        app.Store,
		Orchestrator: app.Orchestrator,
		Markdown:     opts.cfg.UI.Markdown,
		Theme:        opts.cfg.UI.Theme,
		Status:       statusLine(opts.cfg),
	})
}

// statusLine describes where replies come from.
func statusLine(cfg *config.Config) string {
	if strings.EqualFold(cfg.Client.Mode, config.ModeHTTP) {
		return "server " + cfg.Client.ServerURL
	}
	return fmt.Sprintf("%s · %s", cfg.Provider.Kind, cfg.Provider.Model)
}
