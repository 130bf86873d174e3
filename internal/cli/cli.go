// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jeranaias/lumen/internal/config"
	"github.com/jeranaias/lumen/internal/logging"
)

// Version information (set at build time).
var (
	Version   = "0.3.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	logLevel   string
	jsonMode   bool

	cfg       *config.Config
	logCloser io.Closer
}

// displayedError marks an error that was already printed in JSON mode.
type displayedError struct{ error }

func (e displayedError) Unwrap() error { return e.error }

// NewRootCommand builds the lumen command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "lumen",
		Short: "Multi-conversation chat with streamed model replies",
		Long: "lumen keeps a list of chat conversations, streams model replies into them " +
			"as they arrive and names each conversation after its first exchange.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logCloser != nil {
				_ = opts.logCloser.Close()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default ~/.lumen/config.toml)")
	flags.StringVar(&opts.logLevel, "log-level", "", "override log.level (trace, debug, info, warn, error)")
	flags.BoolVar(&opts.jsonMode, "json", false, "print machine-readable JSON")

	root.AddCommand(
		newServeCommand(opts),
		newChatCommand(opts),
		newReplCommand(opts),
		newSendCommand(opts),
		newConversationsCommand(opts),
		newLanguageCommand(opts),
		newConfigCommand(opts),
		newVersionCommand(opts),
	)
	return root
}

// init loads configuration and installs the logger.
func (o *globalOptions) init() error {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFromPath(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	config.SetGlobal(cfg)
	o.cfg = cfg

	closer, err := logging.Setup(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return err
	}
	o.logCloser = closer
	return nil
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCommand()
	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	var shown displayedError
	if !errors.As(err, &shown) {
		jsonMode, _ := root.PersistentFlags().GetBool("json")
		DisplayError(os.Stderr, err, jsonMode)
	}
	log.Debug().Err(err).Msg("command failed")
	return GetExitCode(err)
}

// =============================================================================
// VERSION
// =============================================================================

type versionInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
}

func newVersionCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := versionInfo{Version: Version, GitCommit: GitCommit, BuildDate: BuildDate}
			return output(cmd, opts, "version", func() (any, error) {
				if !opts.jsonMode {
					fmt.Fprintf(cmd.OutOrStdout(), "lumen %s (commit %s, built %s)\n", info.Version, info.GitCommit, info.BuildDate)
				}
				return info, nil
			})
		},
	}
}

// output wraps OutputJSON with the command's writer.
func output(cmd *cobra.Command, opts *globalOptions, name string, handler func() (any, error)) error {
	err := OutputJSON(cmd.OutOrStdout(), opts.jsonMode, name, handler)
	if err != nil && opts.jsonMode {
		return displayedError{err}
	}
	return err
}
