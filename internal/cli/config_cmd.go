// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/lumen/internal/config"
)

func newConfigCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and edit configuration",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := opts.configFile()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return &CommandError{Command: "config", Action: "init", Reason: "config file exists (use --force to overwrite)"}
			}
			if err := config.SaveTOML(config.Default(), path); err != nil {
				return err
			}
			return output(cmd, opts, "config init", func() (any, error) {
				if !opts.jsonMode {
					fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
				}
				return map[string]string{"path": path}, nil
			})
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration (API key redacted)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return output(cmd, opts, "config show", func() (any, error) {
					if !opts.jsonMode {
						fmt.Fprintln(cmd.OutOrStdout(), highlightForTerminal(opts.cfg.String(), "json"))
					}
					var redacted map[string]any
					if err := json.Unmarshal([]byte(opts.cfg.String()), &redacted); err != nil {
						return nil, err
					}
					return redacted, nil
				})
			},
		},
		initCmd,
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print one configuration value",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				value, err := opts.cfg.Get(args[0])
				if err != nil {
					return &CommandError{Command: "config", Action: "get", Reason: "unknown key", Err: err}
				}
				if strings.EqualFold(args[0], "provider.api_key") && value != "" {
					value = "[REDACTED]"
				}
				return output(cmd, opts, "config get", func() (any, error) {
					if !opts.jsonMode {
						fmt.Fprintln(cmd.OutOrStdout(), value)
					}
					return map[string]any{"key": args[0], "value": value}, nil
				})
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Change one value in the config file",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := opts.configFile()
				if err != nil {
					return err
				}
				cfg, err := loadFileOnly(path)
				if err != nil {
					return err
				}
				if err := cfg.Set(args[0], args[1]); err != nil {
					return &CommandError{Command: "config", Action: "set", Reason: "invalid key or value", Err: err}
				}
				if err := cfg.Validate(); err != nil {
					return err
				}
				if err := config.SaveTOML(cfg, path); err != nil {
					return err
				}
				return output(cmd, opts, "config set", func() (any, error) {
					if !opts.jsonMode {
						fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], args[1])
					}
					return map[string]string{"key": args[0], "value": args[1], "path": path}, nil
				})
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file path",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := opts.configFile()
				if err != nil {
					return err
				}
				return output(cmd, opts, "config path", func() (any, error) {
					if !opts.jsonMode {
						fmt.Fprintln(cmd.OutOrStdout(), path)
					}
					return map[string]string{"path": path}, nil
				})
			},
		},
		&cobra.Command{
			Use:   "keys",
			Short: "List every configuration key",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				keys := config.GetAllKeys()
				return output(cmd, opts, "config keys", func() (any, error) {
					if !opts.jsonMode {
						for _, k := range keys {
							fmt.Fprintln(cmd.OutOrStdout(), k)
						}
					}
					return keys, nil
				})
			},
		},
	)
	return cmd
}

// configFile returns --config or the default config path.
func (o *globalOptions) configFile() (string, error) {
	if o.configPath != "" {
		return o.configPath, nil
	}
	return config.ConfigPathTOML()
}

// loadFileOnly reads path without environment overrides so that secrets
// from the environment are never written back to disk.
func loadFileOnly(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.Default(), nil
	}
	cfg := &config.Config{}
	if err := config.LoadTOML(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}
