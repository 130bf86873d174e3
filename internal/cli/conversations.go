// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/lumen/internal/export"
	"github.com/jeranaias/lumen/internal/locale"
	"github.com/jeranaias/lumen/internal/model"
	"github.com/jeranaias/lumen/internal/util"
)

const shortIDLen = 8

// conversationSummary is one row of `conversations list`.
type conversationSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Messages  int       `json:"messages"`
	Preview   string    `json:"preview,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func summarize(conv model.Conversation, activeID string) conversationSummary {
	return conversationSummary{
		ID:        conv.ID,
		Name:      conv.Name,
		Messages:  conv.MessageCount(),
		Preview:   conv.Preview(50),
		Active:    conv.ID == activeID,
		CreatedAt: conv.CreatedAt,
	}
}

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}

func newConversationsCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv", "c"},
		Short:   "List and manage conversations",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConversationsList(cmd, opts)
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List conversations, newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConversationsList(cmd, opts)
			},
		},
		newConversationsNewCommand(opts),
		newConversationsExportCommand(opts),
		&cobra.Command{
			Use:   "use <id>",
			Short: "Make a conversation active",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withConversation(cmd, opts, args[0], "conversations use", func(app *App, conv model.Conversation) (any, error) {
					app.Store.SetActive(conv.ID)
					if !opts.jsonMode {
						fmt.Fprintf(cmd.OutOrStdout(), "Active conversation: %s (%s)\n", conv.Name, shortID(conv.ID))
					}
					return summarize(conv, conv.ID), nil
				})
			},
		},
		&cobra.Command{
			Use:     "delete <id>",
			Aliases: []string{"rm"},
			Short:   "Delete a conversation",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withConversation(cmd, opts, args[0], "conversations delete", func(app *App, conv model.Conversation) (any, error) {
					app.Store.DeleteConversation(conv.ID)
					if !opts.jsonMode {
						fmt.Fprintf(cmd.OutOrStdout(), "Deleted conversation: %s (%s)\n", conv.Name, shortID(conv.ID))
					}
					return map[string]string{"deleted": conv.ID, "active": app.Store.ActiveID()}, nil
				})
			},
		},
		&cobra.Command{
			Use:   "rename <id> <name>",
			Short: "Rename a conversation",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				name := strings.TrimSpace(strings.Join(args[1:], " "))
				if name == "" {
					return &CommandError{Command: "conversations", Action: "rename", Reason: "name is empty"}
				}
				return withConversation(cmd, opts, args[0], "conversations rename", func(app *App, conv model.Conversation) (any, error) {
					app.Store.RenameConversation(conv.ID, name)
					conv.Name = name
					if !opts.jsonMode {
						fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %q\n", shortID(conv.ID), name)
					}
					return summarize(conv, app.Store.ActiveID()), nil
				})
			},
		},
		&cobra.Command{
			Use:   "show [id]",
			Short: "Print a conversation (default: the active one)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ref := ""
				if len(args) == 1 {
					ref = args[0]
				}
				return withConversation(cmd, opts, ref, "conversations show", func(app *App, conv model.Conversation) (any, error) {
					if !opts.jsonMode {
						printConversation(cmd, conv)
					}
					return conv, nil
				})
			},
		},
	)
	return cmd
}

func newConversationsNewCommand(opts *globalOptions) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a conversation and make it active",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openStore(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			if name == "" {
				name = locale.NewChatName(app.Store.Language())
			}
			id := app.Store.CreateConversation(name)
			conv, _ := app.Store.Conversation(id)

			return output(cmd, opts, "conversations new", func() (any, error) {
				if !opts.jsonMode {
					fmt.Fprintf(cmd.OutOrStdout(), "Created conversation: %s (%s)\n", conv.Name, shortID(conv.ID))
				}
				return summarize(conv, id), nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "conversation name (default: localized \"New Chat\")")
	return cmd
}

func newConversationsExportCommand(opts *globalOptions) *cobra.Command {
	var (
		format string
		outDir string
		stdout bool
		noMeta bool
	)
	cmd := &cobra.Command{
		Use:   "export [id]",
		Short: "Export a conversation to Markdown or JSON (default: the active one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := ""
			if len(args) == 1 {
				ref = args[0]
			}
			exportOpts := export.DefaultOptions()
			exportOpts.OutputDir = outDir
			exportOpts.IncludeMetadata = !noMeta
			exportOpts.IncludeTimestamps = !noMeta

			exporter, err := export.ForFormat(format, exportOpts)
			if err != nil {
				return &CommandError{Command: "conversations", Action: "export", Reason: "invalid format", Err: err}
			}

			return withConversation(cmd, opts, ref, "conversations export", func(_ *App, conv model.Conversation) (any, error) {
				if stdout {
					data, err := exporter.Export(conv)
					if err != nil {
						return nil, err
					}
					text := string(data)
					if strings.EqualFold(format, "json") {
						text = highlightForTerminal(text, "json")
					} else {
						text = highlightForTerminal(text, "markdown")
					}
					_, err = fmt.Fprint(cmd.OutOrStdout(), text)
					return nil, err
				}
				path, err := export.ToFile(conv, exporter, exportOpts)
				if err != nil {
					return nil, err
				}
				if !opts.jsonMode {
					fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", shortID(conv.ID), path)
				}
				return map[string]string{"id": conv.ID, "path": path, "mime_type": exporter.MimeType()}, nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "export format (markdown, json)")
	cmd.Flags().StringVarP(&outDir, "output-dir", "o", ".", "directory to write the export into")
	cmd.Flags().BoolVar(&stdout, "stdout", false, "write the export to stdout instead of a file")
	cmd.Flags().BoolVar(&noMeta, "no-metadata", false, "omit front matter and timestamps")
	return cmd
}

func runConversationsList(cmd *cobra.Command, opts *globalOptions) error {
	app, err := openStore(cmd.Context(), opts.cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	snap := app.Store.Snapshot()
	rows := make([]conversationSummary, 0, len(snap.Conversations))
	for _, conv := range snap.Conversations {
		rows = append(rows, summarize(conv, snap.ActiveConversationID))
	}

	return output(cmd, opts, "conversations list", func() (any, error) {
		if opts.jsonMode {
			return rows, nil
		}
		out := cmd.OutOrStdout()
		if len(rows) == 0 {
			fmt.Fprintln(out, RenderConditional(DimStyle, locale.For(snap.Language).WelcomeMessage))
			return rows, nil
		}
		fmt.Fprintln(out, RenderConditional(TitleStyle, locale.For(snap.Language).ChatHistoryHeader))
		fmt.Fprintln(out, RenderSeparator(GetTerminalWidth()))
		for _, row := range rows {
			marker := "  "
			if row.Active {
				marker = RenderConditional(ActiveStyle, "* ")
			}
			fmt.Fprintf(out, "%s%s  %s  %s\n", marker, shortID(row.ID), util.PadRight(row.Name, 32),
				RenderConditional(DimStyle, fmt.Sprintf("(%d messages)", row.Messages)))
		}
		return rows, nil
	})
}

// withConversation opens the store, resolves ref (empty means the active
// conversation) and runs fn through output.
func withConversation(cmd *cobra.Command, opts *globalOptions, ref, name string, fn func(*App, model.Conversation) (any, error)) error {
	app, err := openStore(cmd.Context(), opts.cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	var conv model.Conversation
	if ref == "" {
		var ok bool
		conv, ok = app.Store.Snapshot().Active()
		if !ok {
			return &NotFoundError{Resource: "conversation", ID: "(active)"}
		}
	} else {
		conv, err = app.resolveConversation(ref)
		if err != nil {
			return err
		}
	}

	return output(cmd, opts, name, func() (any, error) {
		return fn(app, conv)
	})
}

func printConversation(cmd *cobra.Command, conv model.Conversation) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, RenderConditional(TitleStyle, conv.Name))
	fmt.Fprintf(out, "%s%s\n", RenderLabel("ID:"), conv.ID)
	fmt.Fprintf(out, "%s%s\n", RenderLabel("Created:"), conv.CreatedAt.Local().Format(time.DateTime))
	fmt.Fprintln(out, RenderSeparator(GetTerminalWidth()))
	for _, msg := range conv.Messages {
		style := ValueStyle
		if msg.Role == model.RoleUser {
			style = SuccessStyle
		}
		fmt.Fprintln(out, RenderConditional(style, msg.Role.DisplayName()+":"))
		fmt.Fprintln(out, msg.Text)
		fmt.Fprintln(out)
	}
}
