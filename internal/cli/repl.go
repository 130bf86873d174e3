// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jeranaias/lumen/internal/config"
	"github.com/jeranaias/lumen/internal/locale"
	"github.com/jeranaias/lumen/internal/model"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader is the prompt used by the REPL. *liner.State satisfies it.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// replInput provides line editing and persistent history.
type replInput struct {
	line        *liner.State
	historyFile string
}

func newReplInput() *replInput {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	in := &replInput{line: line, historyFile: filepath.Join(dir, "chat_history")}
	if f, err := os.Open(in.historyFile); err == nil {
		_, _ = in.line.ReadHistory(f)
		f.Close()
	}
	return in
}

// Close saves history with owner-only permissions and restores the terminal.
func (in *replInput) Close() {
	if err := os.MkdirAll(filepath.Dir(in.historyFile), 0700); err == nil {
		if f, err := os.OpenFile(in.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			_, _ = in.line.WriteHistory(f)
			f.Close()
		}
	}
	in.line.Close()
}

// =============================================================================
// REPL
// =============================================================================

func newReplCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Line-mode chat for terminals without full-screen support",
		Long: "Read messages line by line and stream replies into the active conversation.\n" +
			"Commands: /new, /list, /use <id>, /lang <code>, /help, /quit.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openStore(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer app.Close()
			if err := app.openClient(cmd.Context()); err != nil {
				return err
			}

			in := newReplInput()
			defer in.Close()
			return runRepl(cmd, opts, app, in.line)
		},
	}
}

// runRepl reads lines from in until EOF, /quit or an aborted prompt.
func runRepl(cmd *cobra.Command, opts *globalOptions, app *App, in lineReader) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, RenderConditional(TitleStyle, locale.For(app.Store.Language()).Title)+" "+
		RenderConditional(DimStyle, "/help for commands"))

	for {
		line, err := in.Prompt("lumen> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(out)
				return nil
			}
			return errors.Wrap(err, "read input")
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		in.AppendHistory(line)

		if strings.HasPrefix(line, "/") {
			quit, err := replCommand(out, app, line)
			if err != nil {
				DisplayError(cmd.ErrOrStderr(), err, false)
			}
			if quit {
				return nil
			}
			continue
		}

		app.ensureConversation()
		if err := runSend(cmd, opts, app, line); err != nil && !errors.Is(err, ErrReplyFailed) {
			DisplayError(cmd.ErrOrStderr(), err, false)
		}
	}
}

// replCommand runs a slash command and reports whether the REPL should exit.
func replCommand(w io.Writer, app *App, line string) (bool, error) {
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]

	switch name {
	case "/quit", "/exit", "/q":
		return true, nil

	case "/help", "/?":
		fmt.Fprintln(w, "/new            start a new conversation")
		fmt.Fprintln(w, "/list           list conversations")
		fmt.Fprintln(w, "/use <id>       switch conversation")
		fmt.Fprintln(w, "/lang <code>    switch language (en, es, fr, de)")
		fmt.Fprintln(w, "/quit           exit")

	case "/new":
		id := app.Store.CreateConversation(locale.NewChatName(app.Store.Language()))
		fmt.Fprintf(w, "Created conversation %s\n", shortID(id))

	case "/list":
		snap := app.Store.Snapshot()
		for _, conv := range snap.Conversations {
			marker := "  "
			if conv.ID == snap.ActiveConversationID {
				marker = "* "
			}
			fmt.Fprintf(w, "%s%s  %s\n", marker, shortID(conv.ID), conv.Name)
		}

	case "/use":
		if len(args) != 1 {
			return false, &CommandError{Command: "repl", Action: "use", Reason: "usage: /use <id>"}
		}
		conv, err := app.resolveConversation(args[0])
		if err != nil {
			return false, err
		}
		app.Store.SetActive(conv.ID)
		fmt.Fprintf(w, "Active conversation: %s\n", conv.Name)

	case "/lang":
		if len(args) != 1 {
			lang := app.Store.Language()
			fmt.Fprintf(w, "%s (%s)\n", lang.NativeName(), lang)
			return false, nil
		}
		lang, err := model.ParseLanguage(args[0])
		if err != nil {
			return false, &CommandError{Command: "repl", Action: "lang", Reason: "invalid language", Err: err}
		}
		app.Store.SetLanguage(lang)
		fmt.Fprintf(w, "%s (%s)\n", lang.NativeName(), lang)

	default:
		return false, &CommandError{Command: "repl", Action: name, Reason: "unknown command"}
	}
	return false, nil
}
