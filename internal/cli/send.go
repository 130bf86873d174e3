// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jeranaias/lumen/internal/locale"
	"github.com/jeranaias/lumen/internal/model"
	"github.com/jeranaias/lumen/internal/store"
)

// sendResult is the --json payload of `lumen send`.
type sendResult struct {
	ConversationID string `json:"conversation_id"`
	Conversation   string `json:"conversation"`
	ReplyID        string `json:"reply_id"`
	Reply          string `json:"reply"`
	Failed         bool   `json:"failed"`
	Error          string `json:"error,omitempty"`
}

func newSendCommand(opts *globalOptions) *cobra.Command {
	var (
		newConv bool
		convRef string
		lang    string
	)

	cmd := &cobra.Command{
		Use:   "send [message...]",
		Short: "Send one message and stream the reply",
		Long: "Send a message into the active conversation (or a new one with --new) " +
			"and print the reply as it streams. With no arguments the message is read from stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if text == "" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return errors.Wrap(err, "read stdin")
				}
				text = strings.TrimSpace(string(data))
			}

			app, err := openStore(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			if lang != "" {
				l, err := model.ParseLanguage(lang)
				if err != nil {
					return err
				}
				app.Store.SetLanguage(l)
			}

			switch {
			case newConv:
				app.Store.CreateConversation(locale.NewChatName(app.Store.Language()))
			case convRef != "":
				conv, err := app.resolveConversation(convRef)
				if err != nil {
					return err
				}
				app.Store.SetActive(conv.ID)
			default:
				app.ensureConversation()
			}

			if err := app.openClient(cmd.Context()); err != nil {
				return err
			}
			return runSend(cmd, opts, app, text)
		},
	}

	cmd.Flags().BoolVarP(&newConv, "new", "n", false, "start a new conversation")
	cmd.Flags().StringVarP(&convRef, "conversation", "c", "", "send into this conversation (id or unique prefix)")
	cmd.Flags().StringVarP(&lang, "language", "l", "", "switch language before sending (en, es, fr, de)")
	return cmd
}

func runSend(cmd *cobra.Command, opts *globalOptions, app *App, text string) error {
	out := cmd.OutOrStdout()
	convID := app.Store.ActiveID()

	var stopEcho func()
	if !opts.jsonMode {
		stopEcho = echoReply(out, app.Store, convID)
	}

	res, err := app.Orchestrator.Send(cmd.Context(), text)
	if stopEcho != nil {
		stopEcho()
	}
	if err != nil {
		return err
	}
	app.Orchestrator.Wait()

	conv, _ := app.Store.Conversation(convID)
	result := sendResult{
		ConversationID: res.ConversationID,
		Conversation:   conv.Name,
		ReplyID:        res.ReplyID,
		Reply:          res.Reply,
		Failed:         res.Failed(),
	}
	if res.Err != nil {
		result.Error = res.Err.Error()
	}

	return output(cmd, opts, "send", func() (any, error) {
		if !opts.jsonMode {
			fmt.Fprintln(out)
			if res.Failed() {
				fmt.Fprintln(cmd.ErrOrStderr(), RenderConditional(ErrorStyle, res.Reply))
			}
			if res.TitleRequested && conv.Name != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), RenderConditional(DimStyle, "conversation: "+conv.Name))
			}
		}
		if res.Failed() {
			return result, errors.Wrap(ErrReplyFailed, result.Error)
		}
		return result, nil
	})
}

// echoReply prints each new piece of the streaming reply in convID. Only
// text that extends what was already printed is written, so the error text
// that replaces a failed reply is left to the caller.
func echoReply(w io.Writer, st *store.Store, convID string) func() {
	var (
		mu      sync.Mutex
		replyID string
		printed string
	)
	return st.OnChange(func(c store.Change) {
		if c.ConversationID != convID {
			return
		}
		mu.Lock()
		defer mu.Unlock()

		switch c.Kind {
		case store.ChangeMessageAppended:
			conv, ok := st.Conversation(convID)
			if !ok {
				return
			}
			if i := conv.IndexOf(c.MessageID); i >= 0 && conv.Messages[i].Role == model.RoleAssistant {
				replyID = c.MessageID
			}
		case store.ChangeMessageUpdated:
			if c.MessageID != replyID {
				return
			}
			conv, ok := st.Conversation(convID)
			if !ok {
				return
			}
			i := conv.IndexOf(replyID)
			if i < 0 {
				return
			}
			text := conv.Messages[i].Text
			if strings.HasPrefix(text, printed) && len(text) > len(printed) {
				fmt.Fprint(w, text[len(printed):])
				printed = text
			}
		}
	})
}
