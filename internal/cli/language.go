// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/lumen/internal/model"
)

type languageInfo struct {
	Code      string   `json:"code"`
	Name      string   `json:"name"`
	Native    string   `json:"native"`
	Supported []string `json:"supported"`
}

func newLanguageCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "language [code]",
		Aliases: []string{"lang"},
		Short:   "Show or switch the reply language",
		Long: "Without arguments prints the current language. With a code (en, es, fr, de) " +
			"or language name switches it. Existing messages keep the language they were sent in.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openStore(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			if len(args) == 1 {
				lang, err := model.ParseLanguage(args[0])
				if err != nil {
					return &CommandError{Command: "language", Action: "set", Reason: "invalid language", Err: err}
				}
				app.Store.SetLanguage(lang)
			}

			lang := app.Store.Language()
			info := languageInfo{Code: lang.String(), Name: lang.Name(), Native: lang.NativeName()}
			for _, l := range model.Languages {
				info.Supported = append(info.Supported, l.String())
			}
			return output(cmd, opts, "language", func() (any, error) {
				if !opts.jsonMode {
					fmt.Fprintf(cmd.OutOrStdout(), "%s%s (%s)\n", RenderLabel("Language:"), info.Native, info.Code)
				}
				return info, nil
			})
		},
	}
}
