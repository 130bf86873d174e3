// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/lumen/internal/config"
	"github.com/jeranaias/lumen/internal/model"
	"github.com/jeranaias/lumen/internal/orchestrator"
	"github.com/jeranaias/lumen/internal/provider"
	"github.com/jeranaias/lumen/internal/provider/providertest"
	"github.com/jeranaias/lumen/internal/transport"
)

// setup isolates HOME and the environment and installs p as the provider.
func setup(t *testing.T, p *providertest.Scripted) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("NO_COLOR", "1")
	for _, key := range []string{
		"LUMEN_API_KEY", "GEMINI_API_KEY", "LUMEN_PROVIDER", "LUMEN_MODEL",
		"LUMEN_SERVER_URL", "LUMEN_LOG_LEVEL", "FORCE_COLOR",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	config.ResetGlobalForTesting()
	t.Cleanup(config.ResetGlobalForTesting)

	prev := newProvider
	newProvider = func(context.Context, provider.Config) (provider.Provider, error) {
		return p, nil
	}
	t.Cleanup(func() { newProvider = prev })
	return home
}

// run executes the root command with args and returns stdout and stderr.
func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// decode parses a --json envelope, unmarshalling data into v.
func decode(t *testing.T, out string, v any) JSONResponse {
	t.Helper()

	var raw struct {
		JSONResponse
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), out)
	if v != nil {
		require.NoError(t, json.Unmarshal(raw.Data, v))
	}
	return raw.JSONResponse
}

func listConversations(t *testing.T) []conversationSummary {
	t.Helper()
	out, _, err := run(t, "", "conversations", "list", "--json")
	require.NoError(t, err)
	var rows []conversationSummary
	resp := decode(t, out, &rows)
	require.True(t, resp.Success)
	return rows
}

func greeter() *providertest.Scripted {
	return &providertest.Scripted{Fragments: []string{"Hi", " there!"}, Reply: "Friendly Greeting"}
}

// =============================================================================
// VERSION
// =============================================================================

func TestVersionCommand(t *testing.T) {
	setup(t, greeter())

	out, _, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "lumen "+Version)

	out, _, err = run(t, "", "version", "--json")
	require.NoError(t, err)
	var info versionInfo
	resp := decode(t, out, &info)
	assert.True(t, resp.Success)
	assert.Equal(t, "version", resp.Command)
	assert.Equal(t, Version, info.Version)
}

// =============================================================================
// SEND
// =============================================================================

func TestSendStreamsReplyAndNamesConversation(t *testing.T) {
	p := greeter()
	setup(t, p)

	out, errOut, err := run(t, "", "send", "Hello")
	require.NoError(t, err)
	assert.Equal(t, "Hi there!\n", out)
	assert.Contains(t, errOut, "conversation: Friendly Greeting")

	rows := listConversations(t)
	require.Len(t, rows, 1)
	assert.Equal(t, "Friendly Greeting", rows[0].Name)
	assert.Equal(t, 2, rows[0].Messages)
	assert.True(t, rows[0].Active)

	require.Len(t, p.CompleteRequests(), 1)
}

func TestSendReadsStdin(t *testing.T) {
	p := greeter()
	setup(t, p)

	_, _, err := run(t, "From stdin\n", "send")
	require.NoError(t, err)

	reqs := p.StreamRequests()
	require.Len(t, reqs, 1)
	rows := listConversations(t)
	require.Len(t, rows, 1)
	assert.Equal(t, "From stdin", rows[0].Preview)
}

func TestSendEmptyMessage(t *testing.T) {
	setup(t, greeter())

	_, _, err := run(t, "", "send")
	require.Error(t, err)
	assert.ErrorIs(t, err, orchestrator.ErrEmptyMessage)
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestSendJSON(t *testing.T) {
	setup(t, greeter())

	out, _, err := run(t, "", "send", "--json", "Hello")
	require.NoError(t, err)

	var res sendResult
	resp := decode(t, out, &res)
	assert.True(t, resp.Success)
	assert.Equal(t, "Hi there!", res.Reply)
	assert.Equal(t, "Friendly Greeting", res.Conversation)
	assert.False(t, res.Failed)
}

func TestSendFailureExitCode(t *testing.T) {
	setup(t, &providertest.Scripted{Fragments: []string{"Hi"}, StreamErr: errors.New("boom"), FailAfter: 1})

	out, errOut, err := run(t, "", "send", "Hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReplyFailed)
	assert.Equal(t, ExitReplyFailed, GetExitCode(err))
	assert.NotContains(t, out, "Sorry", "error text goes to stderr")
	assert.Contains(t, errOut, "Sorry, something went wrong")

	rows := listConversations(t)
	require.Len(t, rows, 1)
	assert.Equal(t, "New Chat", rows[0].Name, "no title after a failed reply")
}

func TestSendNewAndLanguage(t *testing.T) {
	p := greeter()
	setup(t, p)

	_, _, err := run(t, "", "send", "Hello")
	require.NoError(t, err)
	_, _, err = run(t, "", "send", "--new", "--language", "de", "Hallo")
	require.NoError(t, err)

	rows := listConversations(t)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].Active, "new conversation is prepended and active")

	reqs := p.StreamRequests()
	require.Len(t, reqs, 2)
	assert.NotEqual(t, reqs[0].System, reqs[1].System)
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

func TestConversationsLifecycle(t *testing.T) {
	setup(t, greeter())

	out, _, err := run(t, "", "conversations", "new", "--json", "--name", "First")
	require.NoError(t, err)
	var first conversationSummary
	decode(t, out, &first)
	assert.Equal(t, "First", first.Name)

	_, _, err = run(t, "", "conversations", "new", "--name", "Second")
	require.NoError(t, err)

	rows := listConversations(t)
	require.Len(t, rows, 2)
	assert.Equal(t, "Second", rows[0].Name)
	assert.True(t, rows[0].Active)

	out, _, err = run(t, "", "conversations", "use", first.ID[:8])
	require.NoError(t, err)
	assert.Contains(t, out, "Active conversation: First")

	_, _, err = run(t, "", "conversations", "rename", first.ID, "Renamed", "chat")
	require.NoError(t, err)

	out, _, err = run(t, "", "conversations", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Renamed chat")

	out, _, err = run(t, "", "conversations")
	require.NoError(t, err)
	assert.Contains(t, out, "* "+first.ID[:8])

	_, _, err = run(t, "", "conversations", "delete", first.ID)
	require.NoError(t, err)
	rows = listConversations(t)
	require.Len(t, rows, 1)
	assert.Equal(t, "Second", rows[0].Name)
	assert.True(t, rows[0].Active, "deleting the active conversation activates the first remaining")
}

func TestConversationsNotFound(t *testing.T) {
	setup(t, greeter())

	_, _, err := run(t, "", "conversations", "use", "nope")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, ExitNotFoundError, GetExitCode(err))

	_, _, err = run(t, "", "conversations", "show")
	require.ErrorAs(t, err, &nf)
}

func TestConversationsEmptyList(t *testing.T) {
	setup(t, greeter())

	out, _, err := run(t, "", "conversations", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Start a new chat to begin.")
}

// =============================================================================
// LANGUAGE
// =============================================================================

func TestLanguageCommand(t *testing.T) {
	setup(t, greeter())

	out, _, err := run(t, "", "language")
	require.NoError(t, err)
	assert.Contains(t, out, "English (en)")

	out, _, err = run(t, "", "language", "es-MX")
	require.NoError(t, err)
	assert.Contains(t, out, "Español (es)")

	out, _, err = run(t, "", "language", "--json")
	require.NoError(t, err)
	var info languageInfo
	decode(t, out, &info)
	assert.Equal(t, "es", info.Code)
	assert.Equal(t, []string{"en", "es", "fr", "de"}, info.Supported)

	_, _, err = run(t, "", "conversations", "new")
	require.NoError(t, err)
	rows := listConversations(t)
	require.Len(t, rows, 1)
	assert.Equal(t, "Nuevo chat", rows[0].Name)

	_, _, err = run(t, "", "language", "klingon")
	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
}

// =============================================================================
// CONFIG
// =============================================================================

func TestConfigCommands(t *testing.T) {
	home := setup(t, greeter())
	path := filepath.Join(home, ".lumen", "config.toml")

	out, _, err := run(t, "", "config", "path")
	require.NoError(t, err)
	assert.Equal(t, path+"\n", out)

	_, _, err = run(t, "", "config", "init")
	require.NoError(t, err)
	assert.FileExists(t, path)

	_, _, err = run(t, "", "config", "init")
	require.Error(t, err, "init refuses to overwrite")
	_, _, err = run(t, "", "config", "init", "--force")
	require.NoError(t, err)

	_, _, err = run(t, "", "config", "set", "provider.model", "gemini-2.5-pro")
	require.NoError(t, err)
	out, _, err = run(t, "", "config", "get", "provider.model")
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro\n", out)

	_, _, err = run(t, "", "config", "set", "provider.api_key", "secret")
	require.NoError(t, err)
	out, _, err = run(t, "", "config", "get", "provider.api_key")
	require.NoError(t, err)
	assert.Equal(t, "[REDACTED]\n", out)

	out, _, err = run(t, "", "config", "show")
	require.NoError(t, err)
	assert.NotContains(t, out, "secret")

	_, _, err = run(t, "", "config", "set", "nope.key", "x")
	require.Error(t, err)

	_, _, err = run(t, "", "config", "set", "client.mode", "carrier-pigeon")
	require.Error(t, err)
	var verrs config.ValidateErrors
	assert.ErrorAs(t, err, &verrs)
}

func TestConfigSetDoesNotPersistEnvironment(t *testing.T) {
	home := setup(t, greeter())
	t.Setenv("LUMEN_API_KEY", "from-env")

	_, _, err := run(t, "", "config", "set", "provider.model", "gemini-2.5-pro")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(home, ".lumen", "config.toml"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "from-env")
}

func TestConfigKeys(t *testing.T) {
	setup(t, greeter())

	out, _, err := run(t, "", "config", "keys")
	require.NoError(t, err)
	for _, key := range []string{"provider.kind", "server.listen", "client.mode", "storage.backend", "log.level", "ui.theme"} {
		assert.Contains(t, out, key)
	}
}

// =============================================================================
// CHAT / ERRORS
// =============================================================================

func TestChatRequiresTerminal(t *testing.T) {
	setup(t, greeter())

	_, _, err := run(t, "", "chat")
	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, "chat", cmdErr.Command)
}

func TestStatusLine(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, "gemini · gemini-2.5-flash", statusLine(cfg))

	cfg.Client.Mode = config.ModeHTTP
	assert.Equal(t, "server http://127.0.0.1:8787", statusLine(cfg))
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"reply failed", ErrReplyFailed, ExitReplyFailed},
		{"not found", &NotFoundError{Resource: "conversation", ID: "x"}, ExitNotFoundError},
		{"in flight", orchestrator.ErrSendInFlight, ExitUsageError},
		{"no conversation", orchestrator.ErrNoActiveConversation, ExitUsageError},
		{"config", config.ValidateErrors{{Field: "client.mode", Message: "bad"}}, ExitConfigError},
		{"missing key", provider.ErrMissingAPIKey, ExitConfigError},
		{"server", &transport.StatusError{StatusCode: 500, Message: "x"}, ExitNetworkError},
		{"other", errors.New("x"), ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestDisplayErrorJSON(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, &NotFoundError{Resource: "conversation", ID: "abc"}, true)

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "not_found_error", out["error_type"])
}

func TestConversationsExport(t *testing.T) {
	setup(t, greeter())

	_, _, err := run(t, "", "send", "Hello")
	require.NoError(t, err)

	out, _, err := run(t, "", "conversations", "export", "--stdout", "--no-metadata")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# Friendly Greeting\n"), out)
	assert.Contains(t, out, "### [Assistant]\n\nHi there!")

	dir := t.TempDir()
	out, _, err = run(t, "", "conversations", "export", "--json", "--format", "json", "--output-dir", dir)
	require.NoError(t, err)
	var res map[string]string
	decode(t, out, &res)
	assert.Equal(t, "application/json", res["mime_type"])
	assert.FileExists(t, res["path"])
	assert.Equal(t, dir, filepath.Dir(res["path"]))

	_, _, err = run(t, "", "conversations", "export", "--format", "pdf")
	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
}

// scriptedLines feeds fixed input lines to the REPL, then io.EOF.
type scriptedLines struct {
	lines   []string
	history []string
}

func (s *scriptedLines) Prompt(string) (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func (s *scriptedLines) AppendHistory(item string) { s.history = append(s.history, item) }

func TestRepl(t *testing.T) {
	setup(t, greeter())

	cfg, err := config.Load()
	require.NoError(t, err)
	opts := &globalOptions{cfg: cfg}

	app, err := openStore(context.Background(), cfg)
	require.NoError(t, err)
	defer app.Close()
	require.NoError(t, app.openClient(context.Background()))

	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetContext(context.Background())

	in := &scriptedLines{lines: []string{
		"Hello",
		"",
		"/lang fr",
		"/new",
		"/list",
		"/bogus",
		"/quit",
		"never read",
	}}
	require.NoError(t, runRepl(root, opts, app, in))

	assert.Contains(t, out.String(), "Hi there!")
	assert.Contains(t, out.String(), "Français (fr)")
	assert.Contains(t, out.String(), "Nouvelle discussion")
	assert.Contains(t, out.String(), "Friendly Greeting")
	assert.Contains(t, errOut.String(), "unknown command")
	assert.Equal(t, []string{"never read"}, in.lines)
	assert.NotContains(t, in.history, "")

	snap := app.Store.Snapshot()
	require.Len(t, snap.Conversations, 2)
	assert.Equal(t, model.French, snap.Language)
}

func TestHighlightCode(t *testing.T) {
	src := `{"provider": {"kind": "gemini"}}`
	out := highlightCode(src, "json")
	assert.Contains(t, out, "\x1b[")
	assert.Contains(t, out, "gemini")

	t.Setenv("NO_COLOR", "1")
	assert.Equal(t, src, highlightForTerminal(src, "json"))
}
