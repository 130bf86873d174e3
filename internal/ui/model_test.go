// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/lumen/internal/gateway"
	"github.com/jeranaias/lumen/internal/locale"
	"github.com/jeranaias/lumen/internal/model"
	"github.com/jeranaias/lumen/internal/orchestrator"
	"github.com/jeranaias/lumen/internal/provider/providertest"
	"github.com/jeranaias/lumen/internal/store"
	"github.com/jeranaias/lumen/internal/title"
	"github.com/jeranaias/lumen/internal/transport"
)

func newTestModel(t *testing.T, p *providertest.Scripted) (Model, *store.Store, *orchestrator.Orchestrator) {
	t.Helper()

	st := store.New(model.State{})
	orch := orchestrator.New(st, transport.NewLocal(gateway.New(p), title.New(p)))
	t.Cleanup(orch.Close)

	sends := &sync.WaitGroup{}
	t.Cleanup(sends.Wait)

	m := NewModel(context.Background(), Options{Store: st, Orchestrator: orch, Theme: "dark"}, sends)
	m, _ = update(m, tea.WindowSizeMsg{Width: 100, Height: 30})
	return m, st, orch
}

func update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func press(m Model, t tea.KeyType) (Model, tea.Cmd) {
	return update(m, tea.KeyMsg{Type: t})
}

func TestWelcomeWithoutConversations(t *testing.T) {
	m, _, _ := newTestModel(t, &providertest.Scripted{})

	view := m.View()
	assert.Contains(t, view, "Welcome")
	assert.Contains(t, view, "Start a new chat to begin.")
	assert.Contains(t, view, "Chat History")
}

func TestNewChatKey(t *testing.T) {
	m, st, _ := newTestModel(t, &providertest.Scripted{})

	m, _ = press(m, tea.KeyCtrlN)

	snap := st.Snapshot()
	require.Len(t, snap.Conversations, 1)
	assert.Equal(t, "New Chat", snap.Conversations[0].Name)
	assert.Equal(t, snap.Conversations[0].ID, snap.ActiveConversationID)
	assert.Contains(t, m.View(), "New Chat")
}

func TestSubmitStreamsReply(t *testing.T) {
	p := &providertest.Scripted{Fragments: []string{"Hi", " there!"}, Reply: "Friendly Greeting"}
	m, st, orch := newTestModel(t, p)

	m, _ = press(m, tea.KeyCtrlN)
	m.input.SetValue("Hello")
	m, cmd := press(m, tea.KeyEnter)
	require.NotNil(t, cmd)
	assert.Empty(t, m.input.Value())

	m, _ = update(m, cmd())

	conv, ok := st.Snapshot().Active()
	require.True(t, ok)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "Hello", conv.Messages[0].Text)
	assert.Equal(t, "Hi there!", conv.Messages[1].Text)
	assert.Contains(t, m.View(), "Hi there!")

	orch.Wait()
	m, _ = update(m, stateChangedMsg{})
	conv, _ = st.Snapshot().Active()
	assert.Equal(t, "Friendly Greeting", conv.Name)
	assert.Contains(t, m.View(), "Friendly Greeting")
}

func TestSubmitCreatesConversationWhenNoneActive(t *testing.T) {
	m, st, _ := newTestModel(t, &providertest.Scripted{Fragments: []string{"ok"}})

	m.input.SetValue("Hello")
	m, cmd := press(m, tea.KeyEnter)
	require.NotNil(t, cmd)
	update(m, cmd())

	snap := st.Snapshot()
	require.Len(t, snap.Conversations, 1)
	assert.Len(t, snap.Conversations[0].Messages, 2)
}

func TestSubmitIgnored(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		m, st, _ := newTestModel(t, &providertest.Scripted{})
		m, _ = press(m, tea.KeyCtrlN)
		m.input.SetValue("   ")

		_, cmd := press(m, tea.KeyEnter)
		assert.Nil(t, cmd)
		conv, _ := st.Snapshot().Active()
		assert.Empty(t, conv.Messages)
	})

	t.Run("send in flight", func(t *testing.T) {
		m, st, _ := newTestModel(t, &providertest.Scripted{})
		m, _ = press(m, tea.KeyCtrlN)
		require.True(t, st.BeginSend())
		defer st.EndSend()

		m.input.SetValue("second")
		m, cmd := press(m, tea.KeyEnter)
		assert.Nil(t, cmd)
		assert.Equal(t, "second", m.input.Value())
	})
}

func TestFailedReplyShowsErrorText(t *testing.T) {
	p := &providertest.Scripted{Fragments: []string{"never"}, StreamErr: errors.New("boom")}
	m, st, _ := newTestModel(t, p)

	m, _ = press(m, tea.KeyCtrlN)
	m.input.SetValue("Hello")
	m, cmd := press(m, tea.KeyEnter)
	require.NotNil(t, cmd)
	m, _ = update(m, cmd())

	conv, _ := st.Snapshot().Active()
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, locale.ErrorMessage(model.English), conv.Messages[1].Text)
	assert.Contains(t, m.View(), "Sorry, something went wrong")
}

func TestLanguageKeyCycles(t *testing.T) {
	m, st, _ := newTestModel(t, &providertest.Scripted{})

	m, _ = press(m, tea.KeyCtrlL)
	assert.Equal(t, model.Spanish, st.Language())
	assert.Equal(t, "Pregunta lo que quieras...", m.input.Placeholder)
	assert.Contains(t, m.View(), "Español")

	m, _ = press(m, tea.KeyCtrlN)
	conv, _ := st.Snapshot().Active()
	assert.Equal(t, "Nuevo chat", conv.Name)

	for range 3 {
		m, _ = press(m, tea.KeyCtrlL)
	}
	assert.Equal(t, model.English, st.Language())
}

func TestSidebarSelectsConversation(t *testing.T) {
	m, st, _ := newTestModel(t, &providertest.Scripted{})

	m, _ = press(m, tea.KeyCtrlN)
	m, _ = press(m, tea.KeyCtrlN)
	snap := st.Snapshot()
	require.Len(t, snap.Conversations, 2)
	older := snap.Conversations[1].ID

	m, _ = press(m, tea.KeyTab)
	assert.Equal(t, focusSidebar, m.focus)
	assert.Equal(t, 0, m.cursor)

	m, _ = press(m, tea.KeyDown)
	assert.Equal(t, 1, m.cursor)
	m, _ = press(m, tea.KeyDown)
	assert.Equal(t, 1, m.cursor, "cursor stops at the last conversation")

	m, _ = press(m, tea.KeyEnter)
	assert.Equal(t, older, st.ActiveID())
	assert.Equal(t, focusInput, m.focus)
}

func TestDeleteKey(t *testing.T) {
	m, st, _ := newTestModel(t, &providertest.Scripted{})

	m, _ = press(m, tea.KeyCtrlN)
	m, _ = press(m, tea.KeyCtrlN)
	active := st.ActiveID()

	m, _ = press(m, tea.KeyCtrlX)
	snap := st.Snapshot()
	require.Len(t, snap.Conversations, 1)
	assert.NotEqual(t, active, snap.ActiveConversationID)

	m, _ = press(m, tea.KeyCtrlX)
	assert.Empty(t, st.Snapshot().Conversations)
	assert.Contains(t, m.View(), "Welcome")
}

func TestQuitKey(t *testing.T) {
	m, _, _ := newTestModel(t, &providertest.Scripted{})

	_, cmd := press(m, tea.KeyCtrlC)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestNextLanguage(t *testing.T) {
	tests := []struct {
		cur  model.Language
		want model.Language
	}{
		{model.English, model.Spanish},
		{model.Spanish, model.French},
		{model.French, model.German},
		{model.German, model.English},
		{model.Language("xx"), model.English},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, nextLanguage(tt.cur), tt.cur)
	}
}

func TestListenCoalesces(t *testing.T) {
	st := store.New(model.State{})
	changes, unsubscribe := listen(st)

	st.CreateConversation("a")
	st.CreateConversation("b")
	st.SetLanguage(model.German)
	assert.Len(t, changes, 1)

	<-changes
	unsubscribe()
	st.CreateConversation("c")
	assert.Empty(t, changes)
}

func TestMarkdownRender(t *testing.T) {
	md := newMarkdown("dark")
	md.setWidth(60)

	out := md.render("m1", "some **bold** text")
	assert.Contains(t, out, "bold")
	assert.NotContains(t, out, "**")
	assert.Equal(t, out, md.render("m1", "some **bold** text"))

	var plain markdown
	assert.Equal(t, "*raw*", plain.render("m2", "*raw*"))
}
