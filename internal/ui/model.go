// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/lumen/internal/locale"
	"github.com/jeranaias/lumen/internal/model"
	"github.com/jeranaias/lumen/internal/orchestrator"
	"github.com/jeranaias/lumen/internal/store"
	"github.com/jeranaias/lumen/internal/ui/styles"
)

// Options configures the chat screen.
type Options struct {
	Store        *store.Store
	Orchestrator *orchestrator.Orchestrator

	// Markdown renders assistant replies with glamour.
	Markdown bool

	// Theme is "auto", "dark" or "light".
	Theme string

	// Status is shown on the right of the status bar (provider, server URL).
	Status string
}

// =============================================================================
// MESSAGES
// =============================================================================

// stateChangedMsg tells the model to re-read the store snapshot.
type stateChangedMsg struct{}

// sendDoneMsg reports the end of a send started from the input box.
type sendDoneMsg struct {
	result orchestrator.Result
	err    error
}

// =============================================================================
// MODEL
// =============================================================================

type focus int

const (
	focusInput focus = iota
	focusSidebar
)

const (
	minSidebarWidth = 20
	maxSidebarWidth = 32
	headerHeight    = 2
	inputHeight     = 2
	statusHeight    = 1
)

// Model is the Bubble Tea model for the chat screen. It renders store
// snapshots and never mutates conversation data except through store
// transforms and the orchestrator.
type Model struct {
	ctx   context.Context
	store *store.Store
	orch  *orchestrator.Orchestrator
	sends *sync.WaitGroup

	theme *styles.Theme
	md    *markdown
	keys  KeyMap

	help     help.Model
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	state  model.State
	focus  focus
	cursor int
	status string
	notice string

	width  int
	height int
}

// NewModel creates the chat screen. Sends started from the model run with
// ctx and are tracked in sends.
func NewModel(ctx context.Context, opts Options, sends *sync.WaitGroup) Model {
	theme := styles.NewTheme(opts.Theme)

	input := textinput.New()
	input.Prompt = "> "
	input.CharLimit = 0
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	m := Model{
		ctx:      ctx,
		store:    opts.Store,
		orch:     opts.Orchestrator,
		sends:    sends,
		theme:    theme,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		input:    input,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		status:   opts.Status,
		width:    80,
		height:   24,
	}
	if opts.Markdown {
		m.md = newMarkdown(theme.GlamourStyle())
	}
	m.layout()
	m.refresh()
	return m
}

// Init starts the cursor blink and spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		m.refresh()
		return m, nil

	case stateChangedMsg:
		m.refresh()
		return m, nil

	case sendDoneMsg:
		if msg.err != nil {
			m.notice = msg.err.Error()
			log.Debug().Err(msg.err).Msg("send rejected")
		} else {
			m.notice = ""
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.state.InFlight {
			m.refresh()
		}
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
		return m, nil

	case key.Matches(msg, m.keys.NewChat):
		m.store.CreateConversation(locale.NewChatName(m.state.Language))
		m.setFocus(focusInput)
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.DeleteChat):
		if id := m.targetConversation(); id != "" {
			m.store.DeleteConversation(id)
		}
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.Language):
		m.store.SetLanguage(nextLanguage(m.state.Language))
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.Focus):
		if m.focus == focusInput {
			m.setFocus(focusSidebar)
		} else {
			m.setFocus(focusInput)
		}
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	if m.focus == focusSidebar {
		return m.handleSidebarKey(msg)
	}

	if key.Matches(msg, m.keys.Submit) {
		return m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.state.Conversations)
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < n-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Submit):
		if m.cursor < n {
			m.store.SetActive(m.state.Conversations[m.cursor].ID)
		}
		m.setFocus(focusInput)
		m.refresh()
	}
	return m, nil
}

// submit starts a send of the input text. Input is ignored while a send is
// in flight; with no conversation one is created first.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.store.InFlight() {
		return m, nil
	}
	if m.store.ActiveID() == "" {
		m.store.CreateConversation(locale.NewChatName(m.state.Language))
	}
	m.input.Reset()
	m.notice = ""

	ctx, orch := m.ctx, m.orch
	m.sends.Add(1)
	cmd := func() tea.Msg {
		defer m.sends.Done()
		res, err := orch.Send(ctx, text)
		return sendDoneMsg{result: res, err: err}
	}
	m.refresh()
	return m, cmd
}

// targetConversation is the sidebar selection when the sidebar has focus,
// otherwise the active conversation.
func (m Model) targetConversation() string {
	if m.focus == focusSidebar && m.cursor < len(m.state.Conversations) {
		return m.state.Conversations[m.cursor].ID
	}
	return m.state.ActiveConversationID
}

func (m *Model) setFocus(f focus) {
	m.focus = f
	if f == focusInput {
		m.input.Focus()
		return
	}
	m.input.Blur()
	m.cursor = m.activeIndex()
}

// refresh re-reads the store and re-renders the conversation.
func (m *Model) refresh() {
	m.state = m.store.Snapshot()

	if m.focus == focusInput || m.cursor >= len(m.state.Conversations) {
		m.cursor = m.activeIndex()
	}
	m.input.Placeholder = locale.For(m.state.Language).ChatPlaceholder

	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderConversation())
	if atBottom || m.state.InFlight {
		m.viewport.GotoBottom()
	}
}

func (m Model) activeIndex() int {
	for i, conv := range m.state.Conversations {
		if conv.ID == m.state.ActiveConversationID {
			return i
		}
	}
	return 0
}

// layout sizes the viewport and input for the current window.
func (m *Model) layout() {
	sw := m.sidebarWidth()
	mainWidth := m.width - sw
	if mainWidth < 10 {
		mainWidth = 10
	}

	helpHeight := statusHeight
	if m.help.ShowAll {
		helpHeight = len(m.keys.FullHelp()[0]) + 1
	}
	vpHeight := m.height - headerHeight - inputHeight - helpHeight
	if vpHeight < 3 {
		vpHeight = 3
	}

	m.viewport.Width = mainWidth
	m.viewport.Height = vpHeight
	m.input.Width = mainWidth - 4
	m.help.Width = m.width

	if m.md != nil {
		m.md.setWidth(mainWidth - 4)
	}
}

func (m Model) sidebarWidth() int {
	w := m.width / 4
	if w < minSidebarWidth {
		w = minSidebarWidth
	}
	if w > maxSidebarWidth {
		w = maxSidebarWidth
	}
	return w
}

func nextLanguage(cur model.Language) model.Language {
	for i, l := range model.Languages {
		if l == cur {
			return model.Languages[(i+1)%len(model.Languages)]
		}
	}
	return model.DefaultLanguage
}
