// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/lumen/internal/locale"
	"github.com/jeranaias/lumen/internal/model"
	"github.com/jeranaias/lumen/internal/util"
)

// View renders the screen.
func (m Model) View() string {
	header := m.renderHeader()
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), m.renderMain())
	input := m.theme.InputContainer.Width(m.width).Render(m.input.View())
	return lipgloss.JoinVertical(lipgloss.Left, header, body, input, m.renderStatus())
}

func (m Model) renderHeader() string {
	strs := locale.For(m.state.Language)
	title := m.theme.HeaderTitle.Render(strs.Title)
	slogan := m.theme.Slogan.Render(strs.Slogan)
	lang := m.theme.Slogan.Render(strs.LanguageSelectorHeader + ": " + m.state.Language.NativeName())

	left := title + "  " + slogan
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(lang) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.Header.Width(m.width).Render(left + strings.Repeat(" ", gap) + lang)
}

func (m Model) renderSidebar() string {
	strs := locale.For(m.state.Language)
	width := m.sidebarWidth() - 4

	var b strings.Builder
	b.WriteString(m.theme.SidebarHeader.Render(strs.ChatHistoryHeader))
	b.WriteString("\n")
	for i, conv := range m.state.Conversations {
		name := util.TruncateWidth(conv.Name, width-2)
		line := "  " + name
		if conv.ID == m.state.ActiveConversationID {
			line = m.theme.SidebarActive.Render("● " + name)
		} else {
			line = m.theme.SidebarItem.Render(line)
		}
		if m.focus == focusSidebar && i == m.cursor {
			line = m.theme.SidebarSelected.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	style := m.theme.Sidebar
	if m.focus == focusSidebar {
		style = m.theme.SidebarFocused
	}
	height := m.viewport.Height - 2
	if height < 1 {
		height = 1
	}
	return style.Width(width).Height(height).Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) renderMain() string {
	if _, ok := m.state.Active(); !ok {
		strs := locale.For(m.state.Language)
		welcome := m.theme.WelcomeHeader.Render(strs.WelcomeHeader) + "\n" +
			m.theme.WelcomeMessage.Render(strs.WelcomeMessage)
		return lipgloss.Place(m.viewport.Width, m.viewport.Height, lipgloss.Center, lipgloss.Center, welcome)
	}
	return m.viewport.View()
}

// renderConversation renders the active conversation's messages.
func (m Model) renderConversation() string {
	conv, ok := m.state.Active()
	if !ok {
		return ""
	}
	width := m.viewport.Width - 2
	if width < 10 {
		width = 10
	}

	var b strings.Builder
	for i, msg := range conv.Messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.renderMessage(msg, width, i == len(conv.Messages)-1))
	}
	return b.String()
}

func (m Model) renderMessage(msg model.Message, width int, last bool) string {
	if msg.Role == model.RoleUser {
		return m.theme.UserLabel.Render(msg.Role.DisplayName()) + "\n" +
			m.theme.UserBubble.Width(width).Render(msg.Text)
	}

	label := m.theme.AssistantLabel.Render(msg.Role.DisplayName())
	switch {
	case msg.Text == "" && last && m.state.InFlight:
		return label + "\n" + m.theme.AssistantBubble.Render(m.spinner.View())
	case msg.Text == locale.ErrorMessage(msg.Language):
		return label + "\n" + m.theme.ErrorBubble.Width(width).Render(msg.Text)
	case m.md != nil:
		return label + "\n" + m.theme.AssistantBubble.Render(m.md.render(msg.ID, msg.Text))
	default:
		return label + "\n" + m.theme.AssistantBubble.Width(width).Render(msg.Text)
	}
}

func (m Model) renderStatus() string {
	left := m.help.View(m.keys)
	if m.state.InFlight {
		left = m.spinner.View() + m.theme.Streaming.Render(" streaming") + "  " + left
	}
	if m.notice != "" {
		left = m.theme.ErrorBubble.UnsetBorderStyle().Render(m.notice) + "  " + left
	}

	right := m.status
	if n := len(m.state.Conversations); n > 0 {
		right = strings.TrimSpace(fmt.Sprintf("%s  %d chats", right, n))
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.StatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}
