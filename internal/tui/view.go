package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/standardbeagle/webview/internal/tui/notifications"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width > 0 && (m.width < MinTerminalWidth || m.height < MinTerminalHeight) {
		return ErrTerminalTooSmall
	}

	header := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(ScreenTitle),
		statusStyle.Render(m.state.Status),
	)

	side := lipgloss.JoinVertical(lipgloss.Left,
		renderButton("Fetch User Info", "f"),
		"",
		renderPanel(InstructionsTitle, textStyle.Render(InstructionsText), m.sideWidth()),
	)
	info := renderPanel(UserInfoTitle, m.renderUserInfo(), m.infoWidth())

	var body string
	if m.width >= WideLayoutMinWidth {
		body = lipgloss.JoinHorizontal(lipgloss.Top, side, "  ", info)
	} else {
		body = lipgloss.JoinVertical(lipgloss.Left, side, "", info)
	}

	sections := []string{header, "", body, "", m.help.View(m.keys)}
	if note := m.renderNotification(); note != "" {
		sections = append(sections, note)
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderUserInfo() string {
	var b strings.Builder

	b.WriteString(boldStyle.Render("Reddit User Info:"))
	b.WriteString("\n")
	username, userID := placeholder(), placeholder()
	if remote := m.state.Remote; remote != nil {
		username = boldStyle.Render(remote.Username)
		userID = boldStyle.Render(remote.UserID)
	}
	b.WriteString(textStyle.Render("Username: ") + username + "\n")
	b.WriteString(textStyle.Render("User ID: ") + userID + "\n")

	b.WriteString(dividerStyle.Render(strings.Repeat("─", 20)))
	b.WriteString("\n")

	b.WriteString(boldStyle.Render("Custom User Info (store):"))
	b.WriteString("\n")
	b.WriteString(textStyle.Render("Favorite color:"))
	b.WriteString("\n")
	if m.state.App == nil {
		b.WriteString(placeholder())
		b.WriteString("\n")
	} else {
		style := inputStyle
		if m.colorInput.Focused() {
			style = focusedInputStyle
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center,
			style.Render(m.colorInput.View()),
			" ",
			renderButton("Save", "s"),
		))
		b.WriteString("\n")
	}

	b.WriteString(textStyle.Render("Acquired weapons:"))
	switch {
	case m.state.App == nil:
		b.WriteString("\n")
		b.WriteString(placeholder())
	case m.weaponRows > 0:
		b.WriteString("\n")
		b.WriteString(m.weapons.View())
	}

	return b.String()
}

func (m Model) renderNotification() string {
	if !m.notifications.IsActive() {
		return ""
	}
	if m.notifications.GetLevel() == notifications.LevelError {
		return errorNotificationStyle.Render(m.notifications.GetMessage())
	}
	return infoNotificationStyle.Render(m.notifications.GetMessage())
}

func (m Model) sideWidth() int {
	if m.width >= WideLayoutMinWidth {
		return SideColumnWidth
	}
	return 0
}

func (m Model) infoWidth() int {
	if m.width >= WideLayoutMinWidth {
		return m.width - SideColumnWidth - 6
	}
	return 0
}

func placeholder() string {
	return placeholderStyle.Render(LoadingPlaceholder)
}
