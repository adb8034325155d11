package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	textStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	boldStyle = lipgloss.NewStyle().
			Bold(true)

	placeholderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("250")).
				Italic(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	panelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	buttonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	inputStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240"))

	focusedInputStyle = inputStyle.
				BorderForeground(lipgloss.Color("69"))

	dividerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238"))

	errorNotificationStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("196"))

	infoNotificationStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("82"))
)

// renderPanel draws a bordered box with a bold title, like a card.
func renderPanel(title, body string, width int) string {
	style := panelStyle
	if width > 0 {
		style = style.Width(width)
	}
	return style.Render(lipgloss.JoinVertical(lipgloss.Left,
		panelTitleStyle.Render(title),
		body,
	))
}

// renderButton draws a key-labelled button.
func renderButton(label, keyHint string) string {
	return buttonStyle.Render(label) + " " + statusStyle.Render("("+keyHint+")")
}
