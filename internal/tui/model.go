package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/standardbeagle/webview/internal/bridge"
	"github.com/standardbeagle/webview/internal/tui/notifications"
	"github.com/standardbeagle/webview/internal/userdata"
)

type Model struct {
	screen *userdata.Screen
	client bridge.Client
	ctx    context.Context
	logger *slog.Logger

	state         userdata.State
	colorInput    textinput.Model
	weapons       viewport.Model
	weaponRows    int
	notifications *notifications.Controller
	help          help.Model
	keys          keyMap

	width    int
	height   int
	quitting bool

	updateChan chan tea.Msg
}

type Option func(*Model)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Model) { m.logger = logger }
}

// WithContext sets the context bridge requests are posted under.
func WithContext(ctx context.Context) Option {
	return func(m *Model) { m.ctx = ctx }
}

// NewModel builds the user data screen for session on top of client. The
// screen is mounted by Init and unmounted on quit or Close.
func NewModel(client bridge.Client, session bridge.Session, opts ...Option) Model {
	m := Model{
		client:        client,
		ctx:           context.Background(),
		logger:        slog.New(slog.DiscardHandler),
		notifications: notifications.NewController(),
		help:          help.New(),
		keys:          keys,
		updateChan:    make(chan tea.Msg, UpdateChannelBufferSize),
	}
	for _, opt := range opts {
		opt(&m)
	}

	updates := m.updateChan
	m.screen = userdata.NewScreen(session,
		userdata.WithLogger(m.logger),
		userdata.WithOnChange(func(userdata.State) {
			// Coalesce: one pending signal is enough since the model re-reads state.
			select {
			case updates <- stateChangedMsg{}:
			default:
			}
		}),
	)
	m.state = m.screen.State()

	m.colorInput = textinput.New()
	m.colorInput.Prompt = ""
	m.colorInput.Placeholder = "favorite color"
	m.colorInput.CharLimit = ColorInputCharLimit
	m.colorInput.Width = ColorInputWidth

	m.weapons = viewport.New(SideColumnWidth, 1)
	return m
}

// Screen exposes the underlying screen.
func (m Model) Screen() *userdata.Screen {
	return m.screen
}

// Close unmounts the screen. Safe to call after quitting.
func (m Model) Close() {
	m.screen.Unmount()
}

func (m Model) Init() tea.Cmd {
	m.screen.Mount(m.client)
	return tea.Batch(
		m.waitForUpdates(),
		textinput.Blink,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.resizeWeapons()
		return m, nil

	case stateChangedMsg:
		m.syncState()
		return m, m.waitForUpdates()

	case actionErrorMsg:
		m.logger.Error("bridge action failed", "action", msg.Action, "error", msg.Err)
		return m, m.notifications.ShowError(fmt.Sprintf("%s failed: %v", msg.Action, msg.Err))

	case notifications.ClearNotificationMsg:
		m.notifications.HandleMsg(msg)
		return m, nil

	case tea.KeyMsg:
		if m.colorInput.Focused() {
			return m.updateEditing(msg)
		}
		return m.updateKeys(msg)
	}

	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		m.screen.Unmount()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Fetch):
		return m, m.fetchCmd()

	case key.Matches(msg, m.keys.Save):
		if !m.state.Loaded() {
			return m, nil
		}
		return m, m.saveCmd()

	case key.Matches(msg, m.keys.Edit):
		if !m.state.Loaded() {
			return m, nil
		}
		return m, m.colorInput.Focus()

	case key.Matches(msg, m.keys.Up):
		m.weapons.LineUp(1)
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.weapons.LineDown(1)
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}
	return m, nil
}

func (m Model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		m.quitting = true
		m.screen.Unmount()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Blur):
		m.colorInput.Blur()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		m.colorInput.Blur()
		return m, m.saveCmd()
	}

	before := m.colorInput.Value()
	var cmd tea.Cmd
	m.colorInput, cmd = m.colorInput.Update(msg)
	if after := m.colorInput.Value(); after != before {
		m.screen.EditFavoriteColor(after)
		m.state = m.screen.State()
	}
	return m, cmd
}

func (m Model) fetchCmd() tea.Cmd {
	screen, ctx := m.screen, m.ctx
	return func() tea.Msg {
		if err := screen.Fetch(ctx); err != nil {
			return actionErrorMsg{Action: "fetch", Err: err}
		}
		return nil
	}
}

func (m Model) saveCmd() tea.Cmd {
	screen, ctx := m.screen, m.ctx
	return func() tea.Msg {
		if err := screen.Save(ctx); err != nil {
			return actionErrorMsg{Action: "save", Err: err}
		}
		return nil
	}
}

func (m Model) waitForUpdates() tea.Cmd {
	return func() tea.Msg {
		return <-m.updateChan
	}
}

// syncState copies the screen state into the widgets.
func (m *Model) syncState() {
	m.state = m.screen.State()

	if m.state.App != nil && m.colorInput.Value() != m.state.App.FavoriteColor {
		m.colorInput.SetValue(m.state.App.FavoriteColor)
	}
	if m.state.App == nil {
		m.colorInput.Blur()
		m.colorInput.SetValue("")
	}

	rows := m.state.Weapons()
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, textStyle.Render(row.String()))
	}
	m.weaponRows = len(lines)
	m.weapons.SetContent(strings.Join(lines, "\n"))
	m.resizeWeapons()
}

func (m *Model) resizeWeapons() {
	height := min(max(m.weaponRows, 1), MaxWeaponRows)
	m.weapons.Height = height
	m.weapons.Width = SideColumnWidth
	if m.width >= WideLayoutMinWidth {
		m.weapons.Width = max(m.width-SideColumnWidth-8, SideColumnWidth)
	}
}
