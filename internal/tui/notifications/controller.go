package notifications

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Level selects how a notification is styled.
type Level int

const (
	LevelInfo Level = iota
	LevelError
)

// Controller manages a single transient notification.
type Controller struct {
	message          string
	level            Level
	notificationTime time.Time
	duration         time.Duration
}

// NewController creates a new notifications controller
func NewController() *Controller {
	return &Controller{
		duration: 3 * time.Second, // Default notification duration
	}
}

// SetDuration sets the default notification duration
func (c *Controller) SetDuration(d time.Duration) {
	c.duration = d
}

// Show displays an info notification
func (c *Controller) Show(message string) tea.Cmd {
	return c.show(message, LevelInfo)
}

// ShowError displays an error notification
func (c *Controller) ShowError(message string) tea.Cmd {
	return c.show(message, LevelError)
}

func (c *Controller) show(message string, level Level) tea.Cmd {
	c.message = message
	c.level = level
	c.notificationTime = time.Now()

	shownAt := c.notificationTime
	// Return a command to clear the notification after duration
	return tea.Tick(c.duration, func(t time.Time) tea.Msg {
		return ClearNotificationMsg{clearTime: shownAt}
	})
}

// Clear clears the current notification
func (c *Controller) Clear() {
	c.message = ""
	c.level = LevelInfo
	c.notificationTime = time.Time{}
}

// HandleMsg clears the notification when its timer fires. Timers from
// replaced notifications are ignored.
func (c *Controller) HandleMsg(msg tea.Msg) {
	if clearMsg, ok := msg.(ClearNotificationMsg); ok {
		if clearMsg.clearTime.Equal(c.notificationTime) {
			c.Clear()
		}
	}
}

// GetMessage returns the current notification message
func (c *Controller) GetMessage() string {
	return c.message
}

// GetLevel returns the level of the current notification
func (c *Controller) GetLevel() Level {
	return c.level
}

// IsActive returns whether a notification is currently displayed
func (c *Controller) IsActive() bool {
	if c.message == "" {
		return false
	}
	if time.Since(c.notificationTime) > c.duration {
		c.Clear()
		return false
	}
	return true
}

// ClearNotificationMsg is sent when a notification expires
type ClearNotificationMsg struct {
	clearTime time.Time
}
