package tui

// UI Layout Constants
const (
	// Terminal size constraints
	MinTerminalWidth  = 20
	MinTerminalHeight = 10

	// Below this width the side column stacks above the user info panel
	WideLayoutMinWidth = 80

	SideColumnWidth     = 30
	ColorInputWidth     = 24
	ColorInputCharLimit = 64

	// Acquired weapons list scrolls past this many rows
	MaxWeaponRows = 8

	// Update channel buffer size
	UpdateChannelBufferSize = 100
)

// Fixed screen text
const (
	ScreenTitle         = "User Data"
	LoadingPlaceholder  = "..."
	InstructionsTitle   = "Demo Instructions"
	InstructionsText    = "User data is defined in internal/userdata/types.go.\nSome user data comes from the remote identity platform. Weapons are granted by the host."
	UserInfoTitle       = "User Info"
	ErrTerminalTooSmall = "Terminal too small"
)
