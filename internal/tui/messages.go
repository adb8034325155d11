package tui

// stateChangedMsg signals that the screen state moved; the model re-reads it.
type stateChangedMsg struct{}

// actionErrorMsg reports a bridge failure from fetch or save.
type actionErrorMsg struct {
	Action string
	Err    error
}
