package userdata

// Status lines shown by the screen.
const (
	StatusIdle     = " "
	StatusFetching = "Fetching User Data..."
	StatusLoaded   = "User data loaded."
	StatusSending  = "Sending user data..."
)

// State is everything the screen renders. Profiles are nil until the host
// supplies them. Values reachable from a State are never mutated in place.
type State struct {
	Remote *RemoteProfile
	App    *AppProfile
	Status string
}

func NewState() State {
	return State{Status: StatusIdle}
}

// Loaded reports whether the app profile has arrived.
func (s State) Loaded() bool {
	return s.App != nil
}

// Event is a screen state transition.
type Event interface {
	event()
}

type FetchStarted struct{}

type FetchCompleted struct {
	Response FetchUserDataResponse
}

type SaveStarted struct{}

type SaveCompleted struct {
	Response SetUserDataResponse
}

type FavoriteColorEdited struct {
	Color string
}

func (FetchStarted) event()        {}
func (FetchCompleted) event()      {}
func (SaveStarted) event()         {}
func (SaveCompleted) event()       {}
func (FavoriteColorEdited) event() {}

// Reduce applies e to s. The fetch and save cycles share the status line, so
// whichever event lands last wins.
func Reduce(s State, e Event) State {
	switch e := e.(type) {
	case FetchStarted:
		s.Status = StatusFetching

	case FetchCompleted:
		if e.Response.RedditUser.Present {
			s.Remote = nil
			if remote, ok := e.Response.RedditUser.Get(); ok {
				s.Remote = &remote
			}
		}
		if e.Response.DBUser.Present {
			s.App = nil
			if app, ok := e.Response.DBUser.Get(); ok {
				app = app.Clone()
				s.App = &app
			}
		}
		s.Status = StatusLoaded

	case SaveStarted:
		s.Status = StatusSending

	case SaveCompleted:
		if status, ok := e.Response.Status.Get(); ok {
			s.Status = status
		}

	case FavoriteColorEdited:
		if s.App != nil {
			updated := s.App.WithFavoriteColor(e.Color)
			s.App = &updated
		}
	}
	return s
}
