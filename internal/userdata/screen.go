package userdata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/standardbeagle/webview/internal/bridge"
	"github.com/standardbeagle/webview/pkg/events"
)

// ErrNotMounted is returned by actions on a screen with no bridge attached.
var ErrNotMounted = errors.New("user data screen is not mounted")

// Screen is the user data page without any presentation. It owns the state,
// registers the two response handlers while mounted and sends the two
// requests on behalf of the session user.
type Screen struct {
	mu      sync.Mutex
	state   State
	client  bridge.Client
	session bridge.Session
	mounted bool

	logger   *slog.Logger
	onChange func(State)
}

type Option func(*Screen)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Screen) { s.logger = logger }
}

// WithOnChange registers a callback invoked with the new state after every
// transition. It runs outside the screen lock.
func WithOnChange(fn func(State)) Option {
	return func(s *Screen) { s.onChange = fn }
}

func NewScreen(session bridge.Session, opts ...Option) *Screen {
	s := &Screen{
		state:   NewState(),
		session: session,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mount attaches the screen to client. Mounting an already mounted screen
// does nothing.
func (s *Screen) Mount(client bridge.Client) {
	s.mu.Lock()
	if s.mounted {
		s.mu.Unlock()
		return
	}
	s.client = client
	s.mounted = true
	s.mu.Unlock()

	client.On(KindFetchUserDataResponse, s.handleFetchResponse)
	client.On(KindSetUserDataResponse, s.handleSetResponse)
	s.logger.Debug("user data screen mounted", "user", s.session.UserID)
}

// Unmount detaches both handlers. Messages arriving afterwards are ignored.
func (s *Screen) Unmount() {
	s.mu.Lock()
	if !s.mounted {
		s.mu.Unlock()
		return
	}
	client := s.client
	s.mounted = false
	s.client = nil
	s.mu.Unlock()

	client.Off(KindFetchUserDataResponse)
	client.Off(KindSetUserDataResponse)
	s.logger.Debug("user data screen unmounted", "user", s.session.UserID)
}

// Mounted reports whether the screen is attached to a bridge.
func (s *Screen) Mounted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mounted
}

// State returns the current state.
func (s *Screen) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Session returns the user the screen acts for.
func (s *Screen) Session() bridge.Session {
	return s.session
}

// Fetch asks the host for both profiles.
func (s *Screen) Fetch(ctx context.Context) error {
	client, err := s.currentClient()
	if err != nil {
		return err
	}

	s.apply(FetchStarted{})

	msg, err := events.NewMessage(KindFetchUserData, FetchUserDataRequest{UserID: s.session.UserID})
	if err != nil {
		return err
	}
	if err := client.PostMessage(ctx, msg); err != nil {
		s.logger.Error("failed to post fetch request", "error", err)
		return fmt.Errorf("failed to request user data: %w", err)
	}
	return nil
}

// Save sends the current app profile to the host. Without a loaded profile
// nothing is sent and the sending status stays in place.
func (s *Screen) Save(ctx context.Context) error {
	client, err := s.currentClient()
	if err != nil {
		return err
	}

	state := s.apply(SaveStarted{})
	if state.App == nil {
		s.logger.Error("no user data to send", "user", s.session.UserID)
		return nil
	}

	profile := state.App.Clone()
	msg, err := events.NewMessage(KindSetUserData, SetUserDataRequest{
		UserID:   s.session.UserID,
		UserData: &profile,
	})
	if err != nil {
		return err
	}
	if err := client.PostMessage(ctx, msg); err != nil {
		s.logger.Error("failed to post save request", "error", err)
		return fmt.Errorf("failed to send user data: %w", err)
	}
	return nil
}

// EditFavoriteColor updates the favorite color of the loaded profile. It is a
// no-op while the profile is absent.
func (s *Screen) EditFavoriteColor(color string) {
	s.apply(FavoriteColorEdited{Color: color})
}

func (s *Screen) currentClient() (bridge.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return nil, ErrNotMounted
	}
	return s.client, nil
}

func (s *Screen) handleFetchResponse(msg events.Message) {
	s.logger.Debug("received user data", "payload", string(msg.Data))

	resp, err := DecodeFetchResponse(msg)
	if err != nil {
		s.logger.Warn("ignoring fetch response", "error", err)
		return
	}
	s.applyInbound(FetchCompleted{Response: resp})
}

func (s *Screen) handleSetResponse(msg events.Message) {
	s.logger.Debug("received set user data response", "payload", string(msg.Data))

	resp, err := DecodeSetResponse(msg)
	if err != nil {
		s.logger.Warn("ignoring set response", "error", err)
		return
	}
	s.applyInbound(SaveCompleted{Response: resp})
}

// applyInbound drops host messages that race with Unmount.
func (s *Screen) applyInbound(e Event) {
	s.mu.Lock()
	if !s.mounted {
		s.mu.Unlock()
		return
	}
	s.state = Reduce(s.state, e)
	state := s.state
	s.mu.Unlock()

	s.changed(state)
}

func (s *Screen) apply(e Event) State {
	s.mu.Lock()
	s.state = Reduce(s.state, e)
	state := s.state
	s.mu.Unlock()

	s.changed(state)
	return state
}

func (s *Screen) changed(state State) {
	if s.onChange != nil {
		s.onChange(state)
	}
}
