package userdata

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/webview/internal/bridge"
	"github.com/standardbeagle/webview/pkg/events"
)

// MockClient records posted messages and keeps registered handlers so
// tests can play the host.
type MockClient struct {
	mock.Mock

	mu       sync.Mutex
	handlers map[events.Kind]events.Handler
	session  bridge.Session
}

func NewMockClient(userID string) *MockClient {
	return &MockClient{
		handlers: make(map[events.Kind]events.Handler),
		session:  bridge.Session{UserID: userID},
	}
}

func (m *MockClient) On(kind events.Kind, handler events.Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[kind] = handler
}

func (m *MockClient) Off(kind events.Kind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, kind)
}

func (m *MockClient) PostMessage(ctx context.Context, msg events.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockClient) Session() bridge.Session {
	return m.session
}

func (m *MockClient) registered() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handlers)
}

// deliver plays an inbound host message; it reports whether a handler was attached.
func (m *MockClient) deliver(t *testing.T, kind events.Kind, payload string) bool {
	t.Helper()
	m.mu.Lock()
	handler, ok := m.handlers[kind]
	m.mu.Unlock()
	if !ok {
		return false
	}
	handler(events.Message{Type: kind, Data: []byte(payload)})
	return true
}

func setupTestScreen(t *testing.T) (*Screen, *MockClient) {
	t.Helper()
	client := NewMockClient("t2_user")
	screen := NewScreen(client.Session())
	screen.Mount(client)
	return screen, client
}

func TestScreenMountRegistersBothHandlers(t *testing.T) {
	screen, client := setupTestScreen(t)
	assert.True(t, screen.Mounted())
	assert.Equal(t, 2, client.registered())

	// Mounting twice keeps a single registration per kind
	screen.Mount(client)
	assert.Equal(t, 2, client.registered())
}

func TestScreenFetch(t *testing.T) {
	screen, client := setupTestScreen(t)

	var posted events.Message
	client.Mock.On("PostMessage", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { posted = args.Get(1).(events.Message) }).
		Return(nil).Once()

	require.NoError(t, screen.Fetch(context.Background()))
	assert.Equal(t, StatusFetching, screen.State().Status)

	assert.Equal(t, KindFetchUserData, posted.Type)
	assert.JSONEq(t, `{"userId":"t2_user"}`, string(posted.Data))

	require.True(t, client.deliver(t, KindFetchUserDataResponse,
		`{"redditUser":{"username":"spez","userId":"t2_user"},"dbUser":{"favoriteColor":"red","weapons":["sword","sword","bow"]}}`))

	state := screen.State()
	assert.Equal(t, StatusLoaded, state.Status)
	assert.Equal(t, &RemoteProfile{Username: "spez", UserID: "t2_user"}, state.Remote)
	assert.Equal(t, []WeaponCount{{"sword", 2}, {"bow", 1}}, state.Weapons())
	client.AssertExpectations(t)
}

func TestScreenSaveWithoutProfileSendsNothing(t *testing.T) {
	screen, client := setupTestScreen(t)

	require.NoError(t, screen.Save(context.Background()))

	client.AssertNumberOfCalls(t, "PostMessage", 0)
	assert.Equal(t, StatusSending, screen.State().Status, "aborted save keeps the sending status")
}

func TestScreenSaveSendsCurrentProfile(t *testing.T) {
	screen, client := setupTestScreen(t)
	require.True(t, client.deliver(t, KindFetchUserDataResponse, `{"dbUser":{"favoriteColor":"red","weapons":["bow"]}}`))
	screen.EditFavoriteColor("blue")

	var posted events.Message
	client.Mock.On("PostMessage", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { posted = args.Get(1).(events.Message) }).
		Return(nil)

	require.NoError(t, screen.Save(context.Background()))
	client.AssertNumberOfCalls(t, "PostMessage", 1)
	assert.Equal(t, StatusSending, screen.State().Status)

	assert.Equal(t, KindSetUserData, posted.Type)
	var req SetUserDataRequest
	require.NoError(t, posted.Decode(&req))
	assert.Equal(t, "t2_user", req.UserID)
	require.NotNil(t, req.UserData)
	assert.Equal(t, *screen.State().App, *req.UserData)

	require.True(t, client.deliver(t, KindSetUserDataResponse, `{"status":"User data saved."}`))
	assert.Equal(t, "User data saved.", screen.State().Status)
}

func TestScreenPostErrorIsReturned(t *testing.T) {
	screen, client := setupTestScreen(t)
	client.Mock.On("PostMessage", mock.Anything, mock.Anything).Return(bridge.ErrNotConnected)

	err := screen.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, bridge.ErrNotConnected))
	assert.Equal(t, StatusFetching, screen.State().Status, "no rollback on transport failure")
}

func TestScreenEditFavoriteColor(t *testing.T) {
	screen, client := setupTestScreen(t)

	screen.EditFavoriteColor("blue")
	assert.Nil(t, screen.State().App, "editing before load is a no-op")

	require.True(t, client.deliver(t, KindFetchUserDataResponse, `{"dbUser":{"favoriteColor":"red","weapons":["sword","bow"]}}`))
	before := screen.State().App

	screen.EditFavoriteColor("blue")
	after := screen.State().App
	require.NotNil(t, after)
	assert.Equal(t, "blue", after.FavoriteColor)
	assert.Equal(t, before.Weapons, after.Weapons)
}

func TestScreenUnmountDetachesHandlers(t *testing.T) {
	screen, client := setupTestScreen(t)
	require.True(t, client.deliver(t, KindFetchUserDataResponse, `{"dbUser":{"favoriteColor":"red","weapons":[]}}`))
	before := screen.State()

	screen.Unmount()
	assert.False(t, screen.Mounted())
	assert.Equal(t, 0, client.registered())

	assert.False(t, client.deliver(t, KindFetchUserDataResponse, `{"dbUser":{"favoriteColor":"green"}}`))
	assert.False(t, client.deliver(t, KindSetUserDataResponse, `{"status":"late"}`))
	assert.Equal(t, before, screen.State())

	// Unmount is idempotent and actions now fail fast
	screen.Unmount()
	assert.ErrorIs(t, screen.Fetch(context.Background()), ErrNotMounted)
	assert.ErrorIs(t, screen.Save(context.Background()), ErrNotMounted)
}

// A handler captured before Unmount must not mutate state afterwards.
func TestScreenStaleHandlerIgnored(t *testing.T) {
	screen, client := setupTestScreen(t)

	client.mu.Lock()
	stale := client.handlers[KindSetUserDataResponse]
	client.mu.Unlock()

	screen.Unmount()
	stale(events.Message{Type: KindSetUserDataResponse, Data: []byte(`{"status":"late"}`)})
	assert.Equal(t, StatusIdle, screen.State().Status)
}

func TestScreenMalformedResponseIgnored(t *testing.T) {
	screen, client := setupTestScreen(t)

	require.True(t, client.deliver(t, KindFetchUserDataResponse, `{"dbUser":`))
	assert.Equal(t, NewState(), screen.State())
}

func TestScreenOnChange(t *testing.T) {
	client := NewMockClient("t2_user")
	var statuses []string
	screen := NewScreen(client.Session(), WithOnChange(func(s State) {
		statuses = append(statuses, s.Status)
	}))
	screen.Mount(client)
	client.Mock.On("PostMessage", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, screen.Fetch(context.Background()))
	client.deliver(t, KindFetchUserDataResponse, `{}`)

	assert.Equal(t, []string{StatusFetching, StatusLoaded}, statuses)
}

// End to end against the in-process bridge.
func TestScreenWithLoopback(t *testing.T) {
	session := bridge.Session{UserID: "t2_user"}
	host := bridge.ResponderFunc(func(ctx context.Context, msg events.Message) []events.Message {
		switch msg.Type {
		case KindFetchUserData:
			reply, _ := events.NewMessage(KindFetchUserDataResponse, FetchUserDataResponse{
				DBUser: Some(AppProfile{FavoriteColor: "red", Weapons: []string{"bow"}}),
			})
			return []events.Message{reply}
		case KindSetUserData:
			reply, _ := events.NewMessage(KindSetUserDataResponse, SetUserDataResponse{Status: Some("ok")})
			return []events.Message{reply}
		}
		return nil
	})
	loop := bridge.NewLoopback(session, host)

	screen := NewScreen(session)
	screen.Mount(loop)
	defer screen.Unmount()

	require.NoError(t, screen.Fetch(context.Background()))
	assert.Equal(t, StatusLoaded, screen.State().Status)

	require.NoError(t, screen.Save(context.Background()))
	assert.Equal(t, "ok", screen.State().Status)
	assert.Equal(t, int64(2), loop.Posted())
}
