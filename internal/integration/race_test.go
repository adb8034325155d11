package integration

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/webview/internal/bridge"
	"github.com/standardbeagle/webview/internal/host"
	"github.com/standardbeagle/webview/internal/store"
	"github.com/standardbeagle/webview/internal/testutil"
	"github.com/standardbeagle/webview/internal/userdata"
	"github.com/standardbeagle/webview/pkg/events"
)

// TestSystemWideRaceConditions drives every shared component from many
// goroutines at once. Run with -race.
func TestSystemWideRaceConditions(t *testing.T) {
	t.Run("LoopbackDispatchStress", func(t *testing.T) {
		const numPosters = 50
		const messagesPerPoster = 100

		echo := bridge.ResponderFunc(func(ctx context.Context, msg events.Message) []events.Message {
			return []events.Message{{Type: msg.Type + "Response", Data: msg.Data}}
		})
		loopback := bridge.NewLoopback(bridge.Session{UserID: "t2_stress"}, echo, bridge.WithAsyncDelivery())

		var handled int64
		loopback.On("pingResponse", func(events.Message) {
			atomic.AddInt64(&handled, 1)
		})

		ping, err := events.NewMessage("ping", map[string]int{"n": 1})
		require.NoError(t, err)

		var wg sync.WaitGroup
		for i := 0; i < numPosters; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < messagesPerPoster; j++ {
					assert.NoError(t, loopback.PostMessage(context.Background(), ping))
				}
			}()
		}
		wg.Wait()
		require.NoError(t, loopback.Close())

		assert.Equal(t, int64(numPosters*messagesPerPoster), loopback.Posted())
		assert.Equal(t, int64(numPosters*messagesPerPoster), atomic.LoadInt64(&handled))
	})

	t.Run("ScreenConcurrentActions", func(t *testing.T) {
		st := store.NewMemoryStore()
		require.NoError(t, st.Put("t2_busy", userdata.AppProfile{
			FavoriteColor: "blue",
			Weapons:       []string{"sword"},
		}))
		session := bridge.Session{UserID: "t2_busy", Username: "busy"}
		loopback := bridge.NewLoopback(session,
			host.NewHandler(st, host.NewDirectory(userdata.RemoteProfile{Username: "busy", UserID: "t2_busy"}), nil),
			bridge.WithAsyncDelivery(),
		)

		var changes int64
		screen := userdata.NewScreen(session, userdata.WithOnChange(func(userdata.State) {
			atomic.AddInt64(&changes, 1)
		}))
		screen.Mount(loopback)

		ctx := context.Background()
		require.NoError(t, screen.Fetch(ctx))
		testutil.RequireEventually(t, time.Second, func() bool {
			return screen.State().Loaded()
		}, "profile should load")

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(3)
			go func() {
				defer wg.Done()
				assert.NoError(t, screen.Fetch(ctx))
			}()
			go func(i int) {
				defer wg.Done()
				screen.EditFavoriteColor(fmt.Sprintf("color-%d", i))
			}(i)
			go func() {
				defer wg.Done()
				assert.NoError(t, screen.Save(ctx))
			}()
		}
		wg.Wait()
		loopback.Wait()

		state := screen.State()
		assert.True(t, state.Loaded())
		assert.Contains(t, []string{userdata.StatusLoaded, host.StatusSaved}, state.Status)
		assert.Equal(t, []string{"sword"}, state.App.Weapons)
		assert.Positive(t, atomic.LoadInt64(&changes))

		screen.Unmount()
		require.NoError(t, loopback.Close())
	})

	t.Run("FileStoreSharedDirectory", func(t *testing.T) {
		dir := t.TempDir()
		first, err := store.NewFileStore(dir)
		require.NoError(t, err)
		second, err := store.NewFileStore(dir)
		require.NoError(t, err)

		const writes = 25
		var wg sync.WaitGroup
		for i, st := range []*store.FileStore{first, second} {
			wg.Add(1)
			go func(i int, st *store.FileStore) {
				defer wg.Done()
				for j := 0; j < writes; j++ {
					err := st.Put("t2_shared", userdata.AppProfile{
						FavoriteColor: fmt.Sprintf("writer-%d-%d", i, j),
						Weapons:       []string{"bow"},
					})
					assert.NoError(t, err)
				}
			}(i, st)
		}
		wg.Wait()

		// A fresh store reads whatever landed last, intact.
		reader, err := store.NewFileStore(dir)
		require.NoError(t, err)
		profile, found, err := reader.Get("t2_shared")
		require.NoError(t, err)
		require.True(t, found)
		assert.True(t, strings.HasPrefix(profile.FavoriteColor, "writer-"))
		assert.Equal(t, []string{"bow"}, profile.Weapons)
	})

	t.Run("HostConcurrentClients", func(t *testing.T) {
		st, err := store.NewFileStore(t.TempDir())
		require.NoError(t, err)
		directory := host.NewDirectory()
		srv := host.NewServer("127.0.0.1:0", host.NewHandler(st, directory, nil), directory, nil)
		ts := httptest.NewServer(srv.Router())
		defer ts.Close()
		url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/bridge"

		const numClients = 10
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var wg sync.WaitGroup
		for i := 0; i < numClients; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				session := bridge.Session{
					UserID:   fmt.Sprintf("t2_client%d", i),
					Username: fmt.Sprintf("client%d", i),
				}
				client, err := bridge.Dial(ctx, url, session)
				if !assert.NoError(t, err) {
					return
				}
				defer client.Close()

				screen := userdata.NewScreen(session)
				screen.Mount(client)
				defer screen.Unmount()

				assert.NoError(t, screen.Fetch(ctx))
				if !testutil.WaitForCondition(t, 5*time.Second, func() bool { return screen.State().Loaded() }) {
					t.Errorf("client %d never loaded", i)
					return
				}
				if remote := screen.State().Remote; assert.NotNil(t, remote) {
					assert.Equal(t, session.Username, remote.Username)
				}

				screen.EditFavoriteColor(fmt.Sprintf("color-%d", i))
				assert.NoError(t, screen.Save(ctx))
				if !testutil.WaitForCondition(t, 5*time.Second, func() bool {
					return screen.State().Status == host.StatusSaved
				}) {
					t.Errorf("client %d never saved", i)
				}
			}(i)
		}
		wg.Wait()

		for i := 0; i < numClients; i++ {
			profile, found, err := st.Get(fmt.Sprintf("t2_client%d", i))
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, fmt.Sprintf("color-%d", i), profile.FavoriteColor)
		}
	})
}
