package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/standardbeagle/webview/pkg/events"
)

const (
	// UserHeader carries the session user id on the websocket handshake.
	UserHeader = "X-Webview-User"
	// UsernameHeader carries the session username on the websocket handshake.
	UsernameHeader = "X-Webview-Username"

	writeWait = 10 * time.Second
)

// WSClient is a bridge to a host reachable over a websocket.
type WSClient struct {
	conn    *websocket.Conn
	bus     *events.Bus
	session Session
	logger  *slog.Logger

	writeMu sync.Mutex
	closed  atomic.Bool
	done    chan struct{}

	errMu   sync.Mutex
	readErr error
}

type WSOption func(*wsOptions)

type wsOptions struct {
	dialer *websocket.Dialer
	logger *slog.Logger
}

func WithDialer(d *websocket.Dialer) WSOption {
	return func(o *wsOptions) { o.dialer = d }
}

func WithWSLogger(logger *slog.Logger) WSOption {
	return func(o *wsOptions) { o.logger = logger }
}

// Dial connects to the host bridge endpoint at rawURL (ws:// or wss://).
func Dial(ctx context.Context, rawURL string, session Session, opts ...WSOption) (*WSClient, error) {
	o := wsOptions{
		dialer: websocket.DefaultDialer,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&o)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid host url %q: %w", rawURL, err)
	}
	q := u.Query()
	q.Set("user", session.UserID)
	u.RawQuery = q.Encode()

	header := http.Header{}
	header.Set(UserHeader, session.UserID)
	if session.Username != "" {
		header.Set(UsernameHeader, session.Username)
	}

	conn, _, err := o.dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to host %s: %w", u.Host, err)
	}

	c := &WSClient{
		conn:    conn,
		bus:     events.NewBusWithLogger(o.logger),
		session: session,
		logger:  o.logger,
		done:    make(chan struct{}),
	}
	go c.readLoop()

	o.logger.Info("bridge connected", "host", u.Host, "user", session.UserID)
	return c, nil
}

func (c *WSClient) On(kind events.Kind, handler events.Handler) { c.bus.On(kind, handler) }

func (c *WSClient) Off(kind events.Kind) { c.bus.Off(kind) }

func (c *WSClient) Session() Session { return c.session }

// PostMessage writes msg to the host. It does not wait for a reply.
func (c *WSClient) PostMessage(ctx context.Context, msg events.Message) error {
	if c.closed.Load() {
		return ErrClosed
	}
	select {
	case <-c.done:
		return ErrNotConnected
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(writeWait)
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to send %s: %w", msg.Type, err)
	}

	c.logger.Debug("bridge post", "kind", msg.Type)
	return nil
}

// Done is closed when the read loop stops.
func (c *WSClient) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that stopped the read loop, if any.
func (c *WSClient) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.readErr
}

// Close sends a close frame and tears down the connection.
func (c *WSClient) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()

	err := c.conn.Close()
	<-c.done
	return err
}

func (c *WSClient) readLoop() {
	defer close(c.done)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !c.closed.Load() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn("bridge read failed", "error", err)
				c.errMu.Lock()
				c.readErr = err
				c.errMu.Unlock()
			}
			return
		}

		var msg events.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("dropping malformed bridge message", "error", err)
			continue
		}
		c.bus.Dispatch(msg)
	}
}
