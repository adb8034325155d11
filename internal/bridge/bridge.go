// Package bridge connects a screen to the host runtime that owns data access.
// All traffic is asynchronous: PostMessage returns once the message is handed
// to the transport and replies arrive through handlers registered with On.
package bridge

import (
	"context"
	"errors"

	"github.com/standardbeagle/webview/pkg/events"
)

var (
	// ErrClosed is returned when posting on a client that has been closed.
	ErrClosed = errors.New("bridge closed")
	// ErrNotConnected is returned when the transport has no live connection.
	ErrNotConnected = errors.New("bridge not connected")
)

// Session identifies the user the bridge acts for.
type Session struct {
	UserID   string
	Username string
}

// Client is the host bridge as seen by a screen.
type Client interface {
	On(kind events.Kind, handler events.Handler)
	Off(kind events.Kind)
	PostMessage(ctx context.Context, msg events.Message) error
	Session() Session
}

// Responder answers a request message with zero or more reply messages.
type Responder interface {
	Respond(ctx context.Context, msg events.Message) []events.Message
}

// ResponderFunc adapts a function to the Responder interface.
type ResponderFunc func(ctx context.Context, msg events.Message) []events.Message

func (f ResponderFunc) Respond(ctx context.Context, msg events.Message) []events.Message {
	return f(ctx, msg)
}
