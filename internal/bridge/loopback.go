package bridge

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/standardbeagle/webview/pkg/events"
)

// Loopback is an in-process bridge that hands every posted message to a
// Responder and delivers its replies through the bus.
type Loopback struct {
	bus       *events.Bus
	responder Responder
	session   Session
	logger    *slog.Logger

	async  bool
	wg     sync.WaitGroup
	closed atomic.Bool
	posted atomic.Int64
}

type LoopbackOption func(*Loopback)

// WithAsyncDelivery delivers replies on a separate goroutine instead of
// before PostMessage returns.
func WithAsyncDelivery() LoopbackOption {
	return func(l *Loopback) { l.async = true }
}

func WithLoopbackLogger(logger *slog.Logger) LoopbackOption {
	return func(l *Loopback) { l.logger = logger }
}

func NewLoopback(session Session, responder Responder, opts ...LoopbackOption) *Loopback {
	l := &Loopback{
		responder: responder,
		session:   session,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.bus = events.NewBusWithLogger(l.logger)
	return l
}

func (l *Loopback) On(kind events.Kind, handler events.Handler) { l.bus.On(kind, handler) }

func (l *Loopback) Off(kind events.Kind) { l.bus.Off(kind) }

func (l *Loopback) Session() Session { return l.session }

// PostMessage forwards msg to the responder.
func (l *Loopback) PostMessage(ctx context.Context, msg events.Message) error {
	if l.closed.Load() {
		return ErrClosed
	}
	l.posted.Add(1)
	l.logger.Debug("loopback post", "kind", msg.Type)

	if !l.async {
		l.deliver(ctx, msg)
		return nil
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		// Replies outlive the caller's context, like a real host would.
		l.deliver(context.WithoutCancel(ctx), msg)
	}()
	return nil
}

// Deliver injects an inbound message as if the host had sent it.
func (l *Loopback) Deliver(msg events.Message) bool {
	return l.bus.Dispatch(msg)
}

// Posted returns the number of messages accepted by PostMessage.
func (l *Loopback) Posted() int64 {
	return l.posted.Load()
}

// Wait blocks until all asynchronous deliveries have finished.
func (l *Loopback) Wait() {
	l.wg.Wait()
}

// Close rejects further posts and waits for pending deliveries.
func (l *Loopback) Close() error {
	l.closed.Store(true)
	l.wg.Wait()
	return nil
}

func (l *Loopback) deliver(ctx context.Context, msg events.Message) {
	for _, reply := range l.responder.Respond(ctx, msg) {
		if !l.bus.Dispatch(reply) {
			l.logger.Debug("loopback reply dropped", "kind", reply.Type)
		}
	}
}
