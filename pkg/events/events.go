package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Kind names a bridge message type, e.g. "fetchUserData".
type Kind string

// Message is the envelope exchanged with the host.
type Message struct {
	Type Kind            `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewMessage marshals payload into a message of the given kind.
func NewMessage(kind Kind, payload interface{}) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}
	return Message{Type: kind, Data: data}, nil
}

// Decode unmarshals the message data into v. An empty payload decodes as {}.
func (m Message) Decode(v interface{}) error {
	data := m.Data
	if len(data) == 0 {
		data = []byte("{}")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", m.Type, err)
	}
	return nil
}

type Handler func(msg Message)

// Bus keeps at most one handler per kind and delivers messages to it one at a
// time. Registering a kind again replaces the previous handler.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Kind]Handler

	// dispatchMu serializes handler invocations across kinds
	dispatchMu sync.Mutex

	logger *slog.Logger
}

func NewBus() *Bus {
	return NewBusWithLogger(nil)
}

func NewBusWithLogger(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Bus{
		handlers: make(map[Kind]Handler),
		logger:   logger,
	}
}

// On registers handler for kind.
func (b *Bus) On(kind Kind, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.handlers[kind]; exists {
		b.logger.Debug("replacing handler", "kind", kind)
	}
	b.handlers[kind] = handler
}

// Off removes the handler for kind. Removing an unknown kind is a no-op.
func (b *Bus) Off(kind Kind) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.handlers, kind)
}

// Has reports whether a handler is registered for kind.
func (b *Bus) Has(kind Kind) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, ok := b.handlers[kind]
	return ok
}

// Dispatch delivers msg to the handler registered for its kind and reports
// whether one was found. Handler panics are recovered and logged.
func (b *Bus) Dispatch(msg Message) bool {
	b.dispatchMu.Lock()
	defer b.dispatchMu.Unlock()

	// Look up under the dispatch lock so an Off that returned before this
	// point is always honoured.
	b.mu.RLock()
	handler, ok := b.handlers[msg.Type]
	b.mu.RUnlock()

	if !ok {
		b.logger.Debug("no handler for message", "kind", msg.Type)
		return false
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("bridge handler panic", "kind", msg.Type, "panic", fmt.Sprint(r))
			}
		}()
		handler(msg)
	}()

	return true
}
