// Package hooks is the extension point of logtime: components announce what
// they did by executing named events, and any number of handlers (loggers,
// webhook and PostgreSQL exporters) observe them.
package hooks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/logtime/logtime/internal/logging"
)

// Event names executed by the core
const (
	IdleRun   = "inactivity.idle.run"
	BreakTime = "breaktime.time"

	// All subscribes a handler to every event
	All = "*"
)

// Event is a single hook execution.
type Event struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Payload interface{} `json:"payload"`
	At      time.Time   `json:"at"`
}

// Handler observes events. Returned errors are logged and never reach the
// component that executed the event.
type Handler func(ctx context.Context, ev Event) error

// Bus dispatches events to handlers in registration order.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]namedHandler
	log      *logging.Logger
	now      func() time.Time
}

type namedHandler struct {
	name string
	fn   Handler
}

// NewBus creates an empty bus.
func NewBus(log *logging.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]namedHandler),
		log:      log,
		now:      time.Now,
	}
}

// Add registers fn for the given event name, or for every event when name is
// All. label identifies the handler in diagnostics.
func (b *Bus) Add(name, label string, fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], namedHandler{name: label, fn: fn})
}

// Execute runs every handler registered for name (and for All) with payload
// and returns the event that was dispatched.
func (b *Bus) Execute(ctx context.Context, name string, payload interface{}) Event {
	ev := Event{
		ID:      uuid.NewString(),
		Name:    name,
		Payload: payload,
		At:      b.now(),
	}

	b.mu.RLock()
	handlers := make([]namedHandler, 0, len(b.handlers[name])+len(b.handlers[All]))
	handlers = append(handlers, b.handlers[name]...)
	handlers = append(handlers, b.handlers[All]...)
	b.mu.RUnlock()

	b.log.Debugf("hook %s (%s) payload=%v, %d handler(s)", ev.Name, ev.ID, ev.Payload, len(handlers))

	for _, h := range handlers {
		if err := h.fn(ctx, ev); err != nil {
			b.log.Warningf("hook handler %s failed for %s: %v", h.name, ev.Name, err)
		}
	}

	return ev
}
