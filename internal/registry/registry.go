// Package registry maps event types to the set of projection handlers
// that process them. Multiple handlers may listen to the same event
// type: UserCreated fans out to both UserCreatedHandler and
// UserStatisticsHandler.
package registry

import (
	"sync"

	"go.uber.org/zap"

	"github.com/arc-self/apps/outbox-processor/internal/handler"
)

// Registry is built once in cmd/worker/main.go during startup and
// handed to the consumer by reference; it is never a package-level
// global.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string][]handler.Handler
	logger   *zap.Logger
}

func New(logger *zap.Logger) *Registry {
	return &Registry{
		handlers: map[string][]handler.Handler{},
		logger:   logger,
	}
}

// Register adds a handler under its EventType. Call only during
// startup, before the consumer begins dispatching.
func (r *Registry) Register(h handler.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	eventType := h.EventType()
	r.handlers[eventType] = append(r.handlers[eventType], h)

	r.logger.Debug("handler_registered",
		zap.String("event_type", eventType),
		zap.String("handler", h.HandlerName()))
}

// GetHandlers returns the handlers registered for event_type, or nil if
// none. The returned slice is shared; callers must not mutate it.
func (r *Registry) GetHandlers(eventType string) []handler.Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handlers[eventType]
}

func (r *Registry) HasHandlers(eventType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers[eventType]) > 0
}

// RegisteredEventTypes returns the set of event types with at least one
// handler, for startup logging.
func (r *Registry) RegisteredEventTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.handlers))
	for eventType := range r.handlers {
		types = append(types, eventType)
	}
	return types
}

// LogRegistered emits one handlers_registered record per event type,
// mirroring the startup summary the original registration step logged.
func (r *Registry) LogRegistered() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for eventType, handlers := range r.handlers {
		names := make([]string, len(handlers))
		for i, h := range handlers {
			names[i] = h.HandlerName()
		}
		r.logger.Info("handlers_registered",
			zap.String("event_type", eventType),
			zap.Strings("handlers", names),
			zap.Int("count", len(handlers)))
	}
}
