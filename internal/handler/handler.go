// Package handler defines the polymorphic contract every projection
// handler satisfies, plus shared structured-logging helpers.
package handler

import (
	"context"

	"go.uber.org/zap"

	"github.com/arc-self/apps/outbox-processor/internal/envelope"
)

// Handler is the capability set every projection handler implements. A
// handler is stateless; all state lives in the projection store.
type Handler interface {
	// EventType is the dispatch key this handler listens to.
	EventType() string
	// HandlerName is a stable identifier for logs and metrics.
	HandlerName() string
	// Validate is an optional pre-check. Returning false causes the
	// dispatcher to skip this handler, not an error.
	Validate(ctx context.Context, event *envelope.OutboxEvent) bool
	// Handle performs the projection write. It must be safe to
	// re-invoke (idempotent under duplicate delivery of the same
	// event_id).
	Handle(ctx context.Context, event *envelope.OutboxEvent) error
}

// Base provides the structured-logging helpers every concrete handler
// embeds, plus a default Validate that always accepts.
type Base struct {
	Logger *zap.Logger
}

// Validate is the default pre-check: always true. Concrete handlers that
// need a real check override it.
func (b *Base) Validate(context.Context, *envelope.OutboxEvent) bool {
	return true
}

// LogEvent logs a structured informational record for a handler acting on
// an event.
func (b *Base) LogEvent(name string, handlerName string, event *envelope.OutboxEvent, fields ...zap.Field) {
	base := []zap.Field{
		zap.String("handler", handlerName),
		zap.String("event_type", event.EventType),
		zap.String("event_id", event.EventID.String()),
		zap.String("aggregate_id", event.AggregateID.String()),
	}
	b.Logger.Info(name, append(base, fields...)...)
}

// LogError logs a structured error record for a handler failure.
func (b *Base) LogError(handlerName string, event *envelope.OutboxEvent, err error, fields ...zap.Field) {
	base := []zap.Field{
		zap.String("handler", handlerName),
		zap.String("event_type", event.EventType),
		zap.String("event_id", event.EventID.String()),
		zap.Error(err),
	}
	b.Logger.Error("handler_error", append(base, fields...)...)
}
