package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"github.com/arc-self/apps/outbox-processor/internal/envelope"
)

type stubHandler struct {
	eventType string
	name      string
}

func (s *stubHandler) EventType() string   { return s.eventType }
func (s *stubHandler) HandlerName() string { return s.name }
func (s *stubHandler) Validate(context.Context, *envelope.OutboxEvent) bool {
	return true
}
func (s *stubHandler) Handle(context.Context, *envelope.OutboxEvent) error {
	return nil
}

func TestRegistry_FanOutToMultipleHandlers(t *testing.T) {
	r := New(zaptest.NewLogger(t))
	r.Register(&stubHandler{eventType: "UserCreated", name: "UserCreatedHandler"})
	r.Register(&stubHandler{eventType: "UserCreated", name: "UserStatisticsHandler"})
	r.Register(&stubHandler{eventType: "UserUpdated", name: "UserUpdatedHandler"})

	handlers := r.GetHandlers("UserCreated")
	assert.Len(t, handlers, 2)
	assert.True(t, r.HasHandlers("UserCreated"))
	assert.ElementsMatch(t, []string{"UserCreated", "UserUpdated"}, r.RegisteredEventTypes())
}

func TestRegistry_UnknownEventTypeHasNoHandlers(t *testing.T) {
	r := New(zaptest.NewLogger(t))
	assert.False(t, r.HasHandlers("ActivityDeleted"))
	assert.Nil(t, r.GetHandlers("ActivityDeleted"))
}
