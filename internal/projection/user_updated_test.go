package projection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/arc-self/apps/outbox-processor/internal/handler"
)

func TestUserUpdatedHandler_AppliesPartialUpdate(t *testing.T) {
	users := newFakeCollection()
	created := &UserCreatedHandler{Base: handler.Base{Logger: zaptest.NewLogger(t)}, Users: users}

	createEvent := newTestEvent("UserCreated", map[string]interface{}{
		"email":      "ana@example.com",
		"first_name": "Ana",
		"last_name":  "Lee",
	})
	require.NoError(t, created.Handle(context.Background(), createEvent))

	updated := &UserUpdatedHandler{Base: handler.Base{Logger: zaptest.NewLogger(t)}, Users: users}
	updateEvent := newTestEvent("UserUpdated", map[string]interface{}{"bio": "hiker"})
	updateEvent.AggregateID = createEvent.AggregateID

	require.NoError(t, updated.Handle(context.Background(), updateEvent))

	doc := users.docs[createEvent.AggregateID.String()]
	profile := toMap(doc["profile"])
	assert.Equal(t, "hiker", profile["bio"])
	assert.Equal(t, "ana@example.com", doc["email"])
}

func TestUserUpdatedHandler_MissingDocumentIsNotFound(t *testing.T) {
	users := newFakeCollection()
	h := &UserUpdatedHandler{Base: handler.Base{Logger: zaptest.NewLogger(t)}, Users: users}

	event := newTestEvent("UserUpdated", map[string]interface{}{"bio": "hiker"})
	err := h.Handle(context.Background(), event)

	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)
}
