package projection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/arc-self/apps/outbox-processor/internal/handler"
)

func TestActivityUpdatedHandler_AppliesDottedPathUpdate(t *testing.T) {
	activities := newFakeCollection()
	created := &ActivityCreatedHandler{Base: handler.Base{Logger: zaptest.NewLogger(t)}, Activities: activities}

	createEvent := newTestEvent("ActivityCreated", map[string]interface{}{"creator_user_id": "u-1"})
	require.NoError(t, created.Handle(context.Background(), createEvent))

	updated := &ActivityUpdatedHandler{Base: handler.Base{Logger: zaptest.NewLogger(t)}, Activities: activities}
	updateEvent := newTestEvent("ActivityUpdated", map[string]interface{}{"location_name": "Riverside Park"})
	updateEvent.AggregateID = createEvent.AggregateID

	require.NoError(t, updated.Handle(context.Background(), updateEvent))

	doc := activities.docs[createEvent.AggregateID.String()]
	location := toMap(doc["location"])
	assert.Equal(t, "Riverside Park", location["name"])
}

func TestActivityUpdatedHandler_MissingDocumentIsNotFound(t *testing.T) {
	activities := newFakeCollection()
	h := &ActivityUpdatedHandler{Base: handler.Base{Logger: zaptest.NewLogger(t)}, Activities: activities}

	event := newTestEvent("ActivityUpdated", map[string]interface{}{"title": "New title"})
	err := h.Handle(context.Background(), event)

	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)
}
