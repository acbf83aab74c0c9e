package projection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/arc-self/apps/outbox-processor/internal/handler"
)

func TestParticipantJoinedHandler_FirstJoinIncrementsCount(t *testing.T) {
	activities := newFakeCollection()
	created := &ActivityCreatedHandler{Base: handler.Base{Logger: zaptest.NewLogger(t)}, Activities: activities}

	createEvent := newTestEvent("ActivityCreated", map[string]interface{}{"creator_user_id": "u-1"})
	require.NoError(t, created.Handle(context.Background(), createEvent))

	joined := &ParticipantJoinedHandler{Base: handler.Base{Logger: zaptest.NewLogger(t)}, Activities: activities}
	joinEvent := newTestEvent("ParticipantJoined", map[string]interface{}{"user_id": "u-2"})
	joinEvent.AggregateID = createEvent.AggregateID

	require.NoError(t, joined.Handle(context.Background(), joinEvent))

	doc := activities.docs[createEvent.AggregateID.String()]
	participants := toMap(doc["participants"])
	assert.Equal(t, 1, participants["current_count"])
	assert.Contains(t, doc["allowed_users"], "u-2")
}

// Replaying the same join event must not increment current_count a second
// time: the guarded filter makes the whole update a no-op once the
// participant is already present.
func TestParticipantJoinedHandler_ReplayDoesNotDoubleCount(t *testing.T) {
	activities := newFakeCollection()
	created := &ActivityCreatedHandler{Base: handler.Base{Logger: zaptest.NewLogger(t)}, Activities: activities}

	createEvent := newTestEvent("ActivityCreated", map[string]interface{}{"creator_user_id": "u-1"})
	require.NoError(t, created.Handle(context.Background(), createEvent))

	joined := &ParticipantJoinedHandler{Base: handler.Base{Logger: zaptest.NewLogger(t)}, Activities: activities}
	joinEvent := newTestEvent("ParticipantJoined", map[string]interface{}{"user_id": "u-2"})
	joinEvent.AggregateID = createEvent.AggregateID

	require.NoError(t, joined.Handle(context.Background(), joinEvent))
	require.NoError(t, joined.Handle(context.Background(), joinEvent))

	doc := activities.docs[createEvent.AggregateID.String()]
	participants := toMap(doc["participants"])
	assert.Equal(t, 1, participants["current_count"])
}

func TestParticipantJoinedHandler_MissingActivityIsNotFound(t *testing.T) {
	activities := newFakeCollection()
	h := &ParticipantJoinedHandler{Base: handler.Base{Logger: zaptest.NewLogger(t)}, Activities: activities}

	event := newTestEvent("ParticipantJoined", map[string]interface{}{"user_id": "u-2"})
	err := h.Handle(context.Background(), event)

	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)
}
