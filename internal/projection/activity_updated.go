package projection

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/arc-self/apps/outbox-processor/internal/envelope"
	"github.com/arc-self/apps/outbox-processor/internal/handler"
	"github.com/arc-self/apps/outbox-processor/internal/store"
)

// ActivityUpdatedHandler applies a partial update to an existing Activity
// document.
type ActivityUpdatedHandler struct {
	handler.Base
	Activities store.Collection
}

func NewActivityUpdatedHandler(gw *store.Gateway, logger *zap.Logger) *ActivityUpdatedHandler {
	return &ActivityUpdatedHandler{
		Base:       handler.Base{Logger: logger},
		Activities: gw.Collection(activitiesCollection),
	}
}

func (h *ActivityUpdatedHandler) EventType() string   { return "ActivityUpdated" }
func (h *ActivityUpdatedHandler) HandlerName() string { return "ActivityUpdatedHandler" }

// Handle updates simple and dotted-path fields, refreshing metadata. A
// missing target document raises NotFoundError.
func (h *ActivityUpdatedHandler) Handle(ctx context.Context, event *envelope.OutboxEvent) error {
	h.LogEvent("processing_activity_updated", h.HandlerName(), event)

	payload := event.Payload
	activityID := event.AggregateID.String()

	set := bson.M{}
	if v, ok := payload["title"]; ok {
		set["title"] = v
	}
	if v, ok := payload["description"]; ok {
		set["description"] = v
	}
	if v, ok := payload["status"]; ok {
		set["status"] = v
	}
	if v, ok := payload["location_name"]; ok {
		set["location.name"] = v
	}
	if v, ok := payload["location_address"]; ok {
		set["location.address"] = v
	}

	set["metadata.updated_at"] = time.Now().UTC()
	set["metadata.last_event_id"] = event.EventID.String()

	result, err := h.Activities.UpdateOne(ctx, bson.M{"_id": activityID}, bson.M{"$set": set})
	if err != nil {
		h.LogError(h.HandlerName(), event, err)
		return err
	}

	if result.MatchedCount == 0 {
		err := &NotFoundError{Collection: activitiesCollection, ID: activityID}
		h.LogError(h.HandlerName(), event, err)
		return err
	}

	h.LogEvent("activity_updated_success", h.HandlerName(), event, zap.String("activity_id", activityID))
	return nil
}
