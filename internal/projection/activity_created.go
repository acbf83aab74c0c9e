package projection

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/arc-self/apps/outbox-processor/internal/envelope"
	"github.com/arc-self/apps/outbox-processor/internal/handler"
	"github.com/arc-self/apps/outbox-processor/internal/store"
)

const activitiesCollection = "activities"

// ActivityCreatedHandler inserts the primary Activity projection document.
type ActivityCreatedHandler struct {
	handler.Base
	Activities store.Collection
}

func NewActivityCreatedHandler(gw *store.Gateway, logger *zap.Logger) *ActivityCreatedHandler {
	return &ActivityCreatedHandler{
		Base:       handler.Base{Logger: logger},
		Activities: gw.Collection(activitiesCollection),
	}
}

func (h *ActivityCreatedHandler) EventType() string   { return "ActivityCreated" }
func (h *ActivityCreatedHandler) HandlerName() string { return "ActivityCreatedHandler" }

// Handle inserts an Activity document keyed by aggregate_id, initializing
// participants and allowed_users. An insert conflict is treated as
// success, idempotent-on-replay.
func (h *ActivityCreatedHandler) Handle(ctx context.Context, event *envelope.OutboxEvent) error {
	h.LogEvent("processing_activity_created", h.HandlerName(), event)

	payload := event.Payload
	activityID := event.AggregateID.String()
	creatorID, _ := payload["creator_user_id"].(string)

	doc := bson.M{
		"_id":         activityID,
		"title":       payload["title"],
		"description": payload["description"],
		"creator_id":  creatorID,
		"type":        payload["activity_type"],
		"location": bson.M{
			"name":        payload["location_name"],
			"address":     payload["location_address"],
			"coordinates": payload["coordinates"],
		},
		"schedule": bson.M{
			"start_date": payload["start_date"],
			"end_date":   payload["end_date"],
			"timezone":   payload["timezone"],
		},
		"participants": bson.M{
			"current_count": 0,
			"max_count":     payload["max_participants"],
			"list":          bson.A{},
		},
		"status": "active",
		"metadata": bson.M{
			"created_at":      event.CreatedAt,
			"updated_at":      time.Now().UTC(),
			"source_event_id": event.EventID.String(),
		},
		"allowed_users": []string{creatorID},
	}

	_, err := h.Activities.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		h.LogEvent("activity_created_duplicate_ignored", h.HandlerName(), event, zap.String("activity_id", activityID))
		return nil
	}
	if err != nil {
		h.LogError(h.HandlerName(), event, err)
		return err
	}

	h.LogEvent("activity_created_success", h.HandlerName(), event, zap.String("activity_id", activityID))
	return nil
}
