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

// ParticipantJoinedHandler adds a participant to an Activity document
// under set semantics.
type ParticipantJoinedHandler struct {
	handler.Base
	Activities store.Collection
}

func NewParticipantJoinedHandler(gw *store.Gateway, logger *zap.Logger) *ParticipantJoinedHandler {
	return &ParticipantJoinedHandler{
		Base:       handler.Base{Logger: logger},
		Activities: gw.Collection(activitiesCollection),
	}
}

func (h *ParticipantJoinedHandler) EventType() string   { return "ParticipantJoined" }
func (h *ParticipantJoinedHandler) HandlerName() string { return "ParticipantJoinedHandler" }

// Handle adds the joining user to participants.list and allowed_users
// under set semantics and increments participants.current_count.
//
// This is a guarded two-step update, not a single $addToSet+$inc command:
// a bare $addToSet+$inc in one update would still increment
// current_count on replay even when the participant is already present
// (the join is a no-op, the counter is not). The first update's filter
// carries `participants.list.user_id: {$ne: user_id}` so the entire
// command, increment included, is a no-op once the participant has
// already joined. If it doesn't match, a second, unguarded update
// distinguishes "activity missing" (raise NotFoundError) from
// "participant already joined" (already-applied, return success).
func (h *ParticipantJoinedHandler) Handle(ctx context.Context, event *envelope.OutboxEvent) error {
	h.LogEvent("processing_participant_joined", h.HandlerName(), event)

	payload := event.Payload
	activityID := event.AggregateID.String()
	userID, _ := payload["user_id"].(string)

	now := time.Now().UTC()

	joinFilter := bson.M{
		"_id":                           activityID,
		"participants.list.user_id":     bson.M{"$ne": userID},
	}
	joinUpdate := bson.M{
		"$addToSet": bson.M{
			"participants.list": bson.M{
				"user_id":   userID,
				"joined_at": event.CreatedAt,
				"status":    "confirmed",
			},
			"allowed_users": userID,
		},
		"$inc": bson.M{"participants.current_count": 1},
		"$set": bson.M{
			"metadata.updated_at":    now,
			"metadata.last_event_id": event.EventID.String(),
		},
	}

	result, err := h.Activities.UpdateOne(ctx, joinFilter, joinUpdate)
	if err != nil {
		h.LogError(h.HandlerName(), event, err)
		return err
	}

	if result.MatchedCount > 0 {
		h.LogEvent("participant_joined_success", h.HandlerName(), event,
			zap.String("activity_id", activityID), zap.String("user_id", userID))
		return nil
	}

	// The guarded filter did not match: either the activity does not
	// exist, or this user already joined. Disambiguate with an unguarded
	// touch update.
	existsFilter := bson.M{"_id": activityID}
	existsUpdate := bson.M{"$set": bson.M{
		"metadata.updated_at":    now,
		"metadata.last_event_id": event.EventID.String(),
	}}

	existsResult, err := h.Activities.UpdateOne(ctx, existsFilter, existsUpdate)
	if err != nil {
		h.LogError(h.HandlerName(), event, err)
		return err
	}

	if existsResult.MatchedCount == 0 {
		notFound := &NotFoundError{Collection: activitiesCollection, ID: activityID}
		h.LogError(h.HandlerName(), event, notFound)
		return notFound
	}

	h.LogEvent("participant_joined_duplicate_ignored", h.HandlerName(), event,
		zap.String("activity_id", activityID), zap.String("user_id", userID))
	return nil
}
