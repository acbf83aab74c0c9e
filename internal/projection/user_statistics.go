package projection

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/arc-self/apps/outbox-processor/internal/envelope"
	"github.com/arc-self/apps/outbox-processor/internal/handler"
	"github.com/arc-self/apps/outbox-processor/internal/store"
)

const (
	statisticsCollection = "statistics"
	globalStatsID        = "global_stats"
)

// UserStatisticsHandler is a side-effect handler also subscribed to
// UserCreated; it increments the global user counter. Registered
// independently of UserCreatedHandler, the two must not assume any
// ordering relative to each other.
type UserStatisticsHandler struct {
	handler.Base
	Stats store.Collection
}

func NewUserStatisticsHandler(gw *store.Gateway, logger *zap.Logger) *UserStatisticsHandler {
	return &UserStatisticsHandler{
		Base:  handler.Base{Logger: logger},
		Stats: gw.Collection(statisticsCollection),
	}
}

func (h *UserStatisticsHandler) EventType() string   { return "UserCreated" }
func (h *UserStatisticsHandler) HandlerName() string { return "UserStatisticsHandler" }

// Handle atomically increments total_users on the global statistics
// document, upserting it if absent.
func (h *UserStatisticsHandler) Handle(ctx context.Context, event *envelope.OutboxEvent) error {
	h.LogEvent("updating_user_statistics", h.HandlerName(), event)

	_, err := h.Stats.UpdateOne(ctx,
		bson.M{"_id": globalStatsID},
		bson.M{
			"$inc": bson.M{"total_users": 1},
			"$set": bson.M{"last_updated": time.Now().UTC()},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		h.LogError(h.HandlerName(), event, err)
		return err
	}

	h.LogEvent("user_statistics_updated", h.HandlerName(), event)
	return nil
}
