package projection

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/arc-self/apps/outbox-processor/internal/envelope"
	"github.com/arc-self/apps/outbox-processor/internal/handler"
	"github.com/arc-self/apps/outbox-processor/internal/store"
)

// UserUpdatedHandler applies a partial update to an existing User
// document.
type UserUpdatedHandler struct {
	handler.Base
	Users store.Collection
}

func NewUserUpdatedHandler(gw *store.Gateway, logger *zap.Logger) *UserUpdatedHandler {
	return &UserUpdatedHandler{
		Base:  handler.Base{Logger: logger},
		Users: gw.Collection(usersCollection),
	}
}

func (h *UserUpdatedHandler) EventType() string   { return "UserUpdated" }
func (h *UserUpdatedHandler) HandlerName() string { return "UserUpdatedHandler" }

// Handle computes an update-set from the subset of payload keys present.
// If the target document does not exist it raises NotFoundError, which
// the dispatcher surfaces without retrying the message.
func (h *UserUpdatedHandler) Handle(ctx context.Context, event *envelope.OutboxEvent) error {
	h.LogEvent("processing_user_updated", h.HandlerName(), event)

	payload := event.Payload
	userID := event.AggregateID.String()

	set := bson.M{}
	if v, ok := payload["email"]; ok {
		set["email"] = v
	}
	if v, ok := payload["username"]; ok {
		set["username"] = v
	}

	_, hasFirst := payload["first_name"]
	_, hasLast := payload["last_name"]
	if hasFirst || hasLast {
		firstName, _ := payload["first_name"].(string)
		lastName, _ := payload["last_name"].(string)
		set["name"] = strings.TrimSpace(firstName + " " + lastName)
		if hasFirst {
			set["first_name"] = firstName
		}
		if hasLast {
			set["last_name"] = lastName
		}
	}

	if v, ok := payload["bio"]; ok {
		set["profile.bio"] = v
	}
	if v, ok := payload["avatar_url"]; ok {
		set["profile.avatar_url"] = v
	}

	set["metadata.updated_at"] = time.Now().UTC()
	set["metadata.last_event_id"] = event.EventID.String()

	result, err := h.Users.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": set})
	if err != nil {
		h.LogError(h.HandlerName(), event, err)
		return err
	}

	if result.MatchedCount == 0 {
		err := &NotFoundError{Collection: usersCollection, ID: userID}
		h.LogError(h.HandlerName(), event, err)
		return err
	}

	h.LogEvent("user_updated_success", h.HandlerName(), event, zap.String("user_id", userID))
	return nil
}
