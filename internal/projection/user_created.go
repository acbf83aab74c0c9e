package projection

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/arc-self/apps/outbox-processor/internal/envelope"
	"github.com/arc-self/apps/outbox-processor/internal/handler"
	"github.com/arc-self/apps/outbox-processor/internal/store"
)

const usersCollection = "users"

// UserCreatedHandler inserts the primary User projection document.
type UserCreatedHandler struct {
	handler.Base
	Users store.Collection
}

func NewUserCreatedHandler(gw *store.Gateway, logger *zap.Logger) *UserCreatedHandler {
	return &UserCreatedHandler{
		Base:  handler.Base{Logger: logger},
		Users: gw.Collection(usersCollection),
	}
}

func (h *UserCreatedHandler) EventType() string   { return "UserCreated" }
func (h *UserCreatedHandler) HandlerName() string { return "UserCreatedHandler" }

// Handle inserts a User document keyed by aggregate_id. An insert
// conflict (key already exists) indicates duplicate delivery of the same
// event_id and is treated as success, idempotent-on-replay.
func (h *UserCreatedHandler) Handle(ctx context.Context, event *envelope.OutboxEvent) error {
	h.LogEvent("processing_user_created", h.HandlerName(), event)

	payload := event.Payload
	firstName, _ := payload["first_name"].(string)
	lastName, _ := payload["last_name"].(string)
	name := strings.TrimSpace(firstName + " " + lastName)

	userID := event.AggregateID.String()

	doc := bson.M{
		"_id":        userID,
		"email":      payload["email"],
		"username":   payload["username"],
		"name":       name,
		"first_name": firstName,
		"last_name":  lastName,
		"profile": bson.M{
			"bio":        payload["bio"],
			"avatar_url": payload["avatar_url"],
		},
		"metadata": bson.M{
			"created_at":      event.CreatedAt,
			"updated_at":      time.Now().UTC(),
			"source_event_id": event.EventID.String(),
		},
		"allowed_users": []string{userID},
	}

	_, err := h.Users.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		h.LogEvent("user_created_duplicate_ignored", h.HandlerName(), event, zap.String("user_id", userID))
		return nil
	}
	if err != nil {
		h.LogError(h.HandlerName(), event, err)
		return err
	}

	h.LogEvent("user_created_success", h.HandlerName(), event, zap.String("user_id", userID))
	return nil
}
