package envelope

import (
	"time"

	"github.com/google/uuid"
)

// Status mirrors the source outbox row's processing status. The core
// carries it through unchanged; it never mutates status.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusProcessed  Status = "processed"
	StatusFailed     Status = "failed"
)

// OutboxEvent is the decoded domain event derived from an envelope's after
// image.
type OutboxEvent struct {
	EventID       uuid.UUID
	SequenceID    int64
	AggregateID   uuid.UUID
	AggregateType string
	EventType     string
	Payload       map[string]interface{}
	Status        Status
	RetryCount    int
	LastError     string
	CreatedAt     time.Time
}

// ToEvent lifts an envelope's after image into an OutboxEvent. It fails
// with a ValidationError when a required field is absent or an
// UUID-typed field cannot be parsed. Only op=c and op=u envelopes may be
// converted; callers must check ShouldSkip first.
func (e *Envelope) ToEvent() (*OutboxEvent, error) {
	if e.Op != OpCreate && e.Op != OpUpdate {
		return nil, &ValidationError{Field: "op", Reason: "only create/update envelopes decode to events"}
	}

	after := e.After

	eventIDStr, err := requireString(after, "event_id")
	if err != nil {
		return nil, err
	}
	eventID, err := uuid.Parse(eventIDStr)
	if err != nil {
		return nil, &ValidationError{Field: "event_id", Reason: err.Error()}
	}

	aggregateIDStr, err := requireString(after, "aggregate_id")
	if err != nil {
		return nil, err
	}
	aggregateID, err := uuid.Parse(aggregateIDStr)
	if err != nil {
		return nil, &ValidationError{Field: "aggregate_id", Reason: err.Error()}
	}

	aggregateType, err := requireString(after, "aggregate_type")
	if err != nil {
		return nil, err
	}

	eventType, err := requireString(after, "event_type")
	if err != nil {
		return nil, err
	}

	payload, _ := after["payload"].(map[string]interface{})
	if payload == nil {
		payload = map[string]interface{}{}
	}

	status := Status(stringOrDefault(after, "status", string(StatusPending)))

	var sequenceID int64
	if v, ok := after["sequence_id"]; ok {
		sequenceID = toInt64(v)
	}

	var retryCount int
	if v, ok := after["retry_count"]; ok {
		retryCount = int(toInt64(v))
	}

	lastError, _ := after["last_error"].(string)

	createdAt := time.Now().UTC()
	if v, ok := after["created_at"].(string); ok && v != "" {
		if parsed, err := time.Parse(time.RFC3339, v); err == nil {
			createdAt = parsed
		}
	}

	return &OutboxEvent{
		EventID:       eventID,
		SequenceID:    sequenceID,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Payload:       payload,
		Status:        status,
		RetryCount:    retryCount,
		LastError:     lastError,
		CreatedAt:     createdAt,
	}, nil
}

func requireString(m map[string]interface{}, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", &ValidationError{Field: key, Reason: "required field missing from after"}
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", &ValidationError{Field: key, Reason: "expected non-empty string"}
	}
	return s, nil
}

func stringOrDefault(m map[string]interface{}, key, def string) string {
	if v, ok := m[key].(string); ok && v != "" {
		return v
	}
	return def
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}
