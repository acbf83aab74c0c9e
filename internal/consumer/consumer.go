// Package consumer implements the main processing loop: pull records
// from the durable log, decode them, dispatch to the handler registry,
// and commit offsets explicitly after each record settles.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/arc-self/apps/outbox-processor/internal/envelope"
	"github.com/arc-self/apps/outbox-processor/internal/natsconn"
	"github.com/arc-self/apps/outbox-processor/internal/registry"
)

// State mirrors the consumer's lifecycle state machine.
type State string

const (
	StateNew      State = "new"
	StateReady    State = "ready"
	StateRunning  State = "running"
	StateDraining State = "draining"
	StateFailed   State = "failed"
	StateStopped  State = "stopped"
)

// fetchWait bounds a single Fetch call so the loop re-checks ctx.Done()
// between batches instead of blocking indefinitely.
const fetchWait = 2 * time.Second

// Consumer pulls records from one JetStream durable pull-consumer,
// decodes them, and dispatches to the registry. Constructed once in
// cmd/worker/main.go and passed by reference, never a package-level global.
type Consumer struct {
	nats     *natsconn.Client
	registry *registry.Registry
	logger   *zap.Logger

	streamName     string
	subject        string
	groupID        string
	maxPollRecords int

	sub *nats.Subscription

	mu             sync.Mutex
	state          State
	processedCount int64
	errorCount     int64
	startedAt      time.Time
}

// Config bundles the consumer's wiring knobs, pulled from internal/config.
type Config struct {
	StreamName     string
	Subject        string
	GroupID        string
	MaxPollRecords int
}

func New(nc *natsconn.Client, reg *registry.Registry, logger *zap.Logger, cfg Config) *Consumer {
	return &Consumer{
		nats:           nc,
		registry:       reg,
		logger:         logger,
		streamName:     cfg.StreamName,
		subject:        cfg.Subject,
		groupID:        cfg.GroupID,
		maxPollRecords: cfg.MaxPollRecords,
		state:          StateNew,
	}
}

// Initialize provisions the stream (if absent) and opens a durable pull
// subscription with explicit, manual acknowledgment, the JetStream
// equivalent of enable.auto.commit=false.
func (c *Consumer) Initialize(ctx context.Context) error {
	if err := c.nats.EnsureStream(c.streamName, c.subject); err != nil {
		return fmt.Errorf("ensure stream: %w", err)
	}

	sub, err := c.nats.JS.PullSubscribe(
		c.subject,
		c.groupID,
		nats.BindStream(c.streamName),
		nats.ManualAck(),
		nats.AckExplicit(),
	)
	if err != nil {
		return fmt.Errorf("pull subscribe: %w", err)
	}
	c.sub = sub

	c.setState(StateReady)
	c.logger.Info("consumer_initialized",
		zap.String("stream", c.streamName),
		zap.String("subject", c.subject),
		zap.String("durable", c.groupID))
	return nil
}

// Start runs the pull-fetch-dispatch loop until ctx is cancelled. It
// always finishes the record currently being dispatched, commits its
// offset, and only then observes cancellation; it never abandons a
// record mid-dispatch.
func (c *Consumer) Start(ctx context.Context) error {
	c.setState(StateRunning)
	c.mu.Lock()
	c.startedAt = time.Now()
	c.mu.Unlock()

	for {
		if ctx.Err() != nil {
			c.drainAndStop()
			return nil
		}

		msgs, err := c.sub.Fetch(c.maxPollRecords, nats.MaxWait(fetchWait))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			if errors.Is(err, nats.ErrConnectionClosed) || c.nats.Conn.IsClosed() {
				c.setState(StateFailed)
				c.logger.Error("fetch_fatal", zap.Error(err))
				return fmt.Errorf("fetch from stream %s: %w", c.streamName, err)
			}
			c.logger.Error("fetch_error", zap.Error(err))
			continue
		}

		for _, msg := range msgs {
			c.processMessage(context.WithoutCancel(ctx), msg)
			if ctx.Err() != nil {
				c.drainAndStop()
				return nil
			}
		}
	}
}

// metadataFields extracts the JetStream stream/consumer sequence for a
// message, the partition+offset equivalent of a Kafka-style log. Absent
// on messages built without a live subscription (tests).
func metadataFields(msg *nats.Msg) []zap.Field {
	meta, err := msg.Metadata()
	if err != nil {
		return nil
	}
	return []zap.Field{
		zap.Uint64("stream_seq", meta.Sequence.Stream),
		zap.Uint64("consumer_seq", meta.Sequence.Consumer),
	}
}

func (c *Consumer) drainAndStop() {
	c.setState(StateDraining)
	c.setState(StateStopped)
	c.logSummary("consumer_stopped")
}

// processMessage decodes one record and handles acknowledgment based on
// the outcome: decode/validation failures terminate the message (a
// poison record is never redelivered). Everything else, including a
// handler failure, is acknowledged once every handler has been
// attempted (advancing the offset prevents one bad event from
// stalling the partition).
func (c *Consumer) processMessage(ctx context.Context, msg *nats.Msg) {
	env, err := envelope.Decode(msg.Data)
	if err != nil {
		c.incErrors()
		c.logger.Error("decode_failed", append(metadataFields(msg), zap.Error(err))...)
		_ = msg.Term()
		return
	}

	if envelope.ShouldSkip(env) {
		_ = msg.Ack()
		return
	}

	event, err := env.ToEvent()
	if err != nil {
		c.incErrors()
		fields := append(metadataFields(msg),
			zap.String("source_db", env.SourceDB()),
			zap.String("source_table", env.SourceTable()),
			zap.Error(err))
		c.logger.Error("validation_failed", fields...)
		_ = msg.Term()
		return
	}

	handlers := c.registry.GetHandlers(event.EventType)
	if len(handlers) == 0 {
		c.logger.Warn("no_handlers_found", zap.String("event_type", event.EventType))
		_ = msg.Ack()
		return
	}

	start := time.Now()
	for _, h := range handlers {
		if !h.Validate(ctx, event) {
			c.logger.Info("event_validation_failed",
				zap.String("handler", h.HandlerName()),
				zap.String("event_type", event.EventType),
				zap.String("event_id", event.EventID.String()))
			continue
		}
		if err := h.Handle(ctx, event); err != nil {
			c.incErrors()
			fields := append(metadataFields(msg),
				zap.String("handler", h.HandlerName()),
				zap.String("event_type", event.EventType),
				zap.String("event_id", event.EventID.String()),
				zap.String("source_table", env.SourceTable()),
				zap.Error(err))
			c.logger.Error("handler_failed", fields...)
			continue
		}
	}

	c.incProcessed()
	fields := append(metadataFields(msg),
		zap.String("event_type", event.EventType),
		zap.String("event_id", event.EventID.String()),
		zap.String("source_db", env.SourceDB()),
		zap.String("source_table", env.SourceTable()),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()))
	c.logger.Info("record_processed", fields...)

	_ = msg.Ack()
}

// Shutdown logs the final metrics summary. Called after Start returns.
func (c *Consumer) Shutdown() {
	c.logSummary("consumer_shutdown")
}

func (c *Consumer) logSummary(event string) {
	snap := c.Metrics()
	c.logger.Info(event,
		zap.Int64("processed_count", snap.ProcessedCount),
		zap.Int64("error_count", snap.ErrorCount),
		zap.Float64("uptime_seconds", snap.UptimeSeconds),
		zap.Bool("running", snap.Running))
}

// Metrics is a point-in-time snapshot of the in-memory counters.
type Metrics struct {
	ProcessedCount int64
	ErrorCount     int64
	UptimeSeconds  float64
	Running        bool
}

func (c *Consumer) Metrics() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	var uptime float64
	if !c.startedAt.IsZero() {
		uptime = time.Since(c.startedAt).Seconds()
	}
	return Metrics{
		ProcessedCount: c.processedCount,
		ErrorCount:     c.errorCount,
		UptimeSeconds:  uptime,
		Running:        c.state == StateRunning,
	}
}

func (c *Consumer) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Consumer) setState(s State) {
	c.mu.Lock()
	prev := c.state
	c.state = s
	c.mu.Unlock()
	if prev != s {
		c.logger.Debug("consumer_state_transition", zap.String("from", string(prev)), zap.String("to", string(s)))
	}
}

func (c *Consumer) incProcessed() {
	c.mu.Lock()
	c.processedCount++
	c.mu.Unlock()
}

func (c *Consumer) incErrors() {
	c.mu.Lock()
	c.errorCount++
	c.mu.Unlock()
}
