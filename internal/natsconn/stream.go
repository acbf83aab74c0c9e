package natsconn

import (
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// EnsureStream idempotently provisions a file-backed, limits-retention
// JetStream stream over subject, creating it only if absent.
func (c *Client) EnsureStream(streamName, subject string) error {
	_, err := c.JS.StreamInfo(streamName)
	if err == nil {
		c.log.Info("nats_stream_exists", zap.String("stream", streamName))
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("stream info: %w", err)
	}

	_, err = c.JS.AddStream(&nats.StreamConfig{
		Name:      streamName,
		Subjects:  []string{subject},
		Storage:   nats.FileStorage,
		Retention: nats.LimitsPolicy,
	})
	if err != nil {
		return fmt.Errorf("create stream: %w", err)
	}

	c.log.Info("nats_stream_provisioned", zap.String("stream", streamName), zap.String("subject", subject))
	return nil
}
