// Package natsconn wraps the single NATS JetStream connection the
// consumer pulls from. Adapted from the shared go-core NATS client
// wrapper: one pooled connection, drain-based close.
package natsconn

import (
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Client wraps a NATS connection and its JetStream context.
type Client struct {
	Conn *nats.Conn
	JS   nats.JetStreamContext
	log  *zap.Logger
}

// Connect dials NATS and initializes a JetStream context. Retries the
// initial TCP connect indefinitely with unbounded reconnects; the log
// broker's reachability is as load-bearing as the projection store's.
func Connect(url string, logger *zap.Logger) (*Client, error) {
	conn, err := nats.Connect(url, nats.RetryOnFailedConnect(true), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("nats jetstream: %w", err)
	}

	logger.Info("nats_connected", zap.String("url", url))
	return &Client{Conn: conn, JS: js, log: logger}, nil
}

// Close drains outstanding subscription deliveries and acks before
// closing the connection, unlike Conn.Close() alone, which would drop
// in-flight work immediately.
func (c *Client) Close() {
	if c == nil || c.Conn == nil {
		return
	}
	if err := c.Conn.Drain(); err != nil {
		c.log.Warn("nats_drain_error", zap.Error(err))
		c.Conn.Close()
		return
	}
	c.log.Info("nats_disconnected")
}
