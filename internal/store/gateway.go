// Package store owns the connection lifecycle to the projection document
// store and hands out per-collection handles.
package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Collection is the narrow slice of *mongo.Collection the projection
// handlers need. Handlers depend on this interface, not the concrete
// driver type, so they can be exercised against a fake in tests.
type Collection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

// Gateway owns exactly one pooled client to the projection store. It is
// constructed once in cmd/worker/main.go and passed down to the
// registry/handlers, never accessed through a package-level global.
type Gateway struct {
	client   *mongo.Client
	database string
	logger   *zap.Logger
}

// Connect establishes the client with bounded connect and
// server-selection timeouts and probes reachability with an admin ping.
// Failure here is fatal at startup.
func Connect(ctx context.Context, uri, database string, connectTimeoutMs, serverSelectionTimeoutMs int, logger *zap.Logger) (*Gateway, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(time.Duration(connectTimeoutMs) * time.Millisecond).
		SetServerSelectionTimeout(time.Duration(serverSelectionTimeoutMs) * time.Millisecond)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	logger.Info("mongodb_connected", zap.String("database", database))

	return &Gateway{client: client, database: database, logger: logger}, nil
}

// Disconnect is idempotent; safe to invoke after a failed connect or more
// than once during shutdown.
func (g *Gateway) Disconnect(ctx context.Context) {
	if g == nil || g.client == nil {
		return
	}
	if err := g.client.Disconnect(ctx); err != nil {
		g.logger.Warn("mongodb_disconnect_error", zap.Error(err))
		return
	}
	g.logger.Info("mongodb_disconnected")
}

// Collection returns a handle for the named collection. No copy of
// credentials or connection state is exposed to the caller.
func (g *Gateway) Collection(name string) Collection {
	return g.client.Database(g.database).Collection(name)
}
