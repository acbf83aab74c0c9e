// Command worker runs the CDC event-processor: it pulls outbox records
// from the durable log, decodes them, and dispatches to the registered
// projection handlers against the document store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/arc-self/apps/outbox-processor/internal/config"
	"github.com/arc-self/apps/outbox-processor/internal/consumer"
	"github.com/arc-self/apps/outbox-processor/internal/natsconn"
	"github.com/arc-self/apps/outbox-processor/internal/projection"
	"github.com/arc-self/apps/outbox-processor/internal/registry"
	"github.com/arc-self/apps/outbox-processor/internal/store"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Error("fatal", zap.Error(err))
		os.Exit(1)
	}
	os.Exit(0)
}

func run(logger *zap.Logger) error {
	cfg := config.Load()

	mongoURI, natsURL, err := loadSecrets(cfg, logger)
	if err != nil {
		return fmt.Errorf("load secrets: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gateway, err := store.Connect(ctx, mongoURI, cfg.MongoDatabase,
		cfg.MongoConnectTimeoutMs, cfg.MongoServerSelectionTimeoutMs, logger)
	if err != nil {
		return fmt.Errorf("projection store connect: %w", err)
	}
	defer gateway.Disconnect(context.Background())

	nc, err := natsconn.Connect(natsURL, logger)
	if err != nil {
		return fmt.Errorf("nats connect: %w", err)
	}
	defer nc.Close()

	reg := registry.New(logger)
	registerHandlers(reg, gateway, logger)
	reg.LogRegistered()

	c := consumer.New(nc, reg, logger, consumer.Config{
		StreamName:     cfg.NATSStreamName,
		Subject:        cfg.NATSStreamSubject,
		GroupID:        cfg.NATSGroupID,
		MaxPollRecords: cfg.NATSMaxPollRecords,
	})

	if err := c.Initialize(ctx); err != nil {
		return fmt.Errorf("consumer initialize: %w", err)
	}

	logger.Info("worker_started", zap.Strings("registered_event_types", reg.RegisteredEventTypes()))

	if err := c.Start(ctx); err != nil {
		c.Shutdown()
		return fmt.Errorf("consumer loop: %w", err)
	}

	c.Shutdown()
	return nil
}

// registerHandlers wires every projection handler into the registry, in
// the order the original registration step used: user handlers, then
// activity handlers.
func registerHandlers(reg *registry.Registry, gw *store.Gateway, logger *zap.Logger) {
	reg.Register(projection.NewUserCreatedHandler(gw, logger))
	reg.Register(projection.NewUserStatisticsHandler(gw, logger))
	reg.Register(projection.NewUserUpdatedHandler(gw, logger))

	reg.Register(projection.NewActivityCreatedHandler(gw, logger))
	reg.Register(projection.NewActivityUpdatedHandler(gw, logger))
	reg.Register(projection.NewParticipantJoinedHandler(gw, logger))
}

// loadSecrets reads mongodb_uri and the NATS URL from Vault, falling
// back to the non-secret config defaults when Vault is not configured
// (e.g. local development). VAULT_ADDR absent is treated as "no
// secret manager", not a fatal error.
func loadSecrets(cfg *config.Config, logger *zap.Logger) (mongoURI, natsURL string, err error) {
	mongoURI = cfg.MongoURI
	natsURL = cfg.NATSURL

	vaultAddr := os.Getenv("VAULT_ADDR")
	if vaultAddr == "" {
		logger.Info("vault_not_configured", zap.String("mongodb_uri", config.RedactedMongoURI(mongoURI)))
		return mongoURI, natsURL, nil
	}

	vaultToken := os.Getenv("VAULT_TOKEN")
	secretPath := os.Getenv("VAULT_SECRET_PATH")
	if secretPath == "" {
		secretPath = "secret/data/outbox-processor"
	}

	secretManager, err := config.NewSecretManager(vaultAddr, vaultToken)
	if err != nil {
		return "", "", fmt.Errorf("vault client: %w", err)
	}

	secrets, err := secretManager.GetKV2(secretPath)
	if err != nil {
		return "", "", fmt.Errorf("read secrets: %w", err)
	}

	if v, ok := secrets["MONGODB_URI"].(string); ok && v != "" {
		mongoURI = v
	}
	if v, ok := secrets["NATS_URL"].(string); ok && v != "" {
		natsURL = v
	}

	logger.Info("secrets_loaded_from_vault", zap.String("mongodb_uri", config.RedactedMongoURI(mongoURI)))
	return mongoURI, natsURL, nil
}
