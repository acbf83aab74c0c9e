// Package config loads the processor's environment-variable surface.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds the processor's broker/consumer settings, projection-store
// settings, and the reserved retry/backoff knobs the core does not yet
// exercise.
type Config struct {
	NATSURL            string
	NATSStreamName     string
	NATSStreamSubject  string
	NATSGroupID        string
	NATSMaxPollRecords int

	MongoURI                      string
	MongoDatabase                 string
	MongoConnectTimeoutMs         int
	MongoServerSelectionTimeoutMs int

	LogLevel              string
	ProcessingBatchSize   int
	MaxRetries            int
	RetryDelaySeconds     int
	ShutdownTimeoutSeconds int
}

// Load reads the configuration surface from the environment, with
// defaults suitable for local development.
func Load() *Config {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("kafka_bootstrap_servers", "nats://localhost:4222")
	v.SetDefault("kafka_topic", "DOMAIN_EVENTS.>")
	v.SetDefault("kafka_group_id", "event-processor-group")
	v.SetDefault("kafka_max_poll_records", 100)

	v.SetDefault("mongodb_uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb_database", "activity_read")
	v.SetDefault("mongodb_connect_timeout_ms", 5000)
	v.SetDefault("mongodb_server_selection_timeout_ms", 5000)

	v.SetDefault("log_level", "info")
	v.SetDefault("processing_batch_size", 100)
	v.SetDefault("max_retries", 3)
	v.SetDefault("retry_delay_seconds", 5)
	v.SetDefault("shutdown_timeout_seconds", 30)

	subject := v.GetString("kafka_topic")

	return &Config{
		NATSURL:            v.GetString("kafka_bootstrap_servers"),
		NATSStreamName:     streamNameFromSubject(subject),
		NATSStreamSubject:  subject,
		NATSGroupID:        v.GetString("kafka_group_id"),
		NATSMaxPollRecords: v.GetInt("kafka_max_poll_records"),

		MongoURI:                      v.GetString("mongodb_uri"),
		MongoDatabase:                 v.GetString("mongodb_database"),
		MongoConnectTimeoutMs:         v.GetInt("mongodb_connect_timeout_ms"),
		MongoServerSelectionTimeoutMs: v.GetInt("mongodb_server_selection_timeout_ms"),

		LogLevel:               v.GetString("log_level"),
		ProcessingBatchSize:    v.GetInt("processing_batch_size"),
		MaxRetries:             v.GetInt("max_retries"),
		RetryDelaySeconds:      v.GetInt("retry_delay_seconds"),
		ShutdownTimeoutSeconds: v.GetInt("shutdown_timeout_seconds"),
	}
}

// streamNameFromSubject derives the JetStream stream name from the
// configured subject filter, e.g. "DOMAIN_EVENTS.>" -> "DOMAIN_EVENTS".
func streamNameFromSubject(subject string) string {
	if i := strings.IndexByte(subject, '.'); i != -1 {
		return subject[:i]
	}
	return subject
}

// RedactedMongoURI returns the connection string with credentials
// stripped, safe for inclusion in a log line.
func RedactedMongoURI(uri string) string {
	at := strings.LastIndex(uri, "@")
	if at == -1 {
		return uri
	}
	scheme := strings.Index(uri, "://")
	if scheme == -1 {
		return uri[at+1:]
	}
	return uri[:scheme+3] + uri[at+1:]
}
