package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "CATALOGSYNC_"

// Load reads an optional YAML file, applies CATALOGSYNC_* environment
// overrides, fills defaults and validates the result. An empty path skips the
// file. A missing file is not an error.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = splitList(v)
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(EnvPrefix + key); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = f
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = d
		}
	}

	str("PUBSUB_SYSTEM", &cfg.PubSubSystem)
	list("KAFKA_BROKERS", &cfg.KafkaBrokers)
	str("KAFKA_CLIENT_ID", &cfg.KafkaClientID)
	str("KAFKA_CONSUMER_GROUP", &cfg.KafkaConsumerGroup)
	str("RABBITMQ_URL", &cfg.RabbitMQURL)
	str("NATS_URL", &cfg.NATSURL)
	str("PRODUCT_TOPIC", &cfg.ProductTopic)
	str("POISON_QUEUE", &cfg.PoisonQueue)
	duration("AUTO_COMMIT_INTERVAL", &cfg.AutoCommitInterval)
	duration("SESSION_TIMEOUT", &cfg.SessionTimeout)
	duration("HEARTBEAT_INTERVAL", &cfg.HeartbeatInterval)
	integer("RETRY_MAX_RETRIES", &cfg.RetryMaxRetries)
	duration("RETRY_INTERVAL", &cfg.RetryInterval)
	float("BULK_PUBLISH_RATE", &cfg.BulkPublishRate)
	str("CATALOG_POSTGRES_URL", &cfg.CatalogPostgresURL)
	str("REPLICA_BACKEND", &cfg.ReplicaBackend)
	str("REPLICA_POSTGRES_URL", &cfg.ReplicaPostgresURL)
	str("REPLICA_SQLITE_FILE", &cfg.ReplicaSQLiteFile)
	boolean("CREATE_MISSING_REPLICAS", &cfg.CreateMissingReplicas)
	if v, ok := lookup(EnvPrefix + "RESYNC_ON_STARTUP"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sRESYNC_ON_STARTUP: %w", EnvPrefix, err))
		} else {
			cfg.ResyncOnStartup = &b
		}
	}
	boolean("AUDIT_ENABLED", &cfg.AuditEnabled)
	boolean("AUDIT_LOG_PARAMETERS", &cfg.AuditLogParameters)
	boolean("TIMING_ENABLED", &cfg.TimingEnabled)
	duration("TIMING_WARN_THRESHOLD", &cfg.TimingWarnThreshold)
	boolean("VALIDATION_ENABLED", &cfg.ValidationEnabled)
	integer("ADMIN_PORT", &cfg.AdminPort)
	str("ADMIN_JWT_SECRET", &cfg.AdminJWTSecret)
	str("ADMIN_ROLE", &cfg.AdminRole)
	boolean("METRICS_ENABLED", &cfg.MetricsEnabled)
	integer("METRICS_PORT", &cfg.MetricsPort)

	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
