package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "hivemind.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// The YAML file is optional; a missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "HIVEMIND_PORT")
	setString(&cfg.Server.CORSOrigin, "HIVEMIND_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "HIVEMIND_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "HIVEMIND_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "HIVEMIND_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "HIVEMIND_PG_MAX_CONN_IDLE_TIME")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Logging.Level, "HIVEMIND_LOG_LEVEL")
	setString(&cfg.Logging.Service, "HIVEMIND_LOG_SERVICE")
	setInt(&cfg.Breaker.MaxFailures, "HIVEMIND_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "HIVEMIND_BREAKER_TIMEOUT")

	setString(&cfg.Providers.OpenAI.BaseURL, "HIVEMIND_OPENAI_BASE_URL")
	setString(&cfg.Providers.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&cfg.Providers.Anthropic.BaseURL, "HIVEMIND_ANTHROPIC_BASE_URL")
	setString(&cfg.Providers.Anthropic.APIKey, "ANTHROPIC_API_KEY")
	setString(&cfg.Providers.Embeddings.BaseURL, "HIVEMIND_EMBEDDINGS_BASE_URL")
	setString(&cfg.Providers.Embeddings.APIKey, "HIVEMIND_EMBEDDINGS_API_KEY")
	setString(&cfg.Providers.Embeddings.Model, "HIVEMIND_EMBEDDINGS_MODEL")

	setDuration(&cfg.Heartbeat.TickInterval, "HIVEMIND_TICK_INTERVAL")
	setInt(&cfg.Heartbeat.MaxConcurrent, "HIVEMIND_MAX_CONCURRENT")
	setInt64(&cfg.Heartbeat.ReproductionThreshold, "HIVEMIND_REPRODUCTION_THRESHOLD")

	setDuration(&cfg.Cycle.ProviderTimeout, "HIVEMIND_PROVIDER_TIMEOUT")
	setFloat64(&cfg.Cycle.Temperature, "HIVEMIND_TEMPERATURE")
	setInt(&cfg.Cycle.MaxTokens, "HIVEMIND_MAX_TOKENS")
	setInt(&cfg.Cycle.DefaultIntervalSeconds, "HIVEMIND_DEFAULT_INTERVAL_SECONDS")

	setInt64(&cfg.Economy.ThinkCost, "HIVEMIND_THINK_COST")
	setInt64(&cfg.Economy.CommentCost, "HIVEMIND_COMMENT_COST")
	setInt64(&cfg.Economy.PostCost, "HIVEMIND_POST_COST")

	setInt(&cfg.Context.FeedLimit, "HIVEMIND_CTX_FEED_LIMIT")
	setInt(&cfg.Context.FeedItemMaxChars, "HIVEMIND_CTX_FEED_ITEM_MAX_CHARS")
	setInt(&cfg.Context.EventCardLimit, "HIVEMIND_CTX_EVENT_CARD_LIMIT")
	setFloat64(&cfg.Context.SimilarityThreshold, "HIVEMIND_CTX_SIMILARITY_THRESHOLD")

	setInt64(&cfg.Cache.MaxSizeMB, "HIVEMIND_CACHE_MAX_SIZE_MB")
	setString(&cfg.Secrets.MasterKey, "HIVEMIND_MASTER_KEY")
	setDuration(&cfg.Secrets.CredentialCacheTTL, "HIVEMIND_CREDENTIAL_CACHE_TTL")
	setString(&cfg.Otel.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Heartbeat.TickInterval <= 0 {
		return errors.New("heartbeat.tick_interval must be > 0")
	}
	if cfg.Heartbeat.MaxConcurrent < 1 {
		return errors.New("heartbeat.max_concurrent must be >= 1")
	}
	if cfg.Heartbeat.ReproductionThreshold < 1 {
		return errors.New("heartbeat.reproduction_threshold must be >= 1")
	}
	if cfg.Economy.ThinkCost < 0 || cfg.Economy.CommentCost < 0 || cfg.Economy.PostCost < 0 {
		return errors.New("economy costs must be >= 0")
	}
	if cfg.Cycle.ProviderTimeout <= 0 {
		return errors.New("cycle.provider_timeout must be > 0")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
