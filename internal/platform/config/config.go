package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration. The ledger network address and
// chain identity are environment concerns, not core design.
type Server struct {
	Addr          string
	OwnerIdentity string
	JWTSigningKey string

	// KafkaBrokers empty means events stay on the in-memory publisher.
	KafkaBrokers []string
	EventTopic   string

	// PostgresURL empty means the commitment store falls back to the local
	// JSON file at CommitStorePath.
	PostgresURL     string
	CommitStorePath string

	// RedisURL empty disables the record read cache.
	RedisURL string
	CacheTTL time.Duration

	// AwaitTimeout bounds how long the HTTP layer waits for finalization
	// before reporting the submission as still pending.
	AwaitTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays
// lean.
func FromEnv() Server {
	cfg := Server{
		Addr:            envOr("CERTLEDGER_ADDR", ":8080"),
		OwnerIdentity:   envOr("CERTLEDGER_OWNER", "registrar@example.edu"),
		JWTSigningKey:   envOr("CERTLEDGER_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		EventTopic:      envOr("CERTLEDGER_EVENT_TOPIC", "certificate-events"),
		PostgresURL:     os.Getenv("CERTLEDGER_POSTGRES_URL"),
		CommitStorePath: envOr("CERTLEDGER_COMMIT_STORE_PATH", "certificates.json"),
		RedisURL:        os.Getenv("CERTLEDGER_REDIS_URL"),
		CacheTTL:        durationOr("CERTLEDGER_CACHE_TTL", time.Minute),
		AwaitTimeout:    durationOr("CERTLEDGER_AWAIT_TIMEOUT", 15*time.Second),
	}
	if brokers := os.Getenv("CERTLEDGER_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
