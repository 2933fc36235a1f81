// Package config builds runtime configuration from the environment so main
// stays lean. Every knob has a development default; production deployments
// override through the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the gateway needs at startup.
type Config struct {
	Server    ServerConfig
	Token     TokenConfig
	Integrity IntegrityConfig
	Redis     RedisConfig
	Postgres  PostgresConfig
	Kafka     KafkaConfig
	RateLimit RateLimitConfig
	Dev       DevConfig
}

// DevConfig seeds the in-memory principal store when Postgres is not
// configured. Development convenience only; production always has a DSN.
type DevConfig struct {
	SiteID   string
	TenantID string
	SiteSalt string
	APIKey   string
}

// ServerConfig captures HTTP server level configuration.
type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
	// TrustProxyHeaders enables client IP extraction from X-Forwarded-For
	// and X-Real-IP. Only safe behind a proxy that strips client-supplied
	// values; off by default so direct clients cannot pick their own
	// rate-limit identity.
	TrustProxyHeaders bool
}

// TokenConfig configures the session token service.
type TokenConfig struct {
	SigningKey      string
	Issuer          string
	AccessLifetime  time.Duration
	RefreshLifetime time.Duration
}

// IntegrityConfig configures request signing verification.
type IntegrityConfig struct {
	BaseSecret string
	MaxAge     time.Duration
}

// RedisConfig configures the shared counter/nonce store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig configures the principal store backend.
type PostgresConfig struct {
	DSN string
}

// KafkaConfig configures the security audit publisher.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// RateLimitConfig holds limiter toggles; per-class profiles live with the
// limiter itself.
type RateLimitConfig struct {
	Disabled       bool
	AdminTokenHash string
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Server: ServerConfig{
			Addr:              envOr("EVENTGATE_ADDR", ":8080"),
			ShutdownTimeout:   envDuration("EVENTGATE_SHUTDOWN_TIMEOUT", 10*time.Second),
			TrustProxyHeaders: os.Getenv("EVENTGATE_TRUST_PROXY_HEADERS") == "true",
		},
		Token: TokenConfig{
			// Development default - must be overridden in production.
			SigningKey:      envOr("EVENTGATE_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:          envOr("EVENTGATE_JWT_ISSUER", "eventgate"),
			AccessLifetime:  envDuration("EVENTGATE_ACCESS_TOKEN_TTL", 15*time.Minute),
			RefreshLifetime: envDuration("EVENTGATE_REFRESH_TOKEN_TTL", 7*24*time.Hour),
		},
		Integrity: IntegrityConfig{
			BaseSecret: envOr("EVENTGATE_HMAC_SECRET", "dev-hmac-secret-change-in-production"),
			MaxAge:     envDuration("EVENTGATE_HMAC_MAX_AGE", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("EVENTGATE_REDIS_URL"),
			PoolSize:     envInt("EVENTGATE_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("EVENTGATE_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("EVENTGATE_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("EVENTGATE_REDIS_READ_TIMEOUT", 500*time.Millisecond),
			WriteTimeout: envDuration("EVENTGATE_REDIS_WRITE_TIMEOUT", 500*time.Millisecond),
		},
		Postgres: PostgresConfig{
			DSN: os.Getenv("EVENTGATE_POSTGRES_DSN"),
		},
		Kafka: KafkaConfig{
			Brokers:    envList("EVENTGATE_KAFKA_BROKERS"),
			AuditTopic: envOr("EVENTGATE_KAFKA_AUDIT_TOPIC", "eventgate.security-audit"),
		},
		RateLimit: RateLimitConfig{
			Disabled:       os.Getenv("EVENTGATE_RATELIMIT_DISABLED") == "true",
			AdminTokenHash: os.Getenv("EVENTGATE_ADMIN_TOKEN_HASH"),
		},
		Dev: DevConfig{
			SiteID:   envOr("EVENTGATE_DEV_SITE_ID", "dev-site"),
			TenantID: envOr("EVENTGATE_DEV_TENANT_ID", "dev-tenant"),
			SiteSalt: envOr("EVENTGATE_DEV_SITE_SALT", "dev-salt"),
			APIKey:   envOr("EVENTGATE_DEV_API_KEY", "dev-api-key"),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
