package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	pstrings "github.com/0xshikhar/sapphire-did-sub000/pkg/platform/strings"
)

// Config aggregates every environment-driven setting the server binary reads.
type Config struct {
	HTTP        HTTPConfig
	DatabaseURL string
	Redis       RedisConfig
	Kafka       KafkaConfig
	JWT         JWTConfig
	Agent       AgentConfig

	CORSOrigins     []string
	LogLevel        string
	ResolveCacheTTL time.Duration
	// AuditOpsSampleRate thins operations-category audit events; compliance
	// and security events are never sampled.
	AuditOpsSampleRate float64
}

// HTTPConfig captures HTTP server level configuration.
type HTTPConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// RequestTimeout bounds a single request through the timeout middleware.
	RequestTimeout time.Duration
}

// RedisConfig captures the read-cache connection settings. An empty URL
// means no cache; resolution then always reads the store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig captures the audit outbox worker's destination. Empty brokers
// means the worker is not started and audit rows stay in the outbox.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// JWTConfig captures bearer token verification settings. Exactly one of
// SigningKey (HS256, self-issued tokens) or JWKSURL (external provider)
// must be set.
type JWTConfig struct {
	SigningKey     string
	Issuer         string
	Audience       string
	AccessTokenTTL time.Duration
	JWKSURL        string
}

// AgentConfig captures the identity agent endpoint. An empty BaseURL selects
// the in-process dev agent.
type AgentConfig struct {
	BaseURL string
	Timeout time.Duration
}

// FromEnv builds the Config from environment variables so main stays lean.
// A .env file is loaded first when present; a missing file is not an error
// because production injects real environment variables.
func FromEnv() Config {
	_ = godotenv.Load()

	return Config{
		HTTP: HTTPConfig{
			Addr:        getEnv("HTTP_ADDR", ":8080"),
			ReadTimeout: getEnvDuration("HTTP_READ_TIMEOUT", 5*time.Second),
			// WriteTimeout exceeds RequestTimeout so the timeout middleware,
			// not the connection, cuts off slow requests.
			WriteTimeout:   getEnvDuration("HTTP_WRITE_TIMEOUT", 30*time.Second),
			RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 15*time.Second),
		},
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Redis: RedisConfig{
			URL:          getEnv("REDIS_URL", ""),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: pstrings.SplitListLower(getEnv("KAFKA_BROKERS", "")),
			Topic:   getEnv("KAFKA_TOPIC", "sapphire.audit.events"),
		},
		JWT: JWTConfig{
			SigningKey:     getEnv("JWT_SIGNING_KEY", ""),
			Issuer:         getEnv("JWT_ISSUER", "sapphire-did"),
			Audience:       getEnv("JWT_AUDIENCE", "sapphire-did"),
			AccessTokenTTL: getEnvDuration("JWT_ACCESS_TOKEN_TTL", 15*time.Minute),
			JWKSURL:        getEnv("JWKS_URL", ""),
		},
		Agent: AgentConfig{
			BaseURL: getEnv("AGENT_BASE_URL", ""),
			Timeout: getEnvDuration("AGENT_TIMEOUT", 10*time.Second),
		},
		CORSOrigins:        pstrings.SplitList(getEnv("CORS_ORIGINS", "")),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		ResolveCacheTTL:    getEnvDuration("RESOLVE_CACHE_TTL", 30*time.Second),
		AuditOpsSampleRate: getEnvFloat("AUDIT_OPS_SAMPLE_RATE", 1),
	}
}

// Validate rejects setting combinations the binary cannot run with.
func (c Config) Validate() error {
	if c.JWT.SigningKey == "" && c.JWT.JWKSURL == "" {
		return errors.New("either JWT_SIGNING_KEY or JWKS_URL must be set")
	}
	if len(c.Kafka.Brokers) > 0 && c.DatabaseURL == "" {
		return errors.New("KAFKA_BROKERS requires DATABASE_URL: the audit worker drains the Postgres outbox")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return f
}
