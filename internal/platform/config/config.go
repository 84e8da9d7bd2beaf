package config

import (
	"os"
	"strconv"
	"time"

	platformstrings "bloodlink/pkg/platform/strings"
)

// Server captures process level configuration.
type Server struct {
	Addr               string
	DatabaseURL        string
	Redis              RedisConfig
	Kafka              KafkaConfig
	Notifications      NotificationConfig
	JWT                JWTConfig
	CORSAllowedOrigins []string
	StatsCacheTTL      time.Duration
	RateLimit          RateLimitConfig
	LogLevel           string
}

// RateLimitConfig holds per-user budgets per minute. Zero disables a class.
type RateLimitConfig struct {
	Disabled             bool
	MatchSearchPerMinute int
	WritePerMinute       int
	ReadPerMinute        int
}

// RedisConfig configures the statistics cache connection. Empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures notification fan-out. No brokers disables publishing.
type KafkaConfig struct {
	Brokers           []string
	NotificationTopic string
	Partitions        int32
}

// NotificationBackend selects the notification store.
type NotificationBackend string

const (
	NotificationBackendMemory   NotificationBackend = "memory"
	NotificationBackendPostgres NotificationBackend = "postgres"
	NotificationBackendDynamoDB NotificationBackend = "dynamodb"
)

type NotificationConfig struct {
	Backend       NotificationBackend
	DynamoDBTable string
}

type JWTConfig struct {
	SigningKey string
	Issuer     string
	Audience   string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	databaseURL := os.Getenv("DATABASE_URL")

	backend := NotificationBackend(getEnv("NOTIFICATION_BACKEND", ""))
	if backend == "" {
		backend = NotificationBackendMemory
		if databaseURL != "" {
			backend = NotificationBackendPostgres
		}
	}

	return Server{
		Addr:        getEnv("BLOODLINK_ADDR", ":8080"),
		DatabaseURL: databaseURL,
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:           platformstrings.SplitList(os.Getenv("KAFKA_BROKERS")),
			NotificationTopic: getEnv("NOTIFICATION_TOPIC", "bloodlink.notifications"),
			Partitions:        int32(getEnvInt("NOTIFICATION_TOPIC_PARTITIONS", 3)),
		},
		Notifications: NotificationConfig{
			Backend:       backend,
			DynamoDBTable: getEnv("DYNAMODB_NOTIFICATIONS_TABLE", "bloodlink-notifications"),
		},
		JWT: JWTConfig{
			// Use a default for development - should be overridden in production
			SigningKey: getEnv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:     os.Getenv("JWT_ISSUER"),
			Audience:   getEnv("JWT_AUDIENCE", "authenticated"),
		},
		CORSAllowedOrigins: platformstrings.SplitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
		StatsCacheTTL:      getEnvDuration("STATS_CACHE_TTL", 2*time.Minute),
		RateLimit: RateLimitConfig{
			Disabled:             getEnvBool("RATE_LIMIT_DISABLED", false),
			MatchSearchPerMinute: getEnvInt("RATE_LIMIT_MATCH_SEARCH_PER_MINUTE", 10),
			WritePerMinute:       getEnvInt("RATE_LIMIT_WRITE_PER_MINUTE", 60),
			ReadPerMinute:        getEnvInt("RATE_LIMIT_READ_PER_MINUTE", 300),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
