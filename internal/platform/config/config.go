package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration for the engine.
type Server struct {
	Addr          string
	JWTSigningKey string
	PostgresDSN   string
	Redis         RedisConfig
	Kafka         KafkaConfig

	// OriginTag identifies this process in change events so the sync
	// coordinator can skip its own messages coming back from the notifier.
	OriginTag string

	// IngestKeys maps OCR pipeline account names to bcrypt hashes of
	// their API keys. Parsed from ORIGO_INGEST_KEYS as
	// "account:hash,account:hash".
	IngestKeys map[string]string
}

// RedisConfig captures connection settings for the shared Redis instance.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig captures settings for the realtime change notifier.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	Group   string
}

// DedupeTTL bounds how long applied change IDs are remembered for
// redelivery suppression.
var DedupeTTL = 24 * time.Hour

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("ORIGO_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	origin := os.Getenv("ORIGO_ORIGIN_TAG")
	if origin == "" {
		hostname, _ := os.Hostname()
		origin = "origo-" + hostname
	}

	topic := os.Getenv("KAFKA_CHANGE_TOPIC")
	if topic == "" {
		topic = "field-changes"
	}
	group := os.Getenv("KAFKA_CONSUMER_GROUP")
	if group == "" {
		group = "origo-sync"
	}

	return Server{
		Addr:          addr,
		JWTSigningKey: jwtSigningKey,
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
		OriginTag:     origin,
		IngestKeys:    parseKeyPairs(os.Getenv("ORIGO_INGEST_KEYS")),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
			Topic:   topic,
			Group:   group,
		},
	}
}

func envInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func parseKeyPairs(s string) map[string]string {
	out := make(map[string]string)
	for _, pair := range splitNonEmpty(s) {
		name, hash, ok := strings.Cut(pair, ":")
		if !ok || name == "" || hash == "" {
			continue
		}
		out[name] = hash
	}
	return out
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
