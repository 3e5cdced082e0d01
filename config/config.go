package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Client  ClientConfig
	Storage StorageConfig
	Guard   GuardConfig
	Poller  PollerConfig
	Sim     SimConfig
	Redis   RedisConfig
	Kafka   KafkaConfig
	Observ  ObservabilityConfig
}

type ClientConfig struct {
	Env      string
	BaseURL  string
	Channel  string
	Quantity int
}

type StorageConfig struct {
	Path string
}

type GuardConfig struct {
	WindowMs     int
	MaxPerWindow int
}

type PollerConfig struct {
	IntervalMs  int
	MaxAttempts int
}

type SimConfig struct {
	Port         string
	JWTSecret    string
	OrderDelayMs int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers       []string
	TopicOrder    string
	ConsumerGroup string
}

type ObservabilityConfig struct {
	JaegerEndpoint string
}

func Load() *Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	windowMs, _ := strconv.Atoi(getEnv("GUARD_WINDOW_MS", "1000"))
	maxPerWindow, _ := strconv.Atoi(getEnv("GUARD_MAX_PER_WINDOW", "1"))
	pollIntervalMs, _ := strconv.Atoi(getEnv("POLL_INTERVAL_MS", "1000"))
	pollMaxAttempts, _ := strconv.Atoi(getEnv("POLL_MAX_ATTEMPTS", "30"))
	quantity, _ := strconv.Atoi(getEnv("SECKILL_QUANTITY", "1"))
	orderDelayMs, _ := strconv.Atoi(getEnv("SIM_ORDER_DELAY_MS", "3000"))

	cfg := &Config{
		Client: ClientConfig{
			Env:      getEnv("ENV", "development"),
			BaseURL:  getEnv("BACKEND_URL", "http://localhost:8080"),
			Channel:  getEnv("SECKILL_CHANNEL", "PC"),
			Quantity: quantity,
		},
		Storage: StorageConfig{
			Path: getEnv("STORAGE_PATH", "seckill-client.db"),
		},
		Guard: GuardConfig{
			WindowMs:     windowMs,
			MaxPerWindow: maxPerWindow,
		},
		Poller: PollerConfig{
			IntervalMs:  pollIntervalMs,
			MaxAttempts: pollMaxAttempts,
		},
		Sim: SimConfig{
			Port:         getEnv("SIM_PORT", "8080"),
			JWTSecret:    getEnv("SIM_JWT_SECRET", "dev-secret-change-me"),
			OrderDelayMs: orderDelayMs,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Kafka: KafkaConfig{
			Brokers:       splitNonEmpty(getEnv("KAFKA_BROKERS", "")),
			TopicOrder:    getEnv("KAFKA_TOPIC_ORDER_EVENTS", "seckill-order-events"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "seckill-sim-group"),
		},
		Observ: ObservabilityConfig{
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
		},
	}

	log.Printf("Config loaded: env=%s, backend=%s", cfg.Client.Env, cfg.Client.BaseURL)
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
