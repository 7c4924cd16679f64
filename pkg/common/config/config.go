package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64
	RateLimitRPS   int
	RateLimitBurst int

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	PostgresMinConns int
	PostgresMaxConns int

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers      []string
	KafkaInsightTopic string

	// LLM
	LLMAPIKey         string
	LLMBaseURL        string
	LLMModelName      string
	LLMRequestTimeout time.Duration
	LLMMaxAttempts    int
	LLMTokenURL       string
	LLMClientID       string
	LLMClientSecret   string

	// Pipeline
	GuidancePath     string
	RecordCacheTTL   time.Duration
	TranscriptMinLen int
	TranscriptMaxLen int
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8000"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 60*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 1*1024*1024)),
		RateLimitRPS:   getIntEnv("RATE_LIMIT_RPS", 50),
		RateLimitBurst: getIntEnv("RATE_LIMIT_BURST", 100),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "insights"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "insights123"),
		PostgresDB:       getEnv("POSTGRES_DB", "insights"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresMinConns: getIntEnv("POSTGRES_MIN_CONNS", 5),
		PostgresMaxConns: getIntEnv("POSTGRES_MAX_CONNS", 20),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:      getStringSliceEnv("KAFKA_BROKERS", nil),
		KafkaInsightTopic: getEnv("KAFKA_INSIGHT_TOPIC", "call-insights"),

		LLMAPIKey:         getEnv("LLM_API_KEY", ""),
		LLMBaseURL:        getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMModelName:      getEnv("LLM_MODEL_NAME", "gpt-4o-mini"),
		LLMRequestTimeout: getDuration("LLM_REQUEST_TIMEOUT", 30*time.Second),
		LLMMaxAttempts:    getIntEnv("LLM_MAX_ATTEMPTS", 3),
		LLMTokenURL:       getEnv("LLM_TOKEN_URL", ""),
		LLMClientID:       getEnv("LLM_CLIENT_ID", ""),
		LLMClientSecret:   getEnv("LLM_CLIENT_SECRET", ""),

		GuidancePath:     getEnv("GUIDANCE_CONFIG_PATH", ""),
		RecordCacheTTL:   getDuration("RECORD_CACHE_TTL", 10*time.Minute),
		TranscriptMinLen: getIntEnv("TRANSCRIPT_MIN_LEN", 20),
		TranscriptMaxLen: getIntEnv("TRANSCRIPT_MAX_LEN", 10000),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
