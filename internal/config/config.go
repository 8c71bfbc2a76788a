package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration from environment.
type Config struct {
	HTTPPort        string
	DatabaseURL     string
	DBPoolSize      int
	RedisURL        string
	RedisPoolSize   int
	CacheTTL        time.Duration
	DedupTTL        time.Duration
	KafkaBrokers    []string
	KafkaTopic      string
	KafkaPartitions int
	KafkaGroupID    string
	JWTSecret       string
}

// Load reads configuration from the environment (and an optional .env file in
// the working directory). It returns a fresh Config every call; the composition
// root owns the instance and passes it down explicitly.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	// A missing .env is fine; a malformed one is not.
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	v.AutomaticEnv()

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("DB_POOL_SIZE", 50)
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("REDIS_POOL_SIZE", 100)
	v.SetDefault("CACHE_TTL_SEC", 300)
	v.SetDefault("DEDUP_TTL_SEC", 60)
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_TASK_TOPIC", "todo-tasks")
	v.SetDefault("KAFKA_PARTITIONS", 16)
	v.SetDefault("KAFKA_GROUP_ID", "todo-workers")

	cfg := &Config{
		HTTPPort:        v.GetString("HTTP_PORT"),
		DatabaseURL:     v.GetString("DATABASE_URL"),
		DBPoolSize:      v.GetInt("DB_POOL_SIZE"),
		RedisURL:        v.GetString("REDIS_URL"),
		RedisPoolSize:   v.GetInt("REDIS_POOL_SIZE"),
		CacheTTL:        time.Duration(v.GetInt("CACHE_TTL_SEC")) * time.Second,
		DedupTTL:        time.Duration(v.GetInt("DEDUP_TTL_SEC")) * time.Second,
		KafkaBrokers:    splitBrokers(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:      v.GetString("KAFKA_TASK_TOPIC"),
		KafkaPartitions: v.GetInt("KAFKA_PARTITIONS"),
		KafkaGroupID:    v.GetString("KAFKA_GROUP_ID"),
		JWTSecret:       v.GetString("JWT_SECRET"),
	}
	return cfg, nil
}

func splitBrokers(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			b := trim(s[start:i])
			if b != "" {
				out = append(out, b)
			}
			start = i + 1
		}
	}
	return out
}

func trim(s string) string {
	i, j := 0, len(s)
	for i < j && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	for j > i && (s[j-1] == ' ' || s[j-1] == '\t') {
		j--
	}
	return s[i:j]
}
