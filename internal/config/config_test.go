package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"teamtodo/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	assert := assert.New(t)

	cfg, err := config.Load()
	assert.Nil(err)
	assert.Equal("8080", cfg.HTTPPort)
	assert.Equal([]string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal("todo-tasks", cfg.KafkaTopic)
	assert.Equal(5*time.Minute, cfg.CacheTTL)
	assert.Equal(time.Minute, cfg.DedupTTL)
}

func TestLoadFromEnv(t *testing.T) {
	assert := assert.New(t)

	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("KAFKA_BROKERS", "b1:9092, b2:9092")
	t.Setenv("CACHE_TTL_SEC", "30")

	cfg, err := config.Load()
	assert.Nil(err)
	assert.Equal("9999", cfg.HTTPPort)
	assert.Equal([]string{"b1:9092", "b2:9092"}, cfg.KafkaBrokers)
	assert.Equal(30*time.Second, cfg.CacheTTL)
}
