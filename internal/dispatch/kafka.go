package dispatch

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"

	"teamtodo/internal/config"
	"teamtodo/pkg/logger"
)

// NewWriter builds the async task producer. Publishing never blocks on broker
// acks; failures surface through the writer's error channel into logs.
func NewWriter(cfg *config.Config) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    100,
		BatchTimeout: 0,
		Async:        true,
		RequiredAcks: kafka.RequireOne,
	}
}

// EnsureTopic creates the task topic with configured partitions (idempotent).
// Call at startup; if it fails (no broker, topic exists), the app still runs.
func EnsureTopic(ctx context.Context, cfg *config.Config) {
	if len(cfg.KafkaBrokers) == 0 {
		return
	}
	conn, err := kafka.Dial("tcp", cfg.KafkaBrokers[0])
	if err != nil {
		logger.Debug(ctx, "Kafka dial for topic creation failed", "error", err)
		return
	}
	defer conn.Close()
	controller, err := conn.Controller()
	if err != nil {
		logger.Debug(ctx, "Kafka controller lookup failed", "error", err)
		return
	}
	ctrlConn, err := kafka.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	if err != nil {
		logger.Debug(ctx, "Kafka controller dial failed", "error", err)
		return
	}
	defer ctrlConn.Close()
	err = ctrlConn.CreateTopics(kafka.TopicConfig{
		Topic:             cfg.KafkaTopic,
		NumPartitions:     cfg.KafkaPartitions,
		ReplicationFactor: 1,
	})
	if err != nil {
		logger.Debug(ctx, "Kafka create topic failed (topic may already exist)", "error", err)
		return
	}
	logger.Info(ctx, "Kafka topic ensured", "topic", cfg.KafkaTopic, "partitions", cfg.KafkaPartitions)
}
