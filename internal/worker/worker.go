package worker

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/segmentio/kafka-go"

	"teamtodo/internal/cache"
	"teamtodo/internal/config"
	"teamtodo/internal/dispatch"
	"teamtodo/internal/mutation"
	"teamtodo/pkg/logger"
)

// Worker consumes queued bulk tasks and delivers them through the dispatcher.
// One consumer per process; scale by running more replicas (the consumer
// group shares partitions).
type Worker struct {
	cfg        *config.Config
	dispatcher *dispatch.Dispatcher
	cache      *cache.Cache
	processed  int64
}

// New wires a Worker. cache may be nil (no invalidation).
func New(cfg *config.Config, d *dispatch.Dispatcher, c *cache.Cache) *Worker {
	return &Worker{cfg: cfg, dispatcher: d, cache: c}
}

// Run blocks consuming the task topic until ctx is canceled. Malformed and
// failing messages are logged and committed so a poison pill cannot block the
// partition; the broker owns retries for transient failures before commit.
func (w *Worker) Run(ctx context.Context) {
	if len(w.cfg.KafkaBrokers) == 0 {
		logger.Info(ctx, "Worker disabled (no Kafka brokers)")
		return
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  w.cfg.KafkaBrokers,
		Topic:    w.cfg.KafkaTopic,
		GroupID:  w.cfg.KafkaGroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	logger.Info(ctx, "Task consumer started", "topic", w.cfg.KafkaTopic, "group", w.cfg.KafkaGroupID)
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error(ctx, "Worker fetch failed", "error", err)
			continue
		}
		if err := w.handle(ctx, msg.Value); err != nil {
			logger.Error(ctx, "Worker handle failed", "error", err, "payload", string(msg.Value))
			_ = reader.CommitMessages(ctx, msg)
			continue
		}
		if err := reader.CommitMessages(ctx, msg); err != nil {
			logger.Error(ctx, "Worker commit failed", "error", err)
		}
		atomic.AddInt64(&w.processed, 1)
	}
}

// Processed returns how many tasks this worker has applied.
func (w *Worker) Processed() int64 {
	return atomic.LoadInt64(&w.processed)
}

func (w *Worker) handle(ctx context.Context, payload []byte) error {
	var task mutation.Bulk
	if err := json.Unmarshal(payload, &task); err != nil {
		return err
	}
	if err := w.dispatcher.Deliver(ctx, task); err != nil {
		return err
	}
	if w.cache != nil {
		w.cache.InvalidateTodos(ctx, task.TeamID)
	}
	return nil
}
