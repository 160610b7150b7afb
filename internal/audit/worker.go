package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

// Sink ships a batch of events downstream.
type Sink interface {
	Publish(ctx context.Context, events []Event) error
}

// Worker drains the outbox into the sink on an interval. Events are only
// marked published after the sink accepted them, so delivery is
// at-least-once.
type Worker struct {
	store     Store
	sink      Sink
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

func NewWorker(store Store, sink Sink, logger *slog.Logger, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Worker{
		store:     store,
		sink:      sink,
		logger:    logger,
		interval:  interval,
		batchSize: 100,
	}
}

func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Drain(ctx); err != nil {
				w.logger.Error("audit outbox drain failed", "error", err)
			}
		}
	}
}

// Drain publishes one batch of pending events.
func (w *Worker) Drain(ctx context.Context) error {
	events, err := w.store.ListPending(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending: %w", err)
	}
	if len(events) == 0 {
		return nil
	}
	if err := w.sink.Publish(ctx, events); err != nil {
		return fmt.Errorf("publish batch: %w", err)
	}
	ids := make([]int64, len(events))
	for i, event := range events {
		ids[i] = event.ID
	}
	if err := w.store.MarkPublished(ctx, ids); err != nil {
		return fmt.Errorf("mark published: %w", err)
	}
	return nil
}

// KafkaPublisher is the Sink producing to an audit topic, keyed by candidate
// so per-candidate ordering survives partitioning.
type KafkaPublisher struct {
	producer interface {
		Publish(ctx context.Context, topic string, key, value []byte) error
	}
	topic string
}

func NewKafkaPublisher(producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (k *KafkaPublisher) Publish(ctx context.Context, events []Event) error {
	for _, event := range events {
		value, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("marshal audit event %d: %w", event.ID, err)
		}
		key := []byte(strconv.FormatInt(event.CandidateID, 10))
		if err := k.producer.Publish(ctx, k.topic, key, value); err != nil {
			return err
		}
	}
	return nil
}
