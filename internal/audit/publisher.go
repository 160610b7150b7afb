package audit

import (
	"context"
	"log/slog"
	"time"
)

// Recorder is the trail-side interface domain services depend on.
type Recorder interface {
	Record(ctx context.Context, event Event)
}

// Publisher appends events to the outbox. Failures are logged, never
// propagated: losing an audit entry must not fail the business operation.
type Publisher struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

func NewPublisher(store Store, logger *slog.Logger) *Publisher {
	return &Publisher{store: store, logger: logger, now: time.Now}
}

func (p *Publisher) Record(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	if err := p.store.Append(ctx, event); err != nil {
		p.logger.Error("failed to append audit event",
			"action", event.Action,
			"candidate_id", event.CandidateID,
			"error", err,
		)
	}
}

// NopRecorder discards events; used where auditing is not wired.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Event) {}
