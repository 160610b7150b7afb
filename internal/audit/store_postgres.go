package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists the outbox in audit_events.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS audit_events (
	id BIGSERIAL PRIMARY KEY,
	timestamp TIMESTAMPTZ NOT NULL,
	actor TEXT NOT NULL,
	candidate_id BIGINT,
	action TEXT NOT NULL,
	detail TEXT,
	request_id TEXT,
	ip TEXT,
	metadata JSONB,
	published BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_audit_events_pending
	ON audit_events(id) WHERE NOT published;
CREATE INDEX IF NOT EXISTS idx_audit_events_candidate
	ON audit_events(candidate_id);
`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("execute audit schema ddl: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	var metadata []byte
	if event.Metadata != nil {
		var err error
		metadata, err = json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("marshal audit metadata: %w", err)
		}
	}
	var candidateID *int64
	if event.CandidateID != 0 {
		candidateID = &event.CandidateID
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO audit_events (timestamp, actor, candidate_id, action, detail, request_id, ip, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		event.Timestamp, event.Actor, candidateID, string(event.Action),
		event.Detail, event.RequestID, event.IP, metadata)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListPending(ctx context.Context, limit int) ([]Event, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, timestamp, actor, COALESCE(candidate_id, 0), action, detail, request_id, ip, metadata
FROM audit_events
WHERE NOT published
ORDER BY id
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *PostgresStore) MarkPublished(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
UPDATE audit_events SET published = TRUE WHERE id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("mark audit events published: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByCandidate(ctx context.Context, candidateID int64) ([]Event, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, timestamp, actor, COALESCE(candidate_id, 0), action, detail, request_id, ip, metadata
FROM audit_events
WHERE candidate_id = $1
ORDER BY id`, candidateID)
	if err != nil {
		return nil, fmt.Errorf("list audit events by candidate: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanEvents(rows rowScanner) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var event Event
		var action string
		var metadata []byte
		if err := rows.Scan(&event.ID, &event.Timestamp, &event.Actor, &event.CandidateID,
			&action, &event.Detail, &event.RequestID, &event.IP, &metadata); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Action = Action(action)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &event.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal audit metadata: %w", err)
			}
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
