package admission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"conosco/pkg/platform/sentinel"
)

type PostgresSnapshotStore struct {
	pool *pgxpool.Pool
}

func NewPostgresSnapshotStore(pool *pgxpool.Pool) *PostgresSnapshotStore {
	return &PostgresSnapshotStore{pool: pool}
}

func (s *PostgresSnapshotStore) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS admission_snapshots (
	candidate_id BIGINT PRIMARY KEY,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	sent_at TIMESTAMPTZ
);
`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("execute admission schema ddl: %w", err)
	}
	return nil
}

func (s *PostgresSnapshotStore) Save(ctx context.Context, snap *Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO admission_snapshots (candidate_id, payload, created_at, sent_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (candidate_id) DO UPDATE SET
	payload = EXCLUDED.payload,
	created_at = EXCLUDED.created_at,
	sent_at = EXCLUDED.sent_at`,
		snap.CandidateID, payload, snap.CreatedAt, snap.SentAt)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

func (s *PostgresSnapshotStore) FindByCandidateID(ctx context.Context, candidateID int64) (*Snapshot, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `
SELECT payload FROM admission_snapshots WHERE candidate_id = $1`, candidateID).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("select snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

func (s *PostgresSnapshotStore) MarkSent(ctx context.Context, candidateID int64) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE admission_snapshots
SET sent_at = now(), payload = jsonb_set(payload, '{enviado_em}', to_jsonb(now()))
WHERE candidate_id = $1`, candidateID)
	if err != nil {
		return fmt.Errorf("mark snapshot sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresSnapshotStore) DeleteByCandidateID(ctx context.Context, candidateID int64) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM admission_snapshots WHERE candidate_id = $1`, candidateID); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}
