package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"conosco/internal/document"
	"conosco/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// PostgresRecordStore persists records in document_records plus one row per
// slot in document_slots.
type PostgresRecordStore struct {
	pool *pgxpool.Pool
}

func NewPostgresRecordStore(pool *pgxpool.Pool) *PostgresRecordStore {
	return &PostgresRecordStore{pool: pool}
}

// EnsureSchema bootstraps the tables. An advisory lock serializes concurrent
// startups.
func (s *PostgresRecordStore) EnsureSchema(ctx context.Context) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2024120401)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const ddl = `
CREATE TABLE IF NOT EXISTS document_records (
	id BIGSERIAL PRIMARY KEY,
	candidate_id BIGINT NOT NULL UNIQUE,
	access_token TEXT NOT NULL,
	token_expires_at TIMESTAMPTZ NOT NULL,
	residency_issued_at TIMESTAMPTZ,
	declaration_value TEXT,
	declaration_hash TEXT,
	declaration_ip TEXT,
	declaration_user_agent TEXT,
	declaration_device TEXT,
	declared_at TIMESTAMPTZ,
	dependents JSONB NOT NULL DEFAULT '[]'::jsonb,
	status TEXT NOT NULL,
	first_upload_at TIMESTAMPTZ,
	last_upload_at TIMESTAMPTZ,
	completed_at TIMESTAMPTZ,
	link_sent_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS document_slots (
	record_id BIGINT NOT NULL REFERENCES document_records(id),
	type TEXT NOT NULL,
	url TEXT,
	validated BOOLEAN NOT NULL DEFAULT FALSE,
	rejected BOOLEAN NOT NULL DEFAULT FALSE,
	rejection_reason TEXT,
	uploaded_at TIMESTAMPTZ,
	PRIMARY KEY (record_id, type)
);

CREATE TABLE IF NOT EXISTS document_credentials (
	id BIGSERIAL PRIMARY KEY,
	candidate_id BIGINT NOT NULL,
	cpf TEXT NOT NULL,
	password TEXT NOT NULL,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	expires_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_document_credentials_cpf
	ON document_credentials(cpf) WHERE active;
CREATE INDEX IF NOT EXISTS idx_document_records_status
	ON document_records(status);
`
	if _, err := tx.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *PostgresRecordStore) Create(ctx context.Context, record *document.Record) error {
	dependents, err := json.Marshal(dependentsOrEmpty(record.Dependents))
	if err != nil {
		return fmt.Errorf("marshal dependents: %w", err)
	}

	err = s.pool.QueryRow(ctx, `
INSERT INTO document_records (
	candidate_id, access_token, token_expires_at, dependents, status, link_sent_at
) VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`,
		record.CandidateID, record.AccessToken, record.TokenExpiresAt,
		dependents, string(record.Status), record.LinkSentAt,
	).Scan(&record.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert document record: %w", err)
	}
	return nil
}

func (s *PostgresRecordStore) FindByID(ctx context.Context, id int64) (*document.Record, error) {
	return s.findOne(ctx, `WHERE r.id = $1`, id)
}

func (s *PostgresRecordStore) FindByCandidateID(ctx context.Context, candidateID int64) (*document.Record, error) {
	return s.findOne(ctx, `WHERE r.candidate_id = $1`, candidateID)
}

func (s *PostgresRecordStore) FindByDeclarationHash(ctx context.Context, hash string) (*document.Record, error) {
	return s.findOne(ctx, `WHERE r.declaration_hash = $1`, hash)
}

const recordColumns = `
	r.id, r.candidate_id, r.access_token, r.token_expires_at,
	r.residency_issued_at,
	r.declaration_value, r.declaration_hash, r.declaration_ip,
	r.declaration_user_agent, r.declaration_device, r.declared_at,
	r.dependents, r.status,
	r.first_upload_at, r.last_upload_at, r.completed_at, r.link_sent_at`

func (s *PostgresRecordStore) findOne(ctx context.Context, where string, arg any) (*document.Record, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM document_records r `+where, arg)
	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("select document record: %w", err)
	}
	if err := s.loadSlots(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *PostgresRecordStore) List(ctx context.Context) ([]*document.Record, error) {
	rows, err := s.pool.Query(ctx, `
SELECT `+recordColumns+`
FROM document_records r
ORDER BY COALESCE(r.last_upload_at, r.link_sent_at) DESC`)
	if err != nil {
		return nil, fmt.Errorf("list document records: %w", err)
	}
	defer rows.Close()

	var records []*document.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list document records: %w", err)
	}
	for _, record := range records {
		if err := s.loadSlots(ctx, record); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func (s *PostgresRecordStore) UpsertSlot(ctx context.Context, recordID int64, t document.Type, slot document.Slot, uploadedAt time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin slot tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
INSERT INTO document_slots (record_id, type, url, validated, rejected, rejection_reason, uploaded_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (record_id, type) DO UPDATE SET
	url = EXCLUDED.url,
	validated = EXCLUDED.validated,
	rejected = EXCLUDED.rejected,
	rejection_reason = EXCLUDED.rejection_reason,
	uploaded_at = EXCLUDED.uploaded_at`,
		recordID, string(t), slot.URL, slot.Validated, slot.Rejected, slot.RejectionReason, uploadedAt)
	if err != nil {
		return fmt.Errorf("upsert document slot: %w", err)
	}

	tag, err := tx.Exec(ctx, `
UPDATE document_records SET
	first_upload_at = COALESCE(first_upload_at, $2),
	last_upload_at = $2
WHERE id = $1`, recordID, uploadedAt)
	if err != nil {
		return fmt.Errorf("stamp upload times: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return tx.Commit(ctx)
}

func (s *PostgresRecordStore) UpdateSlot(ctx context.Context, recordID int64, t document.Type, slot document.Slot) error {
	tag, err := s.pool.Exec(ctx, `
INSERT INTO document_slots (record_id, type, url, validated, rejected, rejection_reason)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (record_id, type) DO UPDATE SET
	url = EXCLUDED.url,
	validated = EXCLUDED.validated,
	rejected = EXCLUDED.rejected,
	rejection_reason = EXCLUDED.rejection_reason`,
		recordID, string(t), slot.URL, slot.Validated, slot.Rejected, slot.RejectionReason)
	if err != nil {
		return fmt.Errorf("update document slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresRecordStore) ValidateAllSlots(ctx context.Context, recordID int64, approved bool, reason *string) (int, error) {
	tag, err := s.pool.Exec(ctx, `
UPDATE document_slots SET
	validated = $2,
	rejected = NOT $2,
	rejection_reason = $3
WHERE record_id = $1 AND url IS NOT NULL AND url <> ''`, recordID, approved, reason)
	if err != nil {
		return 0, fmt.Errorf("validate all slots: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresRecordStore) Update(ctx context.Context, record *document.Record) error {
	dependents, err := json.Marshal(dependentsOrEmpty(record.Dependents))
	if err != nil {
		return fmt.Errorf("marshal dependents: %w", err)
	}

	var declValue, declHash, declIP, declUA, declDevice *string
	var declaredAt *time.Time
	if d := record.Declaration; d != nil {
		v := string(d.Value)
		declValue, declHash, declIP, declUA, declDevice = &v, &d.Hash, &d.IP, &d.UserAgent, &d.Device
		at := d.DeclaredAt
		declaredAt = &at
	}

	tag, err := s.pool.Exec(ctx, `
UPDATE document_records SET
	access_token = $2,
	token_expires_at = $3,
	residency_issued_at = $4,
	declaration_value = $5,
	declaration_hash = $6,
	declaration_ip = $7,
	declaration_user_agent = $8,
	declaration_device = $9,
	declared_at = $10,
	dependents = $11,
	status = $12,
	completed_at = $13,
	link_sent_at = $14
WHERE id = $1`,
		record.ID, record.AccessToken, record.TokenExpiresAt, record.ResidencyIssuedAt,
		declValue, declHash, declIP, declUA, declDevice, declaredAt,
		dependents, string(record.Status), record.CompletedAt, record.LinkSentAt)
	if err != nil {
		return fmt.Errorf("update document record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresRecordStore) loadSlots(ctx context.Context, record *document.Record) error {
	rows, err := s.pool.Query(ctx, `
SELECT type, url, validated, rejected, rejection_reason
FROM document_slots
WHERE record_id = $1`, record.ID)
	if err != nil {
		return fmt.Errorf("load document slots: %w", err)
	}
	defer rows.Close()

	record.Slots = make(map[document.Type]document.Slot)
	for rows.Next() {
		var t string
		var slot document.Slot
		if err := rows.Scan(&t, &slot.URL, &slot.Validated, &slot.Rejected, &slot.RejectionReason); err != nil {
			return fmt.Errorf("scan document slot: %w", err)
		}
		record.Slots[document.Type(t)] = slot
	}
	return rows.Err()
}

func scanRecord(row pgx.Row) (*document.Record, error) {
	var (
		record     document.Record
		declValue  *string
		declHash   *string
		declIP     *string
		declUA     *string
		declDevice *string
		declaredAt *time.Time
		dependents []byte
		status     string
	)
	err := row.Scan(
		&record.ID, &record.CandidateID, &record.AccessToken, &record.TokenExpiresAt,
		&record.ResidencyIssuedAt,
		&declValue, &declHash, &declIP, &declUA, &declDevice, &declaredAt,
		&dependents, &status,
		&record.FirstUploadAt, &record.LastUploadAt, &record.CompletedAt, &record.LinkSentAt,
	)
	if err != nil {
		return nil, err
	}
	record.Status = document.RecordStatus(status)
	if declValue != nil && declaredAt != nil {
		record.Declaration = &document.Declaration{
			Value:      document.EthnicityValue(*declValue),
			Hash:       deref(declHash),
			IP:         deref(declIP),
			UserAgent:  deref(declUA),
			Device:     deref(declDevice),
			DeclaredAt: *declaredAt,
		}
	}
	if err := json.Unmarshal(dependents, &record.Dependents); err != nil {
		return nil, fmt.Errorf("unmarshal dependents: %w", err)
	}
	return &record, nil
}

func dependentsOrEmpty(deps []document.Dependent) []document.Dependent {
	if deps == nil {
		return []document.Dependent{}
	}
	return deps
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// PostgresCredentialStore persists credentials in document_credentials.
type PostgresCredentialStore struct {
	pool *pgxpool.Pool
}

func NewPostgresCredentialStore(pool *pgxpool.Pool) *PostgresCredentialStore {
	return &PostgresCredentialStore{pool: pool}
}

func (s *PostgresCredentialStore) Create(ctx context.Context, cred *document.Credential) error {
	err := s.pool.QueryRow(ctx, `
INSERT INTO document_credentials (candidate_id, cpf, password, active, expires_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`,
		cred.CandidateID, cred.CPF, cred.Password, cred.Active, cred.ExpiresAt, cred.CreatedAt,
	).Scan(&cred.ID)
	if err != nil {
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

const credentialColumns = `id, candidate_id, cpf, password, active, expires_at, created_at`

func (s *PostgresCredentialStore) FindActiveByCPF(ctx context.Context, cpf string) (*document.Credential, error) {
	return s.findOne(ctx, `WHERE cpf = $1 AND active ORDER BY created_at DESC LIMIT 1`, cpf)
}

func (s *PostgresCredentialStore) FindActiveByCandidateID(ctx context.Context, candidateID int64) (*document.Credential, error) {
	return s.findOne(ctx, `WHERE candidate_id = $1 AND active ORDER BY created_at DESC LIMIT 1`, candidateID)
}

func (s *PostgresCredentialStore) findOne(ctx context.Context, where string, arg any) (*document.Credential, error) {
	var cred document.Credential
	err := s.pool.QueryRow(ctx, `SELECT `+credentialColumns+` FROM document_credentials `+where, arg).Scan(
		&cred.ID, &cred.CandidateID, &cred.CPF, &cred.Password,
		&cred.Active, &cred.ExpiresAt, &cred.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("select credential: %w", err)
	}
	return &cred, nil
}

func (s *PostgresCredentialStore) DeactivateByCandidateID(ctx context.Context, candidateID int64) error {
	_, err := s.pool.Exec(ctx, `
UPDATE document_credentials SET active = FALSE WHERE candidate_id = $1`, candidateID)
	if err != nil {
		return fmt.Errorf("deactivate credentials: %w", err)
	}
	return nil
}
