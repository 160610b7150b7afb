package lgpd

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"conosco/pkg/platform/sentinel"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS lgpd_requests (
	id BIGSERIAL PRIMARY KEY,
	tipo TEXT NOT NULL,
	email TEXT NOT NULL,
	cpf TEXT,
	status TEXT NOT NULL,
	code TEXT NOT NULL,
	code_sent_at TIMESTAMPTZ NOT NULL,
	code_validated_at TIMESTAMPTZ,
	motivo TEXT,
	ip TEXT NOT NULL DEFAULT '',
	user_agent TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_lgpd_requests_email ON lgpd_requests(LOWER(email));
CREATE INDEX IF NOT EXISTS idx_lgpd_requests_status ON lgpd_requests(status);
`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("execute lgpd schema ddl: %w", err)
	}
	return nil
}

const columns = `id, tipo, email, cpf, status, code, code_sent_at, code_validated_at, motivo, ip, user_agent, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, req *Request) error {
	err := s.pool.QueryRow(ctx, `
INSERT INTO lgpd_requests (tipo, email, cpf, status, code, code_sent_at, code_validated_at, motivo, ip, user_agent, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING id`,
		string(req.Tipo), req.Email, req.CPF, string(req.Status), req.Code, req.CodeSentAt,
		req.CodeValidatedAt, req.Motivo, req.IP, req.UserAgent, req.CreatedAt, req.UpdatedAt,
	).Scan(&req.ID)
	if err != nil {
		return fmt.Errorf("insert lgpd request: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*Request, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+columns+` FROM lgpd_requests WHERE id = $1`, id)
	return scanRequest(row)
}

func (s *PostgresStore) FindActiveByEmail(ctx context.Context, email string) (*Request, error) {
	row := s.pool.QueryRow(ctx, `
SELECT `+columns+` FROM lgpd_requests
WHERE LOWER(email) = LOWER($1) AND status IN ($2, $3)
ORDER BY created_at DESC
LIMIT 1`,
		email, string(StatusPendenteVerificacao), string(StatusVerificado))
	return scanRequest(row)
}

func scanRequest(row pgx.Row) (*Request, error) {
	var req Request
	var tipo, status string
	err := row.Scan(&req.ID, &tipo, &req.Email, &req.CPF, &status, &req.Code, &req.CodeSentAt,
		&req.CodeValidatedAt, &req.Motivo, &req.IP, &req.UserAgent, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("select lgpd request: %w", err)
	}
	req.Tipo = RequestType(tipo)
	req.Status = Status(status)
	return &req, nil
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]*Request, error) {
	query := `SELECT ` + columns + ` FROM lgpd_requests`
	var args []any
	var where []string
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Tipo != "" {
		args = append(args, string(filter.Tipo))
		where = append(where, fmt.Sprintf("tipo = $%d", len(args)))
	}
	for i, clause := range where {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list lgpd requests: %w", err)
	}
	defer rows.Close()

	var out []*Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, req *Request) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE lgpd_requests SET
	status = $2, code = $3, code_sent_at = $4, code_validated_at = $5,
	motivo = $6, updated_at = $7
WHERE id = $1`,
		req.ID, string(req.Status), req.Code, req.CodeSentAt, req.CodeValidatedAt,
		req.Motivo, req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update lgpd request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
