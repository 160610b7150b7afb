package candidate

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"conosco/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// PostgresStore persists applications in the candidatos table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS candidatos (
	id BIGSERIAL PRIMARY KEY,
	vaga_id BIGINT,
	nome TEXT NOT NULL,
	email TEXT NOT NULL,
	telefone TEXT,
	cpf TEXT NOT NULL,
	data_nascimento TEXT,
	estado TEXT NOT NULL DEFAULT '',
	cidade TEXT NOT NULL DEFAULT '',
	bairro TEXT NOT NULL DEFAULT '',
	curriculo_url TEXT,
	linkedin_url TEXT,
	autodeclaracao TEXT,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_candidatos_cpf_vaga
	ON candidatos(cpf, COALESCE(vaga_id, 0));
CREATE INDEX IF NOT EXISTS idx_candidatos_status ON candidatos(status);
`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("execute candidatos schema ddl: %w", err)
	}
	return nil
}

const columns = `id, vaga_id, nome, email, telefone, cpf, data_nascimento, estado, cidade, bairro, curriculo_url, linkedin_url, autodeclaracao, status, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, cand *Candidate) error {
	err := s.pool.QueryRow(ctx, `
INSERT INTO candidatos (vaga_id, nome, email, telefone, cpf, data_nascimento, estado, cidade, bairro, curriculo_url, linkedin_url, autodeclaracao, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
RETURNING id`,
		cand.VagaID, cand.Nome, cand.Email, cand.Telefone, cand.NormalizedCPF(),
		cand.DataNascimento, cand.Estado, cand.Cidade, cand.Bairro,
		cand.CurriculoURL, cand.LinkedinURL, cand.Autodeclaracao,
		string(cand.Status), cand.CreatedAt, cand.UpdatedAt,
	).Scan(&cand.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert candidato: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*Candidate, error) {
	return s.findOne(ctx, `WHERE id = $1`, id)
}

func (s *PostgresStore) FindByCPFAndVacancy(ctx context.Context, cpf string, vagaID *int64) (*Candidate, error) {
	if vagaID == nil {
		return s.findOne(ctx, `WHERE cpf = $1 AND vaga_id IS NULL`, cpf)
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+columns+` FROM candidatos WHERE cpf = $1 AND vaga_id = $2`, cpf, *vagaID)
	return scanCandidate(row)
}

func (s *PostgresStore) FindByCPF(ctx context.Context, cpf string) ([]*Candidate, error) {
	return s.findMany(ctx, `WHERE cpf = $1`, cpf)
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) ([]*Candidate, error) {
	return s.findMany(ctx, `WHERE LOWER(email) = LOWER($1)`, email)
}

func (s *PostgresStore) findMany(ctx context.Context, where string, arg any) ([]*Candidate, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+columns+` FROM candidatos `+where, arg)
	if err != nil {
		return nil, fmt.Errorf("select candidatos: %w", err)
	}
	defer rows.Close()

	var out []*Candidate
	for rows.Next() {
		cand, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cand)
	}
	return out, rows.Err()
}

func (s *PostgresStore) findOne(ctx context.Context, where string, arg any) (*Candidate, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+columns+` FROM candidatos `+where, arg)
	return scanCandidate(row)
}

func scanCandidate(row pgx.Row) (*Candidate, error) {
	var cand Candidate
	var status string
	err := row.Scan(&cand.ID, &cand.VagaID, &cand.Nome, &cand.Email, &cand.Telefone,
		&cand.CPF, &cand.DataNascimento, &cand.Estado, &cand.Cidade, &cand.Bairro,
		&cand.CurriculoURL, &cand.LinkedinURL, &cand.Autodeclaracao,
		&status, &cand.CreatedAt, &cand.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("select candidato: %w", err)
	}
	cand.Status = Status(status)
	return &cand, nil
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]*Candidate, error) {
	query := `SELECT ` + columns + ` FROM candidatos`
	var args []any
	var where []string
	if filter.VagaID != nil {
		args = append(args, *filter.VagaID)
		where = append(where, fmt.Sprintf("vaga_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
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
		return nil, fmt.Errorf("list candidatos: %w", err)
	}
	defer rows.Close()

	var out []*Candidate
	for rows.Next() {
		cand, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cand)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, cand *Candidate) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE candidatos SET
	vaga_id = $2, nome = $3, email = $4, telefone = $5, cpf = $6,
	data_nascimento = $7, estado = $8, cidade = $9, bairro = $10,
	curriculo_url = $11, linkedin_url = $12, autodeclaracao = $13,
	status = $14, updated_at = $15
WHERE id = $1`,
		cand.ID, cand.VagaID, cand.Nome, cand.Email, cand.Telefone, cand.NormalizedCPF(),
		cand.DataNascimento, cand.Estado, cand.Cidade, cand.Bairro,
		cand.CurriculoURL, cand.LinkedinURL, cand.Autodeclaracao,
		string(cand.Status), cand.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update candidato: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM candidatos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete candidato: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
