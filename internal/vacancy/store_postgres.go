package vacancy

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
CREATE TABLE IF NOT EXISTS vagas (
	id BIGSERIAL PRIMARY KEY,
	titulo TEXT NOT NULL,
	tipo_contrato TEXT NOT NULL DEFAULT '',
	endereco TEXT NOT NULL DEFAULT '',
	descricao TEXT NOT NULL DEFAULT '',
	requisitos TEXT NOT NULL DEFAULT '',
	diferenciais TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'ativa',
	criado_em TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_vagas_status ON vagas(status);
`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("execute vagas schema ddl: %w", err)
	}
	return nil
}

const columns = `id, titulo, tipo_contrato, endereco, descricao, requisitos, diferenciais, status, criado_em`

func (s *PostgresStore) Create(ctx context.Context, v *Vacancy) error {
	err := s.pool.QueryRow(ctx, `
INSERT INTO vagas (titulo, tipo_contrato, endereco, descricao, requisitos, diferenciais, status, criado_em)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id`,
		v.Titulo, v.TipoContrato, v.Endereco, v.Descricao, v.Requisitos, v.Diferenciais,
		string(v.Status), v.CriadoEm,
	).Scan(&v.ID)
	if err != nil {
		return fmt.Errorf("insert vaga: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*Vacancy, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+columns+` FROM vagas WHERE id = $1`, id)
	return scanVacancy(row)
}

func scanVacancy(row pgx.Row) (*Vacancy, error) {
	var v Vacancy
	var status string
	err := row.Scan(&v.ID, &v.Titulo, &v.TipoContrato, &v.Endereco, &v.Descricao,
		&v.Requisitos, &v.Diferenciais, &status, &v.CriadoEm)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("select vaga: %w", err)
	}
	v.Status = Status(status)
	return &v, nil
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]*Vacancy, error) {
	status := filter.Status
	if status == "" {
		status = string(StatusAtiva)
	}

	query := `SELECT ` + columns + ` FROM vagas`
	var args []any
	var where []string
	if status != "all" {
		args = append(args, status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if q := filter.Query; q != "" {
		args = append(args, "%"+q+"%")
		where = append(where, fmt.Sprintf("(titulo ILIKE $%d OR descricao ILIKE $%d)", len(args), len(args)))
	}
	for i, clause := range where {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query += " ORDER BY criado_em DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list vagas: %w", err)
	}
	defer rows.Close()

	var out []*Vacancy
	for rows.Next() {
		v, err := scanVacancy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, v *Vacancy) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE vagas SET
	titulo = $2, tipo_contrato = $3, endereco = $4, descricao = $5,
	requisitos = $6, diferenciais = $7, status = $8
WHERE id = $1`,
		v.ID, v.Titulo, v.TipoContrato, v.Endereco, v.Descricao,
		v.Requisitos, v.Diferenciais, string(v.Status))
	if err != nil {
		return fmt.Errorf("update vaga: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM vagas WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete vaga: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
