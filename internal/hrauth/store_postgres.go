package hrauth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"conosco/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS hr_users (
	id BIGSERIAL PRIMARY KEY,
	nome TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("execute hr_users schema ddl: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, user *User) error {
	err := s.pool.QueryRow(ctx, `
INSERT INTO hr_users (nome, email, password_hash, role, created_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`,
		user.Nome, strings.ToLower(user.Email), user.PasswordHash, string(user.Role), user.CreatedAt,
	).Scan(&user.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert hr user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, nome, email, password_hash, role, created_at
FROM hr_users WHERE email = $1`, strings.ToLower(email))
	return scanUser(row)
}

func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*User, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, nome, email, password_hash, role, created_at
FROM hr_users WHERE id = $1`, id)
	return scanUser(row)
}

func scanUser(row pgx.Row) (*User, error) {
	var user User
	var role string
	err := row.Scan(&user.ID, &user.Nome, &user.Email, &user.PasswordHash, &role, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("select hr user: %w", err)
	}
	user.Role = Role(role)
	return &user, nil
}
