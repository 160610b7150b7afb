package hrauth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	dErrors "conosco/pkg/domain-errors"
	"conosco/pkg/platform/sentinel"
)

type Service struct {
	store  Store
	tokens *TokenService
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, tokens *TokenService, opts ...Option) *Service {
	s := &Service{store: store, tokens: tokens, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *User
}

func errInvalidCredentials() error {
	return dErrors.New(dErrors.CodeUnauthorized, "Email ou senha inválidos")
}

// Login verifies the password and issues a JWT. Unknown email and wrong
// password return the same error.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, errInvalidCredentials()
	}

	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Burn a comparison so the timing matches the found path.
			_ = bcrypt.CompareHashAndPassword(
				[]byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"), []byte(password))
			return nil, errInvalidCredentials()
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.logger.Warn("hr login rejected", slog.String("email", email))
		return nil, errInvalidCredentials()
	}

	token, expiresAt, err := s.tokens.Generate(user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("hr login", slog.Int64("user_id", user.ID))
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// CreateUser registers a back-office account with a freshly hashed password.
func (s *Service) CreateUser(ctx context.Context, nome, email, password string, role Role) (*User, error) {
	nome = strings.TrimSpace(nome)
	email = strings.TrimSpace(strings.ToLower(email))
	var issues []string
	if nome == "" {
		issues = append(issues, "nome é obrigatório")
	}
	if email == "" || !strings.Contains(email, "@") {
		issues = append(issues, "email inválido")
	}
	if len(password) < 8 {
		issues = append(issues, "senha deve ter ao menos 8 caracteres")
	}
	if len(issues) > 0 {
		return nil, dErrors.WithIssues(dErrors.CodeValidationFailed, "usuário inválido", issues)
	}
	if role == "" {
		role = RoleRecruta
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &User{
		Nome:         nome,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    s.now(),
	}
	if err := s.store.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "email já cadastrado")
		}
		return nil, err
	}
	return user, nil
}

// EnsureUser creates the account when the email is unknown. Used to seed the
// initial admin from config.
func (s *Service) EnsureUser(ctx context.Context, nome, email, password string, role Role) error {
	if _, err := s.store.FindByEmail(ctx, strings.ToLower(email)); err == nil {
		return nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return err
	}
	_, err := s.CreateUser(ctx, nome, email, password, role)
	return err
}
