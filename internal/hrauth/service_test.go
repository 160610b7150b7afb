package hrauth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	dErrors "conosco/pkg/domain-errors"
)

type HRAuthSuite struct {
	suite.Suite

	ctx    context.Context
	tokens *TokenService
	svc    *Service
}

func TestHRAuthSuite(t *testing.T) {
	suite.Run(t, new(HRAuthSuite))
}

func (s *HRAuthSuite) SetupTest() {
	s.ctx = context.Background()
	s.tokens = NewTokenService("test-signing-key", "conosco", time.Hour)
	s.svc = NewService(NewInMemoryStore(), s.tokens)
}

func (s *HRAuthSuite) TestLogin() {
	user, err := s.svc.CreateUser(s.ctx, "Ana Lima", "Ana@Empresa.com", "senha-forte", RoleAdmin)
	s.Require().NoError(err)
	s.NotEqual("senha-forte", user.PasswordHash)

	s.Run("valid credentials issue a verifiable token", func() {
		result, err := s.svc.Login(s.ctx, "ana@empresa.com", "senha-forte")
		s.Require().NoError(err)
		s.NotEmpty(result.Token)
		s.Equal(user.ID, result.User.ID)

		claims, err := s.tokens.ValidateToken(result.Token)
		s.Require().NoError(err)
		s.Equal("Ana Lima", claims.Name)
		s.Equal("ana@empresa.com", claims.Email)
	})

	s.Run("wrong password and unknown email are indistinguishable", func() {
		_, badPassword := s.svc.Login(s.ctx, "ana@empresa.com", "errada")
		_, badEmail := s.svc.Login(s.ctx, "ninguem@empresa.com", "errada")
		s.Require().Error(badPassword)
		s.Require().Error(badEmail)
		s.Equal(badPassword.Error(), badEmail.Error())
		s.True(dErrors.Is(badPassword, dErrors.CodeUnauthorized))
	})
}

func (s *HRAuthSuite) TestCreateUser() {
	s.Run("rejects short password", func() {
		_, err := s.svc.CreateUser(s.ctx, "Ana", "ana@empresa.com", "curta", RoleAdmin)
		s.True(dErrors.Is(err, dErrors.CodeValidationFailed))
	})

	s.Run("duplicate email conflicts", func() {
		_, err := s.svc.CreateUser(s.ctx, "Ana", "dupe@empresa.com", "senha-forte", RoleAdmin)
		s.Require().NoError(err)
		_, err = s.svc.CreateUser(s.ctx, "Outra Ana", "DUPE@empresa.com", "senha-forte", RoleAdmin)
		s.True(dErrors.Is(err, dErrors.CodeConflict))
	})

	s.Run("defaults role to recrutador", func() {
		user, err := s.svc.CreateUser(s.ctx, "Beto", "beto@empresa.com", "senha-forte", "")
		s.Require().NoError(err)
		s.Equal(RoleRecruta, user.Role)
	})
}

func (s *HRAuthSuite) TestEnsureUserIsIdempotent() {
	s.Require().NoError(s.svc.EnsureUser(s.ctx, "Seed", "seed@empresa.com", "senha-forte", RoleAdmin))
	s.Require().NoError(s.svc.EnsureUser(s.ctx, "Seed", "seed@empresa.com", "outra-senha-qualquer", RoleAdmin))

	// First password still wins.
	_, err := s.svc.Login(s.ctx, "seed@empresa.com", "senha-forte")
	s.NoError(err)
}

func TestTokenExpiry(t *testing.T) {
	tokens := NewTokenService("key", "conosco", time.Hour)
	tokens.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	user := &User{ID: 1, Nome: "Ana", Email: "ana@empresa.com"}
	signed, _, err := tokens.Generate(user)
	if err != nil {
		t.Fatal(err)
	}

	tokens.now = time.Now
	if _, err := tokens.ValidateToken(signed); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestTokenRejectsForeignKey(t *testing.T) {
	tokens := NewTokenService("key-a", "conosco", time.Hour)
	signed, _, err := tokens.Generate(&User{ID: 1, Nome: "Ana", Email: "a@b.c"})
	if err != nil {
		t.Fatal(err)
	}

	other := NewTokenService("key-b", "conosco", time.Hour)
	if _, err := other.ValidateToken(signed); err == nil {
		t.Fatal("expected token signed with a different key to be rejected")
	}
}
