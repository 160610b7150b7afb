//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"conosco/internal/document"
	"conosco/internal/document/store"
	"conosco/pkg/platform/sentinel"
	"conosco/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	records  *store.PostgresRecordStore
	creds    *store.PostgresCredentialStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.records = store.NewPostgresRecordStore(s.postgres.Pool)
	s.creds = store.NewPostgresCredentialStore(s.postgres.Pool)
	s.Require().NoError(s.records.EnsureSchema(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(),
		"document_slots", "document_credentials", "document_records")
	s.Require().NoError(err)
}

func newRecord(candidateID int64) *document.Record {
	return &document.Record{
		CandidateID:    candidateID,
		AccessToken:    "tok",
		TokenExpiresAt: time.Now().Add(30 * 24 * time.Hour).UTC(),
		Status:         document.StatusPendente,
		LinkSentAt:     time.Now().UTC(),
	}
}

func (s *PostgresStoreSuite) TestRecordRoundTrip() {
	ctx := context.Background()
	record := newRecord(1)
	s.Require().NoError(s.records.Create(ctx, record))
	s.NotZero(record.ID)

	s.Require().ErrorIs(s.records.Create(ctx, newRecord(1)), sentinel.ErrConflict)

	url := "https://cdn.local/uploads/ident.jpg"
	uploadedAt := time.Now().UTC().Truncate(time.Millisecond)
	s.Require().NoError(s.records.UpsertSlot(ctx, record.ID, document.TypeIdentidadeFrente,
		document.Slot{URL: &url}, uploadedAt))

	record.Status = document.StatusEnviados
	record.Declaration = &document.Declaration{
		Value:      document.EthnicityPreta,
		Hash:       "DEADBEEF",
		IP:         "10.0.0.1",
		UserAgent:  "Mozilla/5.0",
		Device:     "Desktop",
		DeclaredAt: uploadedAt,
	}
	record.Dependents = []document.Dependent{
		{Nome: "Criança", Idade: 3, CertidaoURL: "https://cdn.local/cert.jpg", DataUpload: uploadedAt},
	}
	s.Require().NoError(s.records.Update(ctx, record))

	found, err := s.records.FindByCandidateID(ctx, 1)
	s.Require().NoError(err)
	s.Equal(document.StatusEnviados, found.Status)
	s.True(found.Slot(document.TypeIdentidadeFrente).Uploaded())
	s.Require().NotNil(found.FirstUploadAt)
	s.Require().NotNil(found.Declaration)
	s.Equal(document.EthnicityPreta, found.Declaration.Value)
	s.Len(found.Dependents, 1)
	s.Equal("Criança", found.Dependents[0].Nome)
}

func (s *PostgresStoreSuite) TestValidateAllSlotsOnlyTouchesUploaded() {
	ctx := context.Background()
	record := newRecord(2)
	s.Require().NoError(s.records.Create(ctx, record))

	url := "https://cdn.local/uploads/doc.jpg"
	now := time.Now().UTC()
	s.Require().NoError(s.records.UpsertSlot(ctx, record.ID, document.TypeCTPSDigital, document.Slot{URL: &url}, now))
	reason := "ilegível"
	s.Require().NoError(s.records.UpsertSlot(ctx, record.ID, document.TypeTituloEleitor,
		document.Slot{URL: &url, Rejected: true, RejectionReason: &reason}, now))

	touched, err := s.records.ValidateAllSlots(ctx, record.ID, true, nil)
	s.Require().NoError(err)
	s.Equal(2, touched)

	found, err := s.records.FindByID(ctx, record.ID)
	s.Require().NoError(err)
	titulo := found.Slot(document.TypeTituloEleitor)
	s.True(titulo.Validated)
	s.False(titulo.Rejected)
	s.Nil(titulo.RejectionReason)

	motivo := "documentos ilegíveis"
	touched, err = s.records.ValidateAllSlots(ctx, record.ID, false, &motivo)
	s.Require().NoError(err)
	s.Equal(2, touched)

	found, err = s.records.FindByID(ctx, record.ID)
	s.Require().NoError(err)
	ctps := found.Slot(document.TypeCTPSDigital)
	s.False(ctps.Validated)
	s.True(ctps.Rejected)
	s.Require().NotNil(ctps.RejectionReason)
	s.Equal(motivo, *ctps.RejectionReason)
}

func (s *PostgresStoreSuite) TestCredentialLifecycle() {
	ctx := context.Background()
	cred := &document.Credential{
		CandidateID: 3,
		CPF:         "98765432100",
		Password:    "AB2C3D4",
		Active:      true,
		ExpiresAt:   time.Now().Add(30 * 24 * time.Hour).UTC(),
		CreatedAt:   time.Now().UTC(),
	}
	s.Require().NoError(s.creds.Create(ctx, cred))

	found, err := s.creds.FindActiveByCPF(ctx, "98765432100")
	s.Require().NoError(err)
	s.Equal(cred.Password, found.Password)

	s.Require().NoError(s.creds.DeactivateByCandidateID(ctx, 3))
	_, err = s.creds.FindActiveByCandidateID(ctx, 3)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
