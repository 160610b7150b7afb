// Package service orchestrates the admission document pipeline: credential
// issuance, candidate sessions, validated uploads and the HR review flow.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"log/slog"
	"time"

	"conosco/internal/audit"
	"conosco/internal/document"
	"conosco/internal/document/imagecheck"
	"conosco/internal/document/metrics"
	"conosco/internal/document/ocrcheck"
	"conosco/internal/document/photo"
	"conosco/internal/document/session"
	"conosco/internal/platform/storage"
)

// RecordStore is the persistence surface for document records.
type RecordStore interface {
	Create(ctx context.Context, record *document.Record) error
	FindByID(ctx context.Context, id int64) (*document.Record, error)
	FindByCandidateID(ctx context.Context, candidateID int64) (*document.Record, error)
	FindByDeclarationHash(ctx context.Context, hash string) (*document.Record, error)
	List(ctx context.Context) ([]*document.Record, error)
	UpsertSlot(ctx context.Context, recordID int64, t document.Type, slot document.Slot, uploadedAt time.Time) error
	UpdateSlot(ctx context.Context, recordID int64, t document.Type, slot document.Slot) error
	ValidateAllSlots(ctx context.Context, recordID int64, approved bool, reason *string) (int, error)
	Update(ctx context.Context, record *document.Record) error
}

// CredentialStore is the persistence surface for candidate credentials.
type CredentialStore interface {
	Create(ctx context.Context, cred *document.Credential) error
	FindActiveByCPF(ctx context.Context, cpf string) (*document.Credential, error)
	FindActiveByCandidateID(ctx context.Context, candidateID int64) (*document.Credential, error)
	DeactivateByCandidateID(ctx context.Context, candidateID int64) error
}

// Candidate carries the slice of candidate data the pipeline needs. Vaga is
// the title of the vacancy the candidate applied to, empty for talent-pool
// entries.
type Candidate struct {
	ID       int64
	Nome     string
	CPF      string
	Email    string
	Telefone string
	Status   string
	Vaga     string
}

// CandidateDirectory looks up candidates and mirrors pipeline state, the
// funnel status and the self-declared ethnicity, onto their application row.
type CandidateDirectory interface {
	Get(ctx context.Context, id int64) (*Candidate, error)
	SetStatus(ctx context.Context, id int64, status string) error
	SetEthnicity(ctx context.Context, id int64, value string) error
}

// Candidate statuses the pipeline mirrors.
const (
	candidateStatusApproved     = "aprovado"
	candidateStatusDocsSent     = "documentos_enviados"
	candidateStatusDocsApproved = "documentos_aprovados"
	candidateStatusDocsRejected = "documentos_rejeitados"
)

// Notifier delivers candidate and HR messages. Implementations must be safe
// for concurrent use; the service calls them from goroutines.
type Notifier interface {
	SendCredentials(ctx context.Context, to Candidate, cpf, password, loginURL string) error
	NotifyDocumentsComplete(ctx context.Context, cand Candidate) error
	NotifyDocumentRejected(ctx context.Context, cand Candidate, docName, reason string) error
}

// AdmissionExporter pushes an approved candidate to the admission system.
type AdmissionExporter interface {
	Export(ctx context.Context, candidateID int64) error
}

// ImageValidator scores an uploaded document image.
type ImageValidator interface {
	Validate(data []byte) imagecheck.Result
}

// ResidencyValidator OCRs and checks a residency proof.
type ResidencyValidator interface {
	Validate(ctx context.Context, image []byte, candidateName string) ocrcheck.Result
}

// PhotoNormalizer converts a badge photo to the 3:4 format.
type PhotoNormalizer func(data []byte) ([]byte, photo.Dimensions, error)

// Service wires the pipeline together. Construct with New; collaborators
// that are optional (notifier, exporter, metrics) default to no-ops.
type Service struct {
	records    RecordStore
	creds      CredentialStore
	sessions   session.Store
	storage    storage.Store
	images     ImageValidator
	residency  ResidencyValidator
	photo      PhotoNormalizer
	candidates CandidateDirectory
	notifier   Notifier
	exporter   AdmissionExporter
	auditor    audit.Recorder
	metrics    *metrics.Metrics
	logger     *slog.Logger

	loginURL          string
	declarationSecret []byte
	sessionTTL        time.Duration
	credentialTTL     time.Duration
	now               func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithExporter(e AdmissionExporter) Option {
	return func(s *Service) { s.exporter = e }
}

func WithAuditor(a audit.Recorder) Option {
	return func(s *Service) { s.auditor = a }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithResidencyValidator(v ResidencyValidator) Option {
	return func(s *Service) { s.residency = v }
}

func WithPhotoNormalizer(n PhotoNormalizer) Option {
	return func(s *Service) { s.photo = n }
}

func WithLoginURL(url string) Option {
	return func(s *Service) { s.loginURL = url }
}

func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) { s.sessionTTL = ttl }
}

func WithCredentialTTL(ttl time.Duration) Option {
	return func(s *Service) { s.credentialTTL = ttl }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(
	records RecordStore,
	creds CredentialStore,
	sessions session.Store,
	files storage.Store,
	images ImageValidator,
	candidates CandidateDirectory,
	declarationSecret []byte,
	opts ...Option,
) *Service {
	s := &Service{
		records:           records,
		creds:             creds,
		sessions:          sessions,
		storage:           files,
		images:            images,
		candidates:        candidates,
		declarationSecret: declarationSecret,
		photo:             photo.Normalize,
		logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
		sessionTTL:        24 * time.Hour,
		credentialTTL:     30 * 24 * time.Hour,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// randomToken returns n random bytes hex-encoded.
func randomToken(n int) string {
	buf := make([]byte, n)
	// rand.Read never fails on supported platforms.
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func (s *Service) audit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	s.auditor.Record(ctx, event)
}
