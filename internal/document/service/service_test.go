package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"conosco/internal/document"
	"conosco/internal/document/imagecheck"
	"conosco/internal/document/ocrcheck"
	"conosco/internal/document/photo"
	"conosco/internal/document/session"
	"conosco/internal/document/store"
	dErrors "conosco/pkg/domain-errors"
	"conosco/pkg/platform/sentinel"
)

type stubDirectory struct {
	mu          sync.Mutex
	candidates  map[int64]*Candidate
	statuses    []string
	ethnicities map[int64]string
}

func (d *stubDirectory) Get(_ context.Context, id int64) (*Candidate, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cand, ok := d.candidates[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *cand
	return &copied, nil
}

func (d *stubDirectory) SetStatus(_ context.Context, id int64, status string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cand, ok := d.candidates[id]; ok {
		cand.Status = status
		d.statuses = append(d.statuses, status)
	}
	return nil
}

func (d *stubDirectory) SetEthnicity(_ context.Context, id int64, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ethnicities == nil {
		d.ethnicities = make(map[int64]string)
	}
	d.ethnicities[id] = value
	return nil
}

func (d *stubDirectory) currentStatus(id int64) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.candidates[id].Status
}

func (d *stubDirectory) currentEthnicity(id int64) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ethnicities[id]
}

type stubNotifier struct {
	credentials chan string
	completed   chan int64
	rejections  chan string
}

func newStubNotifier() *stubNotifier {
	return &stubNotifier{
		credentials: make(chan string, 4),
		completed:   make(chan int64, 4),
		rejections:  make(chan string, 4),
	}
}

func (n *stubNotifier) SendCredentials(_ context.Context, _ Candidate, cpf, password, _ string) error {
	n.credentials <- cpf + "/" + password
	return nil
}

func (n *stubNotifier) NotifyDocumentsComplete(_ context.Context, cand Candidate) error {
	n.completed <- cand.ID
	return nil
}

func (n *stubNotifier) NotifyDocumentRejected(_ context.Context, _ Candidate, docName, reason string) error {
	n.rejections <- docName + ": " + reason
	return nil
}

type stubExporter struct {
	exported chan int64
}

func (e *stubExporter) Export(_ context.Context, candidateID int64) error {
	e.exported <- candidateID
	return nil
}

type stubImages struct {
	fail   bool
	issues []string
}

func (i *stubImages) Validate(_ []byte) imagecheck.Result {
	if i.fail {
		return imagecheck.Result{IsValid: false, Score: 20, Issues: i.issues}
	}
	return imagecheck.Result{IsValid: true, Score: 100, Issues: []string{}}
}

type stubResidency struct {
	result ocrcheck.Result
}

func (r *stubResidency) Validate(_ context.Context, _ []byte, _ string) ocrcheck.Result {
	return r.result
}

type stubStorage struct {
	mu    sync.Mutex
	saved []string
}

func (s *stubStorage) Store(_ context.Context, _ []byte, folder, filename, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	url := "https://files.local/" + folder + "/" + filename
	s.saved = append(s.saved, url)
	return url, nil
}

func (s *stubStorage) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

type ServiceSuite struct {
	suite.Suite

	ctx       context.Context
	records   *store.MemoryRecordStore
	creds     *store.MemoryCredentialStore
	sessions  *session.MemoryStore
	dir       *stubDirectory
	notifier  *stubNotifier
	exporter  *stubExporter
	images    *stubImages
	residency *stubResidency
	files     *stubStorage
	svc       *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.records = store.NewMemoryRecordStore()
	s.creds = store.NewMemoryCredentialStore()
	s.sessions = session.NewMemoryStore()
	s.dir = &stubDirectory{candidates: map[int64]*Candidate{
		1: {ID: 1, Nome: "Maria Silva", CPF: "123.456.789-01", Email: "maria@example.com", Telefone: "81999990000", Status: "aprovado", Vaga: "Analista Fiscal"},
		2: {ID: 2, Nome: "João Souza", CPF: "987.654.321-00", Status: "novo"},
	}}
	s.notifier = newStubNotifier()
	s.exporter = &stubExporter{exported: make(chan int64, 4)}
	s.images = &stubImages{}
	issued := time.Now().AddDate(0, 0, -5)
	days := 5
	s.residency = &stubResidency{result: ocrcheck.Result{
		IsValid: true, DataEmissao: &issued, DiasAtras: &days, TipoComprovante: "Conta de Luz", Issues: []string{},
	}}
	s.files = &stubStorage{}

	s.svc = New(s.records, s.creds, s.sessions, s.files, s.images, s.dir,
		[]byte("test-secret"),
		WithNotifier(s.notifier),
		WithExporter(s.exporter),
		WithResidencyValidator(s.residency),
		WithPhotoNormalizer(func(data []byte) ([]byte, photo.Dimensions, error) {
			return data, photo.Dimensions{Width: 300, Height: 400}, nil
		}),
		WithLoginURL("https://jobs.example.com/documentos/login"),
	)
}

func (s *ServiceSuite) issueCredentials(candidateID int64) document.Credential {
	issue, err := s.svc.GenerateCredentials(s.ctx, "rh:9", candidateID, true)
	s.Require().NoError(err)
	return issue.Credential
}

func (s *ServiceSuite) wait(ch <-chan int64) int64 {
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		s.FailNow("timed out waiting for async notification")
		return 0
	}
}

func (s *ServiceSuite) waitString(ch <-chan string) string {
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		s.FailNow("timed out waiting for async notification")
		return ""
	}
}

func (s *ServiceSuite) TestGenerateCredentials() {
	s.Run("issues for approved candidate and creates the record", func() {
		issue, err := s.svc.GenerateCredentials(s.ctx, "rh:9", 1, true)
		s.Require().NoError(err)
		s.True(issue.Created)
		s.True(issue.Notified)
		s.Equal("12345678901", issue.Credential.CPF)
		s.Len(issue.Credential.Password, 7)
		s.Equal("Maria Silva", issue.Candidate.Nome)
		s.Equal("https://jobs.example.com/documentos/login", issue.LoginURL)

		record, err := s.records.FindByCandidateID(s.ctx, 1)
		s.Require().NoError(err)
		s.Equal(document.StatusPendente, record.Status)

		delivered := s.waitString(s.notifier.credentials)
		s.Contains(delivered, "12345678901/")
	})

	s.Run("is idempotent while the credential is active", func() {
		first := s.issueCredentials(1)
		issue, err := s.svc.GenerateCredentials(s.ctx, "rh:9", 1, true)
		s.Require().NoError(err)
		s.False(issue.Created)
		s.False(issue.Notified)
		s.Equal(first.Password, issue.Credential.Password)
	})

	s.Run("rejects a candidate that is not approved", func() {
		_, err := s.svc.GenerateCredentials(s.ctx, "rh:9", 2, true)
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeInvalidState))
	})

	s.Run("unknown candidate is not found", func() {
		_, err := s.svc.GenerateCredentials(s.ctx, "rh:9", 99, true)
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestGenerateCredentialsWithoutNotification() {
	issue, err := s.svc.GenerateCredentials(s.ctx, "rh:9", 1, false)
	s.Require().NoError(err)
	s.True(issue.Created)
	s.False(issue.Notified)
	select {
	case got := <-s.notifier.credentials:
		s.FailNow("unexpected credential delivery", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func (s *ServiceSuite) TestGenerateCredentialsStatusGate() {
	s.issueCredentials(1)

	s.Run("reuse survives pipeline status moves", func() {
		s.Require().NoError(s.dir.SetStatus(s.ctx, 1, "documentos_enviados"))
		issue, err := s.svc.GenerateCredentials(s.ctx, "rh:9", 1, true)
		s.Require().NoError(err)
		s.False(issue.Created)
	})

	s.Run("reuse is refused once the candidate leaves the pipeline", func() {
		s.Require().NoError(s.dir.SetStatus(s.ctx, 1, "reprovado"))
		_, err := s.svc.GenerateCredentials(s.ctx, "rh:9", 1, true)
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeInvalidState))
	})
}

func (s *ServiceSuite) TestLogin() {
	cred := s.issueCredentials(1)

	s.Run("valid credentials open a session", func() {
		result, err := s.svc.Login(s.ctx, "123.456.789-01", cred.Password)
		s.Require().NoError(err)
		s.Len(result.Token, 64)
		s.Equal("Maria Silva", result.Candidate.Nome)

		candidateID, err := s.svc.Resolve(s.ctx, result.Token)
		s.Require().NoError(err)
		s.Equal(int64(1), candidateID)
	})

	s.Run("wrong password and unknown cpf fail identically", func() {
		_, err1 := s.svc.Login(s.ctx, "12345678901", "WRONGPW")
		_, err2 := s.svc.Login(s.ctx, "00000000000", cred.Password)
		s.Require().Error(err1)
		s.Require().Error(err2)
		s.Equal(err1.Error(), err2.Error())
		s.True(dErrors.Is(err1, dErrors.CodeUnauthorized))
	})

	s.Run("logout invalidates the session", func() {
		result, err := s.svc.Login(s.ctx, "12345678901", cred.Password)
		s.Require().NoError(err)
		s.Require().NoError(s.svc.Logout(s.ctx, result.Token))
		_, err = s.svc.Resolve(s.ctx, result.Token)
		s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
	})
}

func (s *ServiceSuite) TestUploadValidationFailureWritesNothing() {
	s.issueCredentials(1)
	s.images.fail = true
	s.images.issues = []string{"Resolução muito baixa"}

	_, err := s.svc.Upload(s.ctx, 1, "identidade_frente", []byte("img"), "image/jpeg")
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeValidationFailed))
	s.Equal([]string{"Resolução muito baixa"}, dErrors.IssuesOf(err))

	s.Zero(s.files.count())
	record, err := s.records.FindByCandidateID(s.ctx, 1)
	s.Require().NoError(err)
	s.False(record.Slot(document.TypeIdentidadeFrente).Uploaded())
	s.Nil(record.FirstUploadAt)
}

func (s *ServiceSuite) TestUploadResidencyProofRunsOCR() {
	s.issueCredentials(1)

	s.Run("valid proof stores the issue date", func() {
		result, err := s.svc.Upload(s.ctx, 1, "comprovante_residencia", []byte("img"), "image/jpeg")
		s.Require().NoError(err)
		s.Require().NotNil(result.OCR)
		s.Equal("Conta de Luz", result.OCR.TipoComprovante)

		record, err := s.records.FindByCandidateID(s.ctx, 1)
		s.Require().NoError(err)
		s.Require().NotNil(record.ResidencyIssuedAt)
		s.True(record.Slot(document.TypeComprovanteResidencia).Uploaded())
	})

	s.Run("stale proof is rejected without persisting", func() {
		before := s.files.count()
		s.residency.result = ocrcheck.Result{
			IsValid: false,
			Issues:  []string{"Comprovante muito antigo (120 dias atrás). Envie um comprovante de até 3 meses."},
		}
		_, err := s.svc.Upload(s.ctx, 1, "comprovante_residencia", []byte("img"), "image/jpeg")
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeValidationFailed))
		s.Equal(before, s.files.count())
	})
}

func (s *ServiceSuite) uploadEverything(candidateID int64) {
	for _, t := range document.MandatoryTypes() {
		_, err := s.svc.Upload(s.ctx, candidateID, string(t), []byte("img"), "image/jpeg")
		s.Require().NoError(err, "upload %s", t)
	}
	_, err := s.svc.SubmitDeclaration(s.ctx, candidateID, "parda", true, "10.0.0.1",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64)")
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestCompletionTransitionsAndNotifiesOnce() {
	s.issueCredentials(1)
	s.uploadEverything(1)

	record, err := s.records.FindByCandidateID(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(document.StatusEnviados, record.Status)
	s.Require().NotNil(record.CompletedAt)
	s.Equal("documentos_enviados", s.dir.currentStatus(1))
	s.Equal(int64(1), s.wait(s.notifier.completed))

	completeness := record.Completeness()
	s.True(completeness.Completo)
	s.Equal(len(document.MandatoryTypes()), completeness.Enviados)
	s.Empty(completeness.Faltando)
}

func (s *ServiceSuite) TestDeclarationHashRoundTrip() {
	s.issueCredentials(1)
	result, err := s.svc.SubmitDeclaration(s.ctx, 1, "indigena", true, "10.0.0.2",
		"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)")
	s.Require().NoError(err)
	decl := result.Declaration
	s.Len(decl.Hash, 32)
	s.Equal(strings.ToUpper(decl.Hash), decl.Hash)
	s.Equal("Móvel", decl.Device)

	proof, err := s.svc.VerifyDeclaration(s.ctx, decl.Hash)
	s.Require().NoError(err)
	s.True(proof.Valid)
	s.Equal("Maria Silva", proof.Nome)
	s.Equal("Analista Fiscal", proof.Vaga)
	s.Equal(document.EthnicityIndigena, proof.Value)

	proof, err = s.svc.VerifyDeclaration(s.ctx, "DOESNOTEXIST")
	s.Require().NoError(err)
	s.False(proof.Valid)
	s.Empty(proof.Nome)
}

func (s *ServiceSuite) TestDeclarationRequiresAcceptedTerms() {
	s.issueCredentials(1)
	_, err := s.svc.SubmitDeclaration(s.ctx, 1, "parda", false, "10.0.0.1",
		"Mozilla/5.0 (Windows NT 10.0)")
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeValidationFailed))

	record, err := s.records.FindByCandidateID(s.ctx, 1)
	s.Require().NoError(err)
	s.Nil(record.Declaration)
}

func (s *ServiceSuite) TestDeclarationMirrorsOntoCandidate() {
	s.issueCredentials(1)
	result, err := s.svc.SubmitDeclaration(s.ctx, 1, "preta", true, "10.0.0.1",
		"Mozilla/5.0 (Windows NT 10.0)")
	s.Require().NoError(err)
	s.True(result.Completeness.Autodeclaracao)
	s.Equal("preta", s.dir.currentEthnicity(1))
}

func (s *ServiceSuite) TestReviewRejectionFailsRecord() {
	s.issueCredentials(1)
	s.uploadEverything(1)
	s.wait(s.notifier.completed)

	record, err := s.records.FindByCandidateID(s.ctx, 1)
	s.Require().NoError(err)

	s.Run("rejection requires a reason", func() {
		_, err := s.svc.ValidateDocument(s.ctx, "rh:9", record.ID, ReviewDecision{
			Type: "identidade_frente", Approved: false,
		})
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	})

	s.Run("rejecting one document fails the record", func() {
		updated, err := s.svc.ValidateDocument(s.ctx, "rh:9", record.ID, ReviewDecision{
			Type: "identidade_frente", Approved: false, Reason: "Documento ilegível",
		})
		s.Require().NoError(err)
		s.Equal(document.StatusRejeitado, updated.Status)
		s.Equal("documentos_rejeitados", s.dir.currentStatus(1))
		s.Contains(s.waitString(s.notifier.rejections), "Documento ilegível")
	})

	s.Run("re-upload reopens the rejected record", func() {
		_, err := s.svc.Upload(s.ctx, 1, "identidade_frente", []byte("img2"), "image/jpeg")
		s.Require().NoError(err)
		reopened, err := s.records.FindByCandidateID(s.ctx, 1)
		s.Require().NoError(err)
		s.Equal(document.StatusEnviados, reopened.Status)
	})
}

func (s *ServiceSuite) TestValidateAllApprovesAndExports() {
	s.issueCredentials(1)
	s.uploadEverything(1)
	s.wait(s.notifier.completed)

	record, err := s.records.FindByCandidateID(s.ctx, 1)
	s.Require().NoError(err)

	updated, touched, err := s.svc.ValidateAll(s.ctx, "rh:9", record.ID, ActionApprove, "")
	s.Require().NoError(err)
	s.Equal(len(document.MandatoryTypes()), touched)
	s.Equal(document.StatusAprovado, updated.Status)
	s.Equal("documentos_aprovados", s.dir.currentStatus(1))
	s.Equal(int64(1), s.wait(s.exporter.exported))

	// Reservista was never uploaded and stays untouched.
	s.False(updated.Slot(document.TypeReservista).Validated)
}

func (s *ServiceSuite) TestValidateAllRejectsWithReason() {
	s.issueCredentials(1)
	s.uploadEverything(1)
	s.wait(s.notifier.completed)

	record, err := s.records.FindByCandidateID(s.ctx, 1)
	s.Require().NoError(err)

	s.Run("rejection requires a reason", func() {
		_, _, err := s.svc.ValidateAll(s.ctx, "rh:9", record.ID, ActionReject, "  ")
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	})

	s.Run("unknown action is refused", func() {
		_, _, err := s.svc.ValidateAll(s.ctx, "rh:9", record.ID, "arquivar", "")
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeValidationFailed))
	})

	s.Run("rejecting fails every uploaded slot and the record", func() {
		updated, touched, err := s.svc.ValidateAll(s.ctx, "rh:9", record.ID, ActionReject, "documentos ilegíveis")
		s.Require().NoError(err)
		s.Equal(len(document.MandatoryTypes()), touched)
		s.Equal(document.StatusRejeitado, updated.Status)
		s.Equal("documentos_rejeitados", s.dir.currentStatus(1))

		slot := updated.Slot(document.TypeIdentidadeFrente)
		s.False(slot.Validated)
		s.True(slot.Rejected)
		s.Require().NotNil(slot.RejectionReason)
		s.Equal("documentos ilegíveis", *slot.RejectionReason)

		s.Contains(s.waitString(s.notifier.rejections), "documentos ilegíveis")
	})
}

func (s *ServiceSuite) TestValidateDocumentRequiresUpload() {
	s.issueCredentials(1)
	record, err := s.records.FindByCandidateID(s.ctx, 1)
	s.Require().NoError(err)

	_, err = s.svc.ValidateDocument(s.ctx, "rh:9", record.ID, ReviewDecision{
		Type: "ctps_digital", Approved: true,
	})
	s.True(dErrors.Is(err, dErrors.CodeInvalidState))
}

func (s *ServiceSuite) TestUploadPhotoNormalizes() {
	s.issueCredentials(1)
	result, err := s.svc.Upload(s.ctx, 1, "foto_3x4", []byte("photo"), "image/png")
	s.Require().NoError(err)
	s.Require().NotNil(result.Dimensions)
	s.Equal(300, result.Dimensions.Width)
	s.Equal(400, result.Dimensions.Height)
	s.True(strings.HasSuffix(result.URL, "1_foto_3x4.jpg"), result.URL)
}

func (s *ServiceSuite) TestAddDependent() {
	s.issueCredentials(1)

	deps, err := s.svc.AddDependent(s.ctx, 1, DependentUpload{
		Nome: "Pedro Silva", Idade: 4, Certidao: []byte("img"), CPFDoc: []byte("img2"),
	})
	s.Require().NoError(err)
	s.Require().Len(deps, 1)
	s.Equal("Pedro Silva", deps[0].Nome)
	s.Require().NotNil(deps[0].CPFURL)

	s.Run("dependents never affect completeness", func() {
		record, err := s.records.FindByCandidateID(s.ctx, 1)
		s.Require().NoError(err)
		s.False(record.Completeness().Completo)
	})

	s.Run("certidao is mandatory", func() {
		_, err := s.svc.AddDependent(s.ctx, 1, DependentUpload{Nome: "Ana", Idade: 2})
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	})
}

func (s *ServiceSuite) TestListRecordsJoinsCandidates() {
	s.issueCredentials(1)
	summaries, err := s.svc.ListRecords(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(summaries, 1)
	s.Equal("Maria Silva", summaries[0].Candidate.Nome)
	s.Equal(int64(1), summaries[0].Record.CandidateID)
}
