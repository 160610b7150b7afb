package ocrcheck

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type stubRecognizer struct {
	text string
	err  error
}

func (s *stubRecognizer) Recognize(_ context.Context, _ []byte, _ string) (string, error) {
	return s.text, s.err
}

type OCRCheckSuite struct {
	suite.Suite

	today time.Time
}

func TestOCRCheckSuite(t *testing.T) {
	suite.Run(t, new(OCRCheckSuite))
}

func (s *OCRCheckSuite) SetupTest() {
	s.today = time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC)
}

func (s *OCRCheckSuite) validator(text string) *Validator {
	return New(&stubRecognizer{text: text}, "por", WithClock(func() time.Time { return s.today }))
}

func (s *OCRCheckSuite) TestRecentProofAccepted() {
	issued := s.today.AddDate(0, 0, -10)
	text := fmt.Sprintf("NEOENERGIA distribuição de energia\nCliente: Maria Souza\nEmissão: %s", issued.Format("02/01/2006"))

	result := s.validator(text).Validate(context.Background(), []byte("img"), "Maria Souza")

	s.True(result.IsValid)
	s.Empty(result.Issues)
	s.Equal("Conta de Luz", result.TipoComprovante)
	require.NotNil(s.T(), result.DataEmissao)
	require.NotNil(s.T(), result.DiasAtras)
	s.Equal(10, *result.DiasAtras)
	s.Equal(time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC), *result.DataEmissao)
}

func (s *OCRCheckSuite) TestExactlyNinetyDaysOldAccepted() {
	issued := s.today.AddDate(0, 0, -90)
	text := fmt.Sprintf("compesa saneamento\ncliente joão pereira\ndata %s", issued.Format("02/01/2006"))

	result := s.validator(text).Validate(context.Background(), []byte("img"), "João Pereira")

	s.True(result.IsValid)
	s.Equal(90, *result.DiasAtras)
}

func (s *OCRCheckSuite) TestNinetyOneDaysOldRejected() {
	issued := s.today.AddDate(0, 0, -91)
	text := fmt.Sprintf("conta de energia elétrica\nana lima\nvencimento %s", issued.Format("02/01/2006"))

	result := s.validator(text).Validate(context.Background(), []byte("img"), "Ana Lima")

	s.False(result.IsValid)
	require.Len(s.T(), result.Issues, 1)
	s.Contains(result.Issues[0], "Comprovante muito antigo (91 dias atrás)")
}

func (s *OCRCheckSuite) TestFutureDateRejected() {
	issued := s.today.AddDate(0, 0, 5)
	text := fmt.Sprintf("sabesp conta de agua\ncarlos mendes\nemitida em %s", issued.Format("02/01/2006"))

	result := s.validator(text).Validate(context.Background(), []byte("img"), "Carlos Mendes")

	s.False(result.IsValid)
	require.Len(s.T(), result.Issues, 1)
	s.Contains(result.Issues[0], "futuro")
}

func (s *OCRCheckSuite) TestMostRecentDateWins() {
	// Reading period plus issue date: the most recent one is the issue date.
	text := "celpe energia\njosé santos\nperíodo 01/01/2026 a 31/01/2026\nemissão 10/02/2026"

	result := s.validator(text).Validate(context.Background(), []byte("img"), "José Santos")

	s.True(result.IsValid)
	s.Equal(time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC), *result.DataEmissao)
}

func (s *OCRCheckSuite) TestYearFirstDateFormat() {
	text := "vivo fibra internet\npedro costa\ndata de emissão: 2026-03-01"

	result := s.validator(text).Validate(context.Background(), []byte("img"), "Pedro Costa")

	s.True(result.IsValid)
	s.Equal("Conta de Internet", result.TipoComprovante)
	s.Equal(time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), *result.DataEmissao)
}

func (s *OCRCheckSuite) TestNoDateFound() {
	text := "comgas gás encanado\nsem data alguma"

	result := s.validator(text).Validate(context.Background(), []byte("img"), "Rita Alves")

	s.False(result.IsValid)
	s.Nil(result.DataEmissao)
	s.Nil(result.DiasAtras)
	s.Equal("Conta de Gás", result.TipoComprovante)
	require.Len(s.T(), result.Issues, 1)
	s.Contains(result.Issues[0], "Nenhuma data foi encontrada")
}

func (s *OCRCheckSuite) TestNameNotFoundRejected() {
	issued := s.today.AddDate(0, 0, -3)
	text := fmt.Sprintf("cemig energia\ntitular: outra pessoa\n%s", issued.Format("02/01/2006"))

	result := s.validator(text).Validate(context.Background(), []byte("img"), "Fernanda Ribeiro")

	s.False(result.IsValid)
	require.Len(s.T(), result.Issues, 1)
	s.Contains(result.Issues[0], "nome do candidato não foi encontrado")
}

func (s *OCRCheckSuite) TestUnknownProviderIsAdvisoryOnly() {
	issued := s.today.AddDate(0, 0, -1)
	text := fmt.Sprintf("boleto avulso\nlucas martins\n%s", issued.Format("02/01/2006"))

	result := s.validator(text).Validate(context.Background(), []byte("img"), "Lucas Martins")

	s.True(result.IsValid)
	s.Equal("Desconhecido", result.TipoComprovante)
}

func (s *OCRCheckSuite) TestRecognizerFailure() {
	v := New(&stubRecognizer{err: errors.New("engine crashed")}, "por",
		WithClock(func() time.Time { return s.today }))

	result := v.Validate(context.Background(), []byte("img"), "Alguém")

	s.False(result.IsValid)
	require.Len(s.T(), result.Issues, 1)
	s.Contains(result.Issues[0], "Erro ao processar documento")
}

func TestExtractDatesFiltersImplausible(t *testing.T) {
	now := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)

	dates := extractDates("31/02/2025 12/05/1999 12/05/2040 10/03/2026", now)

	require.Len(t, dates, 1)
	assert.Equal(t, time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC), dates[0])
}

func TestNameMatches(t *testing.T) {
	assert.True(t, nameMatches("fatura em nome de maria clara souza", "Maria Clara Souza"))
	assert.True(t, nameMatches("titular ana", "Ana"))
	assert.False(t, nameMatches("titular josé almeida", "Maria Clara Souza"))
	assert.False(t, nameMatches("qualquer texto", "  "))
}
