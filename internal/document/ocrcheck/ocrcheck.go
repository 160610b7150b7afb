// Package ocrcheck validates residency proofs: it OCRs the image, extracts
// the most recent plausible date as the issue date and checks recency and
// ownership.
package ocrcheck

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"conosco/internal/platform/ocr"
)

// Result is the outcome of a residency-proof validation run. IsValid is true
// only when Issues is empty.
type Result struct {
	IsValid         bool       `json:"isValid"`
	DataEmissao     *time.Time `json:"dataEmissao,omitempty"`
	DiasAtras       *int       `json:"diasAtras,omitempty"`
	TipoComprovante string     `json:"tipoComprovante"`
	Issues          []string   `json:"issues"`
}

// maxAgeDays is how old a residency proof may be. Exactly maxAgeDays is still
// accepted.
const maxAgeDays = 90

type providerType struct {
	keywords []string
	name     string
}

// Known provider vocabularies, matched against the lower-cased OCR text.
var providerTypes = []providerType{
	{[]string{"energia", "eletrica", "neoenergia", "celpe", "cemig", "copel", "cpfl"}, "Conta de Luz"},
	{[]string{"agua", "saneamento", "compesa", "sabesp", "cedae"}, "Conta de Água"},
	{[]string{"internet", "banda larga", "fibra", "oi", "vivo", "tim", "claro", "net"}, "Conta de Internet"},
	{[]string{"telefone", "telefonia", "celular"}, "Conta de Telefone"},
	{[]string{"gas", "comgas", "gaspetro"}, "Conta de Gás"},
	{[]string{"condominio", "taxa condominial"}, "Conta de Condomínio"},
}

var (
	dayFirstPattern  = regexp.MustCompile(`(\d{1,2})[/\-.](\d{1,2})[/\-.](\d{4})`)
	yearFirstPattern = regexp.MustCompile(`(\d{4})[/\-.](\d{1,2})[/\-.](\d{1,2})`)
)

// Validator runs OCR through the configured recognizer and applies the
// residency-proof rules.
type Validator struct {
	recognizer ocr.Recognizer
	language   string
	now        func() time.Time
}

// Option configures a Validator.
type Option func(*Validator)

// WithClock overrides the time source; tests pin "today" with it.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		v.now = now
	}
}

func New(recognizer ocr.Recognizer, language string, opts ...Option) *Validator {
	v := &Validator{
		recognizer: recognizer,
		language:   language,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate OCRs the image and checks issue-date recency and a best-effort
// owner-name match. OCR engine failures yield an invalid result with a
// generic retryable issue rather than an error, matching the
// validate-before-persist contract of the upload flow.
func (v *Validator) Validate(ctx context.Context, image []byte, candidateName string) Result {
	text, err := v.recognizer.Recognize(ctx, image, v.language)
	if err != nil {
		return Result{
			IsValid: false,
			Issues:  []string{"Erro ao processar documento. Verifique se a imagem está legível e tente novamente."},
		}
	}
	text = strings.ToLower(text)

	issues := []string{}

	// Provider classification is advisory: unknown providers never fail the
	// document on their own.
	tipo := detectProvider(text)
	if tipo == "" {
		tipo = "Desconhecido"
	}

	dates := extractDates(text, v.now())
	if len(dates) == 0 {
		return Result{
			IsValid:         false,
			TipoComprovante: tipo,
			Issues:          []string{"Nenhuma data foi encontrada no documento. Verifique se a imagem está legível."},
		}
	}

	// The most recent plausible date is presumed to be the issue date.
	sort.Slice(dates, func(i, j int) bool { return dates[i].After(dates[j]) })
	issueDate := dates[0]

	today := startOfDay(v.now())
	daysAgo := int(today.Sub(startOfDay(issueDate)).Hours() / 24)

	if daysAgo > maxAgeDays {
		issues = append(issues, fmt.Sprintf(
			"Comprovante muito antigo (%d dias atrás). Envie um comprovante de até 3 meses.", daysAgo))
	} else if daysAgo < 0 {
		issues = append(issues, "Data do comprovante está no futuro. Verifique se a imagem está correta.")
	}

	if !nameMatches(text, candidateName) {
		issues = append(issues, "O nome do candidato não foi encontrado no comprovante. Verifique se o documento está em seu nome.")
	}

	return Result{
		IsValid:         len(issues) == 0,
		DataEmissao:     &issueDate,
		DiasAtras:       &daysAgo,
		TipoComprovante: tipo,
		Issues:          issues,
	}
}

func detectProvider(text string) string {
	for _, pt := range providerTypes {
		for _, kw := range pt.keywords {
			if strings.Contains(text, kw) {
				return pt.name
			}
		}
	}
	return ""
}

// extractDates pulls every date-like substring, in day-first and year-first
// styles, keeping only plausible calendar dates within (2000, now.Year()+1].
func extractDates(text string, now time.Time) []time.Time {
	seen := make(map[time.Time]struct{})
	var dates []time.Time

	add := func(year, month, day int) {
		if year <= 2000 || year > now.Year()+1 {
			return
		}
		if month < 1 || month > 12 || day < 1 || day > 31 {
			return
		}
		d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		// time.Date normalizes overflows (e.g. Feb 31); reject those.
		if d.Day() != day || d.Month() != time.Month(month) {
			return
		}
		if _, ok := seen[d]; ok {
			return
		}
		seen[d] = struct{}{}
		dates = append(dates, d)
	}

	for _, m := range dayFirstPattern.FindAllStringSubmatch(text, -1) {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		add(year, month, day)
	}
	for _, m := range yearFirstPattern.FindAllStringSubmatch(text, -1) {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		add(year, month, day)
	}

	return dates
}

// nameMatches is a best-effort owner check: at least min(2, tokens) of the
// candidate's name tokens longer than 2 characters must appear in the text.
func nameMatches(text, candidateName string) bool {
	var tokens []string
	for _, part := range strings.Fields(strings.ToLower(strings.TrimSpace(candidateName))) {
		if len([]rune(part)) > 2 {
			tokens = append(tokens, part)
		}
	}
	if len(tokens) == 0 {
		return false
	}

	required := 2
	if len(tokens) < required {
		required = len(tokens)
	}

	found := 0
	for _, token := range tokens {
		if strings.Contains(text, token) {
			found++
		}
	}
	return found >= required
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
