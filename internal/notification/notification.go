// Package notification delivers candidate and HR messages over email and
// WhatsApp. Channels are optional; an unconfigured channel logs a warning and
// is skipped so the pipeline never blocks on messaging config.
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"conosco/internal/document/service"
)

// EmailSender delivers one email.
type EmailSender interface {
	Send(ctx context.Context, to, toName, subject, plain, html string) error
}

// WhatsAppSender delivers one WhatsApp message to a Brazilian phone number.
type WhatsAppSender interface {
	Send(ctx context.Context, phone, body string) error
}

// Service fans messages out to the configured channels. It implements the
// document pipeline's Notifier.
type Service struct {
	email    EmailSender
	whatsapp WhatsAppSender
	hrEmail  string
	logger   *slog.Logger
}

type Option func(*Service)

func WithEmail(sender EmailSender) Option {
	return func(s *Service) { s.email = sender }
}

func WithWhatsApp(sender WhatsAppSender) Option {
	return func(s *Service) { s.whatsapp = sender }
}

// WithHREmail sets the inbox that receives completion alerts.
func WithHREmail(address string) Option {
	return func(s *Service) { s.hrEmail = address }
}

func New(logger *slog.Logger, opts ...Option) *Service {
	s := &Service{logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SendCredentials delivers the portal access data over every configured
// channel. Channels run concurrently; the first failure is returned.
func (s *Service) SendCredentials(ctx context.Context, to service.Candidate, cpf, password, loginURL string) error {
	subject := "Seus dados de acesso ao portal de documentos"
	plain := fmt.Sprintf(
		"Olá %s,\n\nSeus documentos de admissão já podem ser enviados.\n\nAcesse: %s\nCPF: %s\nSenha: %s\n\nA senha expira em 30 dias.",
		to.Nome, loginURL, formatCPF(cpf), password)
	html := fmt.Sprintf(
		`<p>Olá <strong>%s</strong>,</p><p>Seus documentos de admissão já podem ser enviados.</p><p><a href="%s">Acessar o portal</a></p><p>CPF: <strong>%s</strong><br>Senha: <strong>%s</strong></p><p>A senha expira em 30 dias.</p>`,
		to.Nome, loginURL, formatCPF(cpf), password)
	wa := fmt.Sprintf(
		"Olá %s! Seus documentos de admissão já podem ser enviados em %s. CPF: %s, senha: %s (expira em 30 dias).",
		to.Nome, loginURL, formatCPF(cpf), password)

	return s.fanOut(ctx, to, subject, plain, html, wa)
}

// NotifyDocumentsComplete alerts HR that a candidate finished uploading.
func (s *Service) NotifyDocumentsComplete(ctx context.Context, cand service.Candidate) error {
	if s.email == nil || s.hrEmail == "" {
		s.logger.Warn("hr completion alert skipped, email channel not configured",
			slog.Int64("candidate_id", cand.ID))
		return nil
	}
	subject := fmt.Sprintf("Documentos completos: %s", cand.Nome)
	plain := fmt.Sprintf(
		"O candidato %s (CPF %s) enviou todos os documentos obrigatórios e a autodeclaração.\nA ficha está pronta para revisão.",
		cand.Nome, formatCPF(cand.CPF))
	html := fmt.Sprintf(
		`<p>O candidato <strong>%s</strong> (CPF %s) enviou todos os documentos obrigatórios e a autodeclaração.</p><p>A ficha está pronta para revisão.</p>`,
		cand.Nome, formatCPF(cand.CPF))
	return s.email.Send(ctx, s.hrEmail, "Equipe de RH", subject, plain, html)
}

// NotifyDocumentRejected tells the candidate which document to resend.
func (s *Service) NotifyDocumentRejected(ctx context.Context, cand service.Candidate, docName, reason string) error {
	subject := "Um documento precisa ser reenviado"
	plain := fmt.Sprintf(
		"Olá %s,\n\nO documento %q foi recusado na revisão.\nMotivo: %s\n\nPor favor, envie uma nova versão pelo portal.",
		cand.Nome, docName, reason)
	html := fmt.Sprintf(
		`<p>Olá <strong>%s</strong>,</p><p>O documento <strong>%s</strong> foi recusado na revisão.</p><p>Motivo: %s</p><p>Por favor, envie uma nova versão pelo portal.</p>`,
		cand.Nome, docName, reason)
	wa := fmt.Sprintf("Olá %s! O documento %q foi recusado: %s. Envie uma nova versão pelo portal.",
		cand.Nome, docName, reason)

	return s.fanOut(ctx, cand, subject, plain, html, wa)
}

func (s *Service) fanOut(ctx context.Context, to service.Candidate, subject, plain, html, whatsappBody string) error {
	g, ctx := errgroup.WithContext(ctx)

	if s.email != nil && to.Email != "" {
		g.Go(func() error {
			if err := s.email.Send(ctx, to.Email, to.Nome, subject, plain, html); err != nil {
				return fmt.Errorf("email to candidate %d: %w", to.ID, err)
			}
			return nil
		})
	} else {
		s.logger.Warn("email channel skipped", slog.Int64("candidate_id", to.ID))
	}

	if s.whatsapp != nil && to.Telefone != "" {
		g.Go(func() error {
			if err := s.whatsapp.Send(ctx, to.Telefone, whatsappBody); err != nil {
				return fmt.Errorf("whatsapp to candidate %d: %w", to.ID, err)
			}
			return nil
		})
	} else {
		s.logger.Warn("whatsapp channel skipped", slog.Int64("candidate_id", to.ID))
	}

	return g.Wait()
}

func formatCPF(cpf string) string {
	if len(cpf) != 11 {
		return cpf
	}
	return fmt.Sprintf("%s.%s.%s-%s", cpf[0:3], cpf[3:6], cpf[6:9], cpf[9:11])
}

// NormalizePhone strips punctuation and ensures the Brazilian country code.
func NormalizePhone(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	clean := digits.String()
	if clean == "" {
		return ""
	}
	if strings.HasPrefix(clean, "55") && len(clean) >= 12 {
		return "+" + clean
	}
	return "+55" + clean
}
