// Command server wires the recruitment back office together: vacancy and
// candidate management, the admission document pipeline, LGPD data-subject
// requests and the FGS admission export. All business logic lives under
// internal/; main only assembles dependencies from the environment.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"conosco/internal/admission"
	"conosco/internal/audit"
	"conosco/internal/candidate"
	"conosco/internal/document/adapters"
	dochandler "conosco/internal/document/handler"
	"conosco/internal/document/imagecheck"
	"conosco/internal/document/metrics"
	"conosco/internal/document/ocrcheck"
	docservice "conosco/internal/document/service"
	"conosco/internal/document/session"
	docstore "conosco/internal/document/store"
	"conosco/internal/hrauth"
	"conosco/internal/lgpd"
	"conosco/internal/notification"
	"conosco/internal/platform/config"
	"conosco/internal/platform/httpserver"
	"conosco/internal/platform/kafka"
	"conosco/internal/platform/logger"
	"conosco/internal/platform/middleware"
	"conosco/internal/platform/ocr/tesseract"
	"conosco/internal/platform/postgres"
	platformredis "conosco/internal/platform/redis"
	"conosco/internal/platform/storage/localfs"
	"conosco/internal/vacancy"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

// stores groups every persistence surface so run can swap the whole set
// between Postgres and in-memory implementations.
type stores struct {
	candidates  candidate.Store
	vacancies   vacancy.Store
	hrUsers     hrauth.Store
	records     docservice.RecordStore
	credentials docservice.CredentialStore
	snapshots   admission.SnapshotStore
	lgpd        lgpd.Store
	audit       audit.Store
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	st, cleanup, err := buildStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	sessions, closeSessions, err := buildSessions(cfg, log)
	if err != nil {
		return err
	}
	defer closeSessions()

	files, err := localfs.New(cfg.Storage.Root, cfg.Storage.BaseURL)
	if err != nil {
		return fmt.Errorf("init upload storage: %w", err)
	}

	auditor := audit.NewPublisher(st.audit, log)
	if cfg.Kafka.Brokers != "" {
		producer, err := kafka.NewProducer(strings.Split(cfg.Kafka.Brokers, ","), log)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer producer.Close()

		worker := audit.NewWorker(st.audit, audit.NewKafkaPublisher(producer, cfg.Kafka.AuditTopic), log, 5*time.Second)
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit worker stopped", "error", err)
			}
		}()
	} else {
		log.Warn("KAFKA_BROKERS not set, audit events stay in the outbox")
	}

	candidates := candidate.NewService(st.candidates, files, candidate.WithLogger(log))
	vacancies := vacancy.NewService(st.vacancies, vacancy.WithLogger(log))

	tokens := hrauth.NewTokenService(cfg.JWTSigningKey, "conosco", hrauth.DefaultTokenTTL)
	hrUsers := hrauth.NewService(st.hrUsers, tokens, hrauth.WithLogger(log))
	if cfg.HRAdmin.Password != "" {
		if err := hrUsers.EnsureUser(ctx, cfg.HRAdmin.Nome, cfg.HRAdmin.Email, cfg.HRAdmin.Password, hrauth.RoleAdmin); err != nil {
			return fmt.Errorf("seed hr admin: %w", err)
		}
	}

	var emailSender notification.EmailSender
	notifyOpts := []notification.Option{notification.WithHREmail(cfg.SendGrid.HREmail)}
	if cfg.SendGrid.APIKey != "" {
		emailSender = notification.NewSendGridSender(cfg.SendGrid.APIKey, cfg.SendGrid.SenderName, cfg.SendGrid.SenderEmail)
		notifyOpts = append(notifyOpts, notification.WithEmail(emailSender))
	} else {
		log.Warn("SENDGRID_API_KEY not set, email notifications disabled")
	}
	if cfg.Twilio.AccountSID != "" {
		notifyOpts = append(notifyOpts, notification.WithWhatsApp(
			notification.NewTwilioSender(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.WhatsAppNumber),
		))
	} else {
		log.Warn("TWILIO_ACCOUNT_SID not set, WhatsApp notifications disabled")
	}
	notifier := notification.New(log, notifyOpts...)

	admissionOpts := []admission.Option{
		admission.WithLogger(log),
		admission.WithAuditor(auditor),
	}
	if fgs := admission.NewFGSClient(cfg.FGS.APIURL, cfg.FGS.APIKey); fgs.Configured() {
		admissionOpts = append(admissionOpts, admission.WithTransmitter(fgs))
	} else {
		log.Warn("FGS_API_URL not set, admission export disabled")
	}
	admissions := admission.NewService(candidates, vacancies, st.records, st.snapshots, admissionOpts...)

	docs := docservice.New(
		st.records,
		st.credentials,
		sessions,
		files,
		imagecheck.New(),
		adapters.NewCandidateDirectory(candidates, vacancies),
		[]byte(cfg.DeclarationSecret),
		docservice.WithLogger(log),
		docservice.WithNotifier(notifier),
		docservice.WithExporter(admissions),
		docservice.WithAuditor(auditor),
		docservice.WithMetrics(metrics.New()),
		docservice.WithResidencyValidator(ocrcheck.New(tesseract.New(), cfg.OCR.Language)),
		docservice.WithLoginURL(cfg.FrontendURL+"/admissao/login"),
		docservice.WithSessionTTL(cfg.SessionTTL),
		docservice.WithCredentialTTL(cfg.CredentialTTL),
	)

	lgpdOpts := []lgpd.Option{
		lgpd.WithLogger(log),
		lgpd.WithAuditor(auditor),
		lgpd.WithCredentialRevoker(st.credentials),
	}
	if emailSender != nil {
		lgpdOpts = append(lgpdOpts, lgpd.WithEmail(emailSender))
	}
	lgpdSvc := lgpd.NewService(st.lgpd, st.candidates, st.records, lgpdOpts...)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Timeout(2 * time.Minute))
	router.Use(middleware.NewRateLimiter(120, time.Minute).Middleware)

	hrauth.NewHandler(hrUsers, log).Register(router)
	vacancy.NewHandler(vacancies, log, tokens).Register(router)
	candidate.NewHandler(candidates, admissions, log, tokens).Register(router)
	dochandler.New(docs, log, tokens, docs).Register(router)
	lgpd.NewHandler(lgpdSvc, log, tokens).Register(router)

	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	router.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.Storage.Root))))

	srv := httpserver.New(cfg.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Info("conosco listening", "addr", cfg.Addr)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	log.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

// buildStores prefers Postgres and falls back to process-local stores, which
// keeps local development free of external dependencies.
func buildStores(ctx context.Context, cfg config.Config, log *slog.Logger) (stores, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		return stores{
			candidates:  candidate.NewInMemoryStore(),
			vacancies:   vacancy.NewInMemoryStore(),
			hrUsers:     hrauth.NewInMemoryStore(),
			records:     docstore.NewMemoryRecordStore(),
			credentials: docstore.NewMemoryCredentialStore(),
			snapshots:   admission.NewInMemorySnapshotStore(),
			lgpd:        lgpd.NewInMemoryStore(),
			audit:       audit.NewInMemoryStore(),
		}, func() {}, nil
	}

	pool, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return stores{}, nil, fmt.Errorf("connect postgres: %w", err)
	}

	candStore := candidate.NewPostgresStore(pool)
	vacStore := vacancy.NewPostgresStore(pool)
	hrStore := hrauth.NewPostgresStore(pool)
	recordStore := docstore.NewPostgresRecordStore(pool)
	snapStore := admission.NewPostgresSnapshotStore(pool)
	lgpdStore := lgpd.NewPostgresStore(pool)
	auditStore := audit.NewPostgresStore(pool)

	for name, ensure := range map[string]func(context.Context) error{
		"candidatos": candStore.EnsureSchema,
		"vagas":      vacStore.EnsureSchema,
		"hr_users":   hrStore.EnsureSchema,
		"documents":  recordStore.EnsureSchema,
		"admission":  snapStore.EnsureSchema,
		"lgpd":       lgpdStore.EnsureSchema,
		"audit":      auditStore.EnsureSchema,
	} {
		if err := ensure(ctx); err != nil {
			pool.Close()
			return stores{}, nil, fmt.Errorf("ensure %s schema: %w", name, err)
		}
	}

	return stores{
		candidates:  candStore,
		vacancies:   vacStore,
		hrUsers:     hrStore,
		records:     recordStore,
		credentials: docstore.NewPostgresCredentialStore(pool),
		snapshots:   snapStore,
		lgpd:        lgpdStore,
		audit:       auditStore,
	}, pool.Close, nil
}

// buildSessions uses Redis when configured so candidate sessions survive
// restarts, and an in-memory store otherwise.
func buildSessions(cfg config.Config, log *slog.Logger) (session.Store, func(), error) {
	client, err := platformredis.New(cfg.Redis)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	if client == nil {
		log.Warn("REDIS_URL not set, sessions are process-local")
		return session.NewMemoryStore(), func() {}, nil
	}
	return session.NewRedisStore(client.Client), func() { _ = client.Close() }, nil
}
