package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything main needs to wire the service. Values come from the
// environment; a local .env file is honored in development.
type Config struct {
	Addr        string
	DatabaseURL string
	Redis       RedisConfig
	Kafka       KafkaConfig

	JWTSigningKey     string
	DeclarationSecret string

	FrontendURL string

	Storage StorageConfig
	OCR     OCRConfig

	SendGrid SendGridConfig
	Twilio   TwilioConfig
	FGS      FGSConfig

	HRAdmin HRAdminConfig

	SessionTTL    time.Duration
	CredentialTTL time.Duration
}

// HRAdminConfig seeds the first back-office account. Seeding only happens
// when a password is provided.
type HRAdminConfig struct {
	Nome     string
	Email    string
	Password string
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type KafkaConfig struct {
	Brokers    string
	AuditTopic string
}

type StorageConfig struct {
	Root    string
	BaseURL string
}

type OCRConfig struct {
	Language string
}

type SendGridConfig struct {
	APIKey      string
	SenderEmail string
	SenderName  string
	HREmail     string
}

type TwilioConfig struct {
	AccountSID     string
	AuthToken      string
	WhatsAppNumber string
}

type FGSConfig struct {
	APIURL string
	APIKey string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	// Missing .env is fine; deployments set real environment variables.
	_ = godotenv.Load()

	return Config{
		Addr:        getenv("CONOSCO_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getint("REDIS_POOL_SIZE", 10),
			MinIdleConns: getint("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:    os.Getenv("KAFKA_BROKERS"),
			AuditTopic: getenv("KAFKA_AUDIT_TOPIC", "conosco.audit"),
		},
		JWTSigningKey:     getenv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		DeclarationSecret: getenv("DECLARATION_HMAC_SECRET", "dev-declaration-secret"),
		FrontendURL:       getenv("FRONTEND_URL", "http://localhost:3000"),
		Storage: StorageConfig{
			Root:    getenv("STORAGE_ROOT", "./uploads"),
			BaseURL: getenv("STORAGE_BASE_URL", "http://localhost:8080/uploads"),
		},
		OCR: OCRConfig{
			Language: getenv("OCR_LANGUAGE", "por"),
		},
		SendGrid: SendGridConfig{
			APIKey:      os.Getenv("SENDGRID_API_KEY"),
			SenderEmail: getenv("SENDGRID_SENDER_EMAIL", "rh@trabalheconoscofg.com.br"),
			SenderName:  getenv("SENDGRID_SENDER_NAME", "RH - FG Services"),
			HREmail:     os.Getenv("HR_ALERT_EMAIL"),
		},
		Twilio: TwilioConfig{
			AccountSID:     os.Getenv("TWILIO_ACCOUNT_SID"),
			AuthToken:      os.Getenv("TWILIO_AUTH_TOKEN"),
			WhatsAppNumber: os.Getenv("TWILIO_WHATSAPP_NUMBER"),
		},
		FGS: FGSConfig{
			APIURL: os.Getenv("FGS_API_URL"),
			APIKey: os.Getenv("FGS_API_KEY"),
		},
		HRAdmin: HRAdminConfig{
			Nome:     getenv("HR_ADMIN_NAME", "Administrador"),
			Email:    getenv("HR_ADMIN_EMAIL", "admin@trabalheconoscofg.com.br"),
			Password: os.Getenv("HR_ADMIN_PASSWORD"),
		},
		SessionTTL:    getduration("SESSION_TTL", 24*time.Hour),
		CredentialTTL: getduration("CREDENTIAL_TTL", 30*24*time.Hour),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
