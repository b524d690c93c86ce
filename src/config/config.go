package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port               string
	DatabasePath       string
	LogLevel           string
	MaxUploadSizeBytes int64

	// Shared secret expected in the X-Webhook-Secret header of inbound
	// TradingView alerts.
	WebhookSecret string

	// Domain inbound journal emails are addressed to, e.g. "mail.tradevault.app"
	// for recipients like journal+<token>@mail.tradevault.app.
	InboundEmailDomain string

	// Directory where image attachments from inbound emails are stored.
	AttachmentDir string

	EmailServiceProvider string
	MailgunDomain        string
	MailgunPrivateAPIKey string
	SenderEmail          string
	SenderName           string

	// Gemini model used for coaching text; empty disables the coach endpoint.
	CoachModel string

	// Base URL of the broker REST API consumed by the sync adapter.
	BrokerSyncBaseURL string
}

var Cfg *AppConfig

func LoadConfig() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: no .env file found, relying on OS environment variables and defaults.")
	}

	maxUploadSizeBytesStr := getEnv("MAX_UPLOAD_SIZE_BYTES", "10485760")
	maxUploadSizeBytes, err := strconv.ParseInt(maxUploadSizeBytesStr, 10, 64)
	if err != nil {
		log.Printf("WARNING: Invalid MAX_UPLOAD_SIZE_BYTES format '%s'. Using default 10MB. Error: %v", maxUploadSizeBytesStr, err)
		maxUploadSizeBytes = 10 * 1024 * 1024
	}

	webhookSecret := getEnv("WEBHOOK_SECRET", "")
	if webhookSecret == "" {
		log.Println("WARNING: WEBHOOK_SECRET is not set. The TradingView webhook endpoint will reject all alerts.")
	}

	Cfg = &AppConfig{
		Port:               getEnv("PORT", "8080"),
		DatabasePath:       getEnv("DATABASE_PATH", "./tradevault.db"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		MaxUploadSizeBytes: maxUploadSizeBytes,

		WebhookSecret:      webhookSecret,
		InboundEmailDomain: getEnv("INBOUND_EMAIL_DOMAIN", "mail.tradevault.local"),
		AttachmentDir:      getEnv("ATTACHMENT_DIR", "./attachments"),

		EmailServiceProvider: getEnv("EMAIL_SERVICE_PROVIDER", "mock"),
		MailgunDomain:        getEnv("MAILGUN_DOMAIN", ""),
		MailgunPrivateAPIKey: getEnv("MAILGUN_PRIVATE_API_KEY", ""),
		SenderEmail:          getEnv("SENDER_EMAIL", "noreply@example.com"),
		SenderName:           getEnv("SENDER_NAME", "TradeVault"),

		CoachModel: getEnv("COACH_MODEL", ""),

		BrokerSyncBaseURL: getEnv("BROKER_SYNC_BASE_URL", ""),
	}

	if Cfg.EmailServiceProvider == "mailgun" {
		if Cfg.MailgunDomain == "" || Cfg.MailgunPrivateAPIKey == "" {
			log.Fatalf("FATAL: MAILGUN_DOMAIN and MAILGUN_PRIVATE_API_KEY are required when EMAIL_SERVICE_PROVIDER is 'mailgun'.")
		}
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, EmailProvider=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.EmailServiceProvider)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
