package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         string
	DBPath       string
	SiteURL      string
	CSRFKey      []byte
	SessionKey   []byte
	CookieDomain string
	CookieSecure bool

	// Stripe. SecretKey is mandatory: without it the store cannot take
	// payments at all, so startup fails instead of limping along.
	StripeSecretKey     string
	StripeWebhookSecret string

	// Printful. Absence degrades to the placeholder catalog and skips
	// price reconciliation.
	PrintfulToken   string
	PrintfulStoreID string

	// SMTP. Absence skips confirmation emails.
	EmailHost     string
	EmailPort     int
	EmailUser     string
	EmailPassword string
	EmailFrom     string
}

func LoadConfig() (*Config, error) {
	// Optional .env for local development; real deployments set env vars.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Could not load .env file", "error", err)
	}

	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		DBPath:              getEnv("DB_PATH", "./savepoint.db"),
		SiteURL:             getEnv("SITE_URL", "http://localhost:8080"),
		CookieDomain:        getEnv("COOKIE_DOMAIN", ""),
		CookieSecure:        getEnv("COOKIE_SECURE", "false") == "true",
		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		PrintfulToken:       os.Getenv("PRINTFUL_API_TOKEN"),
		PrintfulStoreID:     os.Getenv("PRINTFUL_STORE_ID"),
		EmailHost:           os.Getenv("EMAIL_SERVER_HOST"),
		EmailUser:           os.Getenv("EMAIL_SERVER_USER"),
		EmailPassword:       os.Getenv("EMAIL_SERVER_PASSWORD"),
		EmailFrom:           getEnv("EMAIL_FROM", "orders@savepointapparel.com"),
	}

	if cfg.StripeSecretKey == "" {
		return nil, errors.New("STRIPE_SECRET_KEY is not set")
	}
	if cfg.StripeWebhookSecret == "" {
		slog.Warn("STRIPE_WEBHOOK_SECRET not set. Webhook deliveries will be rejected until it is configured.")
	}
	if cfg.PrintfulToken == "" {
		slog.Warn("PRINTFUL_API_TOKEN not set. Serving placeholder catalog; cart price validation and fulfillment are disabled.")
	}
	if cfg.EmailHost == "" || cfg.EmailUser == "" || cfg.EmailPassword == "" {
		slog.Warn("Email configuration incomplete. Order confirmation emails will not be sent.")
	}

	port, err := strconv.Atoi(getEnv("EMAIL_SERVER_PORT", "587"))
	if err != nil {
		slog.Warn("Invalid EMAIL_SERVER_PORT, falling back to 587", "EMAIL_SERVER_PORT", os.Getenv("EMAIL_SERVER_PORT"))
		port = 587
	}
	cfg.EmailPort = port

	cfg.CSRFKey = loadKey("CSRF_KEY")
	cfg.SessionKey = loadKey("SESSION_KEY")

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		slog.Error("Invalid PORT environment variable. Falling back to default.", "PORT", os.Getenv("PORT"))
		cfg.Port = "8080"
	}

	return cfg, nil
}

// loadKey decodes a base64 key from the environment, generating a random
// throwaway key when missing or invalid. Sessions/CSRF tokens then reset on
// every restart, which is acceptable only for development.
func loadKey(envVar string) []byte {
	keyStr := os.Getenv(envVar)
	if keyStr == "" {
		slog.Warn(envVar + " environment variable not set. Generating a random key for development. PLEASE SET " + envVar + " IN PRODUCTION!")
		return generateRandomBytes(32)
	}
	decoded, err := base64.StdEncoding.DecodeString(keyStr)
	if err != nil || len(decoded) < 32 {
		slog.Warn(envVar + " is invalid or too short (min 32 bytes). Generating a random key for development. PLEASE SET A SECURE " + envVar + " IN PRODUCTION!")
		return generateRandomBytes(32)
	}
	return decoded
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func generateRandomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failing is effectively unrecoverable; keep the
		// process alive for development but make the key useless.
		slog.Error("Failed to read random bytes", "error", err)
		return make([]byte, n)
	}
	return b
}
