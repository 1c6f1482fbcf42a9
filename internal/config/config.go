package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is loaded once at startup from the environment. A .env file is
// honored in development; production supplies real variables.
type Config struct {
	ListenAddr string
	DBDSN      string

	// VaultKey is the hex-encoded AES-256 key protecting stored gateway
	// credentials. It must never be logged.
	VaultKey string

	RefundRateLimit  int
	RefundRateWindow time.Duration

	// WebhookSecrets maps provider name to its platform signing secret.
	WebhookSecrets map[string]string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		ListenAddr:       getenv("LISTEN_ADDR", ":8080"),
		DBDSN:            os.Getenv("DB_DSN"),
		VaultKey:         os.Getenv("VAULT_KEY"),
		RefundRateLimit:  100,
		RefundRateWindow: time.Hour,
		WebhookSecrets:   map[string]string{},
	}

	if cfg.DBDSN == "" {
		return Config{}, fmt.Errorf("DB_DSN is required")
	}
	if cfg.VaultKey == "" {
		return Config{}, fmt.Errorf("VAULT_KEY is required")
	}

	if v := os.Getenv("REFUND_RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("REFUND_RATE_LIMIT must be a positive integer")
		}
		cfg.RefundRateLimit = n
	}
	if v := os.Getenv("REFUND_RATE_WINDOW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("REFUND_RATE_WINDOW must be a positive duration")
		}
		cfg.RefundRateWindow = d
	}

	if s := os.Getenv("CARDNET_WEBHOOK_SECRET"); s != "" {
		cfg.WebhookSecrets["cardnet"] = s
	}
	if s := os.Getenv("WALLETPAY_WEBHOOK_SECRET"); s != "" {
		cfg.WebhookSecrets["walletpay"] = s
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
