// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/meowls/evisa/core"
)

// Config holds everything the service needs to start.
type Config struct {
	Addr                string
	BasePath            string
	DatabaseURL         string
	IdentityProviderURL string
	ResendAPIKey        string
	SenderEmail         string
	CORSOrigins         []string
	SessionMaxAge       time.Duration
}

// Load reads a .env file if present, then builds the configuration from
// the environment. DATABASE_URL is the only hard requirement.
func Load() (*Config, error) {
	_ = godotenv.Load() // ok if missing in prod

	cfg := &Config{
		Addr:                envOr("ADDR", ":8080"),
		BasePath:            envOr("BASE_PATH", "/api"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		IdentityProviderURL: os.Getenv("IDENTITY_PROVIDER_URL"),
		ResendAPIKey:        os.Getenv("RESEND_API_KEY"),
		SenderEmail:         envOr("SENDER_EMAIL", "onboarding@resend.dev"),
		SessionMaxAge:       core.DefaultSessionMaxAge,
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if raw := os.Getenv("SESSION_MAX_AGE"); raw != "" {
		maxAge, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_MAX_AGE %q: %w", raw, err)
		}
		cfg.SessionMaxAge = maxAge
	}

	if raw := os.Getenv("CORS_ORIGINS"); raw != "" {
		for _, origin := range strings.Split(raw, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
			}
		}
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
