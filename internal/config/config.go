package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port          int
	NatsURL       string
	NatsToken     string
	DatabaseURL   string
	LogLevel      string
	LeadStrategy  string
	LeadsEmail    string
	DraftTTLHours int
}

func Load() Config {
	return Config{
		Port:          envInt("TAMI_PORT", 8760),
		NatsURL:       envStr("NATS_URL", "nats://localhost:4222"),
		NatsToken:     envStr("NATS_TOKEN", ""),
		DatabaseURL:   envStr("DATABASE_URL", ""),
		LogLevel:      envStr("LOG_LEVEL", "info"),
		LeadStrategy:  envStr("LEAD_STRATEGY", "A"),
		LeadsEmail:    envStr("LEADS_EMAIL", ""),
		DraftTTLHours: envInt("DRAFT_TTL_HOURS", 24),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
