package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr       string
	CORSOrigin string
	// Read-cache for sheet data. Zero disables caching entirely.
	CacheTTL time.Duration
	RedisURL string
	// Postgres for the game store (habits/shop/inventory). Empty disables it.
	DatabaseURL   string
	MigrationsDir string
	// Client-side endpoint resolution (see the client package).
	APIBaseURL   string
	DeployTarget string
	DevServerURL string
	// Default spreadsheet credentials for callers that don't send their own.
	// Requests may still override per-call.
	SheetID            string
	ServiceAccountMail string
	ServiceAccountKey  string
}

func Load() Config {
	return Config{
		Addr:          getenv("API_ADDR", ":3001"),
		CORSOrigin:    getenv("HQ_CORS_ORIGIN", "*"),
		CacheTTL:      time.Duration(getenvInt("HQ_CACHE_TTL_SECONDS", 60)) * time.Second,
		RedisURL:      getenv("REDIS_URL", ""),
		DatabaseURL:   getenv("DATABASE_URL", ""),
		MigrationsDir: getenv("HQ_MIGRATIONS_DIR", "./db/migrations"),
		APIBaseURL:    getenv("HQ_API_BASE_URL", "/api"),
		DeployTarget:  getenv("HQ_DEPLOY_TARGET", "vercel"),
		DevServerURL:  getenv("HQ_DEV_SERVER_URL", ""),

		SheetID:            getenv("HQ_DATA_SHEET_ID", ""),
		ServiceAccountMail: getenv("HQ_SERVICE_ACCOUNT_EMAIL", ""),
		ServiceAccountKey:  getenv("HQ_SERVICE_ACCOUNT_PRIVATE_KEY", ""),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
