/**
 * @description
 * Configuration loader for the Materia backend.
 * Responsible for reading environment variables, setting defaults, and performing strict validation.
 *
 * @dependencies
 * - github.com/joho/godotenv: For loading .env files
 * - standard "os": For reading env vars
 * - standard "fmt": For error reporting
 *
 * @notes
 * - Fails fast if critical variables (Database URL) are missing.
 * - Per-source endpoints, keys and span limits are explicit fields so jobs
 *   receive configuration instead of reading the environment ambiently.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	DB       DBConfig
	Redis    RedisConfig
	Sources  SourcesConfig
	Sync     SyncConfig
	Services ServicesConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port string
	Env  string // "development" or "production"
}

// DBConfig holds PostgreSQL settings
type DBConfig struct {
	URL string
}

// RedisConfig holds Redis settings
type RedisConfig struct {
	URL string
}

// SourcesConfig holds the upstream price API endpoints, credentials and
// per-source maximum queryable span in days (0 means a single call may cover
// any range).
type SourcesConfig struct {
	MetalsURL     string
	MetalsKey     string
	MetalsMaxSpan int

	CommoditiesURL        string
	CommoditiesSymbolsURL string
	CommoditiesKey        string
	CommoditiesMaxSpan    int

	CommoditicURL       string
	CommoditicKey       string
	CommoditicCategory  string
	CommoditicFrequency string
}

// SyncConfig holds the knobs of the price sync pipeline and the worker
// schedule.
type SyncConfig struct {
	MaxRetries   int
	RetryBackoff time.Duration
	LookbackDays int
	PriceCron    string
	SymbolCron   string
}

// ServicesConfig holds external service credentials (CMS, job auth)
type ServicesConfig struct {
	StrapiURL     string
	StrapiToken   string
	SyncJobSecret string
}

// Load reads .env file and populates the Config struct
func Load() (*Config, error) {
	// Attempt to load .env, but don't crash if it fails (k8s/prod might inject env vars directly)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("GO_ENV", "development"),
		},
		DB: DBConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Sources: SourcesConfig{
			MetalsURL:     getEnv("METALS_API_URL", "https://metals-api.com/api/timeseries"),
			MetalsKey:     sanitizeCredential(getEnv("METALS_API_KEY", "")),
			MetalsMaxSpan: getEnvAsInt("METALS_API_MAX_SPAN_DAYS", 30),

			CommoditiesURL:        getEnv("COMMODITIES_API_URL", "https://commodities-api.com/api/timeseries"),
			CommoditiesSymbolsURL: getEnv("COMMODITIES_API_SYMBOLS_URL", "https://commodities-api.com/api/symbols"),
			CommoditiesKey:        sanitizeCredential(getEnv("COMMODITIES_API_KEY", "")),
			CommoditiesMaxSpan:    getEnvAsInt("COMMODITIES_API_MAX_SPAN_DAYS", 30),

			CommoditicURL:       getEnv("COMMODITIC_API_URL", "https://api.commoditic.com/v1/prices"),
			CommoditicKey:       sanitizeCredential(getEnv("COMMODITIC_API_KEY", "")),
			CommoditicCategory:  getEnv("COMMODITIC_CATEGORY", "metals"),
			CommoditicFrequency: getEnv("COMMODITIC_FREQUENCY", "day"),
		},
		Sync: SyncConfig{
			MaxRetries:   getEnvAsInt("SYNC_MAX_RETRIES", 3),
			RetryBackoff: time.Duration(getEnvAsInt("SYNC_RETRY_BACKOFF_MS", 500)) * time.Millisecond,
			LookbackDays: getEnvAsInt("SYNC_LOOKBACK_DAYS", 3),
			PriceCron:    getEnv("SYNC_PRICE_CRON", "0 6 * * *"),
			SymbolCron:   getEnv("SYNC_SYMBOL_CRON", "30 5 * * 1"),
		},
		Services: ServicesConfig{
			StrapiURL:     getEnv("STRAPI_API_URL", ""),
			StrapiToken:   sanitizeCredential(getEnv("STRAPI_API_TOKEN", "")),
			SyncJobSecret: getEnv("JOB_SYNC_SECRET", ""),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks for required variables
func validate(cfg *Config) error {
	if cfg.DB.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.Sources.MetalsKey == "" && cfg.Sources.CommoditiesKey == "" && cfg.Sources.CommoditicKey == "" && cfg.Server.Env != "test" {
		// Warning: every price sync against a real upstream will fail without credentials
		fmt.Println("Warning: no upstream API key configured (METALS_API_KEY / COMMODITIES_API_KEY / COMMODITIC_API_KEY).")
	}
	if cfg.Sync.MaxRetries < 0 {
		return fmt.Errorf("SYNC_MAX_RETRIES must not be negative")
	}
	return nil
}

// Helper to get env var with default
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func sanitizeCredential(value string) string {
	trimmed := strings.TrimSpace(value)
	return strings.Trim(trimmed, "\"")
}

// Helper to get env var as int
func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
