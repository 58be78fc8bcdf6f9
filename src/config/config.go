package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application.
// The values are loaded from environment variables.
type AppConfig struct {
	// Core settings
	Port         string
	DatabasePath string
	LogLevel     string

	// Deposit claim settings
	DepositClaimSecret string
	DepositClaimTTL    time.Duration

	// Batch settings
	BatchHour            int
	CSVDir               string
	AssetGroupCSVPath    string
	AssetPositionCSVPath string
	PrincipalCSVPath     string

	// Read-side cache settings
	ViewCacheTTL             time.Duration
	ViewCacheCleanupInterval time.Duration
}

// Cfg is a global instance of the AppConfig.
var Cfg *AppConfig

// LoadConfig loads configuration from environment variables or a .env file.
// It centralizes all configuration logic for the application.
func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		errEnv = godotenv.Load("../.env")
	}

	if errEnv != nil {
		if os.IsNotExist(errEnv) {
			log.Println("Info: No .env file found in current or parent directory. Relying on OS environment variables (expected in production).")
		} else {
			log.Printf("Warning: Error loading .env file: %v. Relying on OS environment variables.", errEnv)
		}
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	depositClaimSecret := getRequiredEnv("DEPOSIT_CLAIM_SECRET")
	depositClaimTTL := getEnvAsDuration("DEPOSIT_CLAIM_TTL", 72*time.Hour)

	batchHour := getEnvAsInt("BATCH_HOUR", 6)
	if batchHour < 0 || batchHour > 23 {
		log.Printf("WARNING: BATCH_HOUR %d out of range, using default 6.", batchHour)
		batchHour = 6
	}

	csvDir := getEnv("CSV_DIR", "data/csv")

	Cfg = &AppConfig{
		// Core
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "./assetfolio.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		// Deposit claims
		DepositClaimSecret: depositClaimSecret,
		DepositClaimTTL:    depositClaimTTL,

		// Batch
		BatchHour:            batchHour,
		CSVDir:               csvDir,
		AssetGroupCSVPath:    filepath.Join(csvDir, getEnv("ASSET_GROUP_CSV", "asset_group_info_set.csv")),
		AssetPositionCSVPath: filepath.Join(csvDir, getEnv("ASSET_POSITION_CSV", "account_asset_info_set.csv")),
		PrincipalCSVPath:     filepath.Join(csvDir, getEnv("PRINCIPAL_CSV", "account_basic_info_set.csv")),

		// Read-side cache
		ViewCacheTTL:             getEnvAsDuration("VIEW_CACHE_TTL", 15*time.Minute),
		ViewCacheCleanupInterval: getEnvAsDuration("VIEW_CACHE_CLEANUP_INTERVAL", 30*time.Minute),
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, BatchHour=%d, CSVDir=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.BatchHour, Cfg.CSVDir)
}

// getEnv retrieves an environment variable or returns a fallback value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

// getRequiredEnv retrieves an environment variable or terminates the application if not set.
func getRequiredEnv(key string) string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		log.Fatalf("FATAL: Required environment variable %s is not set or is empty. Application cannot start securely.", key)
	}
	return value
}

// getEnvAsInt retrieves an environment variable as an integer or returns a fallback.
func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

// getEnvAsDuration retrieves an environment variable as a time.Duration or returns a fallback.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}
