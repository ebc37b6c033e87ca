// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/ararat/reports/internal/utils"
)

// Store drivers understood by the record store factory.
const (
	StoreFirestore = "firestore"
	StoreMongo     = "mongo"
	StoreMemory    = "memory"
)

// Config holds application configuration
type Config struct {
	Port       int
	LogLevel   string
	DevMode    bool
	ReportsDir string // Local directory for rendered spreadsheets
	DataDir    string // Directory holding the report catalog database

	// AllowedOrigins lists the CORS origins of the HTTP API.
	AllowedOrigins []string

	Store     StoreConfig
	Storage   StorageConfig
	Scheduler SchedulerConfig

	// BenefitMargin is the fixed margin used for benefit estimation.
	BenefitMargin decimal.Decimal
}

// StoreConfig configures the remote document store.
type StoreConfig struct {
	Driver          string
	ProjectID       string // Firestore project
	CredentialsFile string // Firestore service account JSON
	MongoURI        string
	MongoDatabase   string
	Timeout         time.Duration
}

// StorageConfig configures the S3-compatible object storage used to publish reports.
// An empty Bucket disables remote publishing.
type StorageConfig struct {
	Bucket        string
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	UsePathStyle  bool
	Prefix        string
	PresignExpiry time.Duration
	PublicBaseURL string
}

// Enabled reports whether remote publishing is configured.
func (s StorageConfig) Enabled() bool {
	return s.Bucket != ""
}

// SchedulerConfig configures the automatic daily/monthly report jobs.
type SchedulerConfig struct {
	Enabled         bool
	DailySchedule   string
	MonthlySchedule string
	BackupSchedule  string

	// BackupRetentionDays is how long catalog backups are kept. 0 keeps them forever.
	BackupRetentionDays int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	reportsDir, err := ensureDir(getEnv("REPORTS_DIR", "/tmp/generated_reports"))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare reports directory: %w", err)
	}
	dataDir, err := ensureDir(getEnv("DATA_DIR", filepath.Join(reportsDir, "data")))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare data directory: %w", err)
	}

	margin, err := decimal.NewFromString(getEnv("BENEFIT_MARGIN", "0.15"))
	if err != nil {
		return nil, fmt.Errorf("invalid BENEFIT_MARGIN: %w", err)
	}

	cfg := &Config{
		Port:       getEnvAsInt("PORT", 5000),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		DevMode:    getEnvAsBool("DEV_MODE", false),
		ReportsDir: reportsDir,
		DataDir:    dataDir,

		AllowedOrigins: utils.SplitList(getEnv("CORS_ORIGINS", "*")),
		Store: StoreConfig{
			Driver:          strings.ToLower(getEnv("STORE_DRIVER", StoreFirestore)),
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			CredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", "firebase-credentials.json"),
			MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
			MongoDatabase:   getEnv("MONGO_DATABASE", "shop"),
			Timeout:         getEnvAsDuration("STORE_TIMEOUT", 30*time.Second),
		},
		Storage: StorageConfig{
			Bucket:        getEnv("S3_BUCKET", ""),
			Region:        getEnv("S3_REGION", "us-east-1"),
			Endpoint:      getEnv("S3_ENDPOINT", ""),
			AccessKey:     getEnv("S3_ACCESS_KEY", ""),
			SecretKey:     getEnv("S3_SECRET_KEY", ""),
			UsePathStyle:  getEnvAsBool("S3_USE_PATH_STYLE", true),
			Prefix:        strings.Trim(getEnv("S3_PREFIX", "reports"), "/"),
			PresignExpiry: getEnvAsDuration("S3_PRESIGN_EXPIRY", time.Hour),
			PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", ""), "/"),
		},
		Scheduler: SchedulerConfig{
			Enabled:         getEnvAsBool("SCHEDULER_ENABLED", false),
			DailySchedule:   getEnv("DAILY_REPORT_SCHEDULE", "0 30 0 * * *"),
			MonthlySchedule: getEnv("MONTHLY_REPORT_SCHEDULE", "0 0 1 1 * *"),
			BackupSchedule:  getEnv("CATALOG_BACKUP_SCHEDULE", "0 0 3 * * *"),

			BackupRetentionDays: getEnvAsInt("CATALOG_BACKUP_RETENTION_DAYS", 30),
		},
		BenefitMargin: margin,
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	switch c.Store.Driver {
	case StoreFirestore:
		if c.Store.ProjectID == "" && c.Store.CredentialsFile == "" {
			return fmt.Errorf("firestore store requires FIREBASE_PROJECT_ID or FIREBASE_CREDENTIALS_FILE")
		}
	case StoreMongo:
		if strings.TrimSpace(c.Store.MongoURI) == "" || strings.TrimSpace(c.Store.MongoDatabase) == "" {
			return fmt.Errorf("mongo store requires MONGO_URI and MONGO_DATABASE")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (want firestore, mongo or memory)", c.Store.Driver)
	}

	if c.Storage.Enabled() && (c.Storage.AccessKey == "") != (c.Storage.SecretKey == "") {
		return fmt.Errorf("S3_ACCESS_KEY and S3_SECRET_KEY must be set together")
	}

	if c.Scheduler.BackupRetentionDays < 0 {
		return fmt.Errorf("CATALOG_BACKUP_RETENTION_DAYS must not be negative")
	}

	if !c.BenefitMargin.IsPositive() || c.BenefitMargin.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("BENEFIT_MARGIN must be above 0 and at most 1, got %s", c.BenefitMargin)
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// ensureDir resolves dir to an absolute path and creates it.
func ensureDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return "", err
	}
	return abs, nil
}
