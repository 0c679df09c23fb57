package config

import (
	"os"
	"strconv"
	"time"
)

// DatabaseConfig holds PostgreSQL settings for the session ledger.
// The ledger is disabled when Host is empty.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// Enabled reports whether a ledger database is configured.
func (c DatabaseConfig) Enabled() bool {
	return c.Host != ""
}

// MinIOConfig holds object storage settings for the MinIO document store backend.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// StoreConfig selects and configures the document store.
// Root is the flat directory documents are read from when Backend is "fs".
type StoreConfig struct {
	Backend         string
	Root            string
	DefaultDocument string
}

// ViewingConfig holds settings for the remote viewing service (PAS).
type ViewingConfig struct {
	BaseURL              string
	APIKey               string
	Timeout              time.Duration
	UploadTimeout        time.Duration
	MaxConcurrentUploads int
}

// PageConfig holds values rendered into the viewer page.
// ViewerURL falls back to the viewing service URL when unset.
type PageConfig struct {
	Title     string
	ViewerURL string
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string
	Pretty bool
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost  string
	Port     string
	Log      LogConfig
	Store    StoreConfig
	Viewing  ViewingConfig
	Page     PageConfig
	Database DatabaseConfig
	MinIO    MinIOConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost: getEnv("APP_HOST", ""),
		Port:    getEnv("PORT", "8888"),
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getEnvBool("LOG_PRETTY", false),
		},
		Store: StoreConfig{
			Backend:         getEnv("STORE_BACKEND", "fs"),
			Root:            getEnv("DOCUMENTS_DIR", "documents"),
			DefaultDocument: getEnv("DEFAULT_DOCUMENT", "example.pdf"),
		},
		Viewing: ViewingConfig{
			BaseURL:              getEnv("PAS_URL", "http://localhost:3000"),
			APIKey:               getEnv("PAS_API_KEY", ""),
			Timeout:              getEnvDuration("PAS_TIMEOUT", 30*time.Second),
			UploadTimeout:        getEnvDuration("UPLOAD_TIMEOUT", 5*time.Minute),
			MaxConcurrentUploads: getEnvInt("MAX_CONCURRENT_UPLOADS", 8),
		},
		Page: PageConfig{
			Title:     getEnv("PAGE_TITLE", "Hello PrizmDoc Viewer!"),
			ViewerURL: getEnv("VIEWER_URL", getEnv("PAS_URL", "http://localhost:3000")),
		},
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			Prefix:    getEnv("MINIO_PREFIX", "documents/"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil && d > 0 {
			return d
		}
	}
	return def
}
