package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers understood by StoreConfig.Driver.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
	StoreDriverMemory   = "memory"
)

// Destroy drivers understood by MediaConfig.DestroyDriver.
const (
	DestroyDriverCloudinary = "cloudinary"
	DestroyDriverMinIO      = "minio"
)

// DatabaseConfig holds PostgreSQL database connection settings.
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
	// NotifyChannel is the LISTEN/NOTIFY channel carrying record changes.
	NotifyChannel string
}

// SQLiteConfig holds settings for the embedded SQLite store.
type SQLiteConfig struct {
	Path string
}

// StoreConfig selects the record store backend.
type StoreConfig struct {
	Driver string
}

// MinIOConfig holds object storage settings for MinIO.
// Used only when media deletion is served from an S3-compatible bucket.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MediaConfig holds the image host settings.
//
// CloudName and UploadPreset are required for any upload path; APIKey and
// APISecret are only needed by the server-side delete intermediary.
type MediaConfig struct {
	CloudName      string
	UploadPreset   string
	UploadBaseURL  string
	APIBaseURL     string
	DeleteEndpoint string
	APIKey         string
	APISecret      string
	DestroyDriver  string
	Timeout        time.Duration
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost     string
	Port        string
	Timezone    string
	BodyLimitMB int // caps request bodies, media uploads included
	Store       StoreConfig
	Database    DatabaseConfig
	SQLite      SQLiteConfig
	MinIO       MinIOConfig
	Media       MediaConfig
}

// ConfigError reports required settings that are missing at startup.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Missing, ", "))
}

// Validate checks the settings every upload path depends on.
func (c MediaConfig) Validate() error {
	var missing []string
	if c.CloudName == "" {
		missing = append(missing, "CLOUDINARY_CLOUD_NAME")
	}
	if c.UploadPreset == "" {
		missing = append(missing, "CLOUDINARY_UPLOAD_PRESET")
	}
	if len(missing) > 0 {
		return &ConfigError{Missing: missing}
	}
	return nil
}

// ValidateDestroy checks the credentials needed to delete assets server-side.
func (c AppConfig) ValidateDestroy() error {
	var missing []string
	switch c.Media.DestroyDriver {
	case DestroyDriverMinIO:
		if c.MinIO.Endpoint == "" {
			missing = append(missing, "MINIO_ENDPOINT")
		}
		if c.MinIO.Bucket == "" {
			missing = append(missing, "MINIO_BUCKET")
		}
	default:
		if c.Media.CloudName == "" {
			missing = append(missing, "CLOUDINARY_CLOUD_NAME")
		}
		if c.Media.APIKey == "" {
			missing = append(missing, "CLOUDINARY_API_KEY")
		}
		if c.Media.APISecret == "" {
			missing = append(missing, "CLOUDINARY_API_SECRET")
		}
	}
	if len(missing) > 0 {
		return &ConfigError{Missing: missing}
	}
	return nil
}

// Location resolves Timezone, falling back to UTC.
func (c AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	port := getEnv("PORT", "8080")
	return &AppConfig{
		AppHost:     getEnv("APP_HOST", "localhost:8080"),
		Port:        port,
		Timezone:    getEnv("APP_TIMEZONE", "UTC"),
		BodyLimitMB: getEnvInt("HTTP_BODY_LIMIT_MB", 100),
		Store: StoreConfig{
			Driver: strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
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
			NotifyChannel:      getEnv("DB_NOTIFY_CHANNEL", "record_changes"),
		},
		SQLite: SQLiteConfig{
			Path: getEnv("SQLITE_PATH", "portfolio.db"),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Media: MediaConfig{
			CloudName:      getEnv("CLOUDINARY_CLOUD_NAME", ""),
			UploadPreset:   getEnv("CLOUDINARY_UPLOAD_PRESET", ""),
			UploadBaseURL:  getEnv("CLOUDINARY_UPLOAD_URL", "https://api.cloudinary.com/v1_1"),
			APIBaseURL:     getEnv("CLOUDINARY_API_URL", "https://api.cloudinary.com/v1_1"),
			DeleteEndpoint: getEnv("MEDIA_DELETE_ENDPOINT", "http://localhost:"+port+"/api/cloudinary-delete"),
			APIKey:         getEnv("CLOUDINARY_API_KEY", ""),
			APISecret:      getEnv("CLOUDINARY_API_SECRET", ""),
			DestroyDriver:  strings.ToLower(getEnv("MEDIA_DESTROY_DRIVER", DestroyDriverCloudinary)),
			Timeout:        getEnvDuration("MEDIA_HTTP_TIMEOUT", 30*time.Second),
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
		if err == nil {
			return d
		}
	}
	return def
}
