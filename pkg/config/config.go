package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Storage    StorageConfig
	Oracle     OracleConfig
	Extraction ExtractionConfig
	Upload     UploadConfig
	Auth       AuthConfig
	OTEL       OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host        string
	Port        int
	Environment string
	LogLevel    string
	CORSOrigins []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string // postgres | memory
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// StorageConfig selects where uploaded documents are kept
type StorageConfig struct {
	Driver   string // minio | local
	LocalDir string
	Minio    MinioConfig
}

// MinioConfig holds S3-compatible object storage configuration
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// OracleConfig holds the ordered provider chain used for analysis
type OracleConfig struct {
	Primary       ProviderConfig
	Fallback      ProviderConfig
	MaxInputChars int
}

// ProviderConfig holds the settings of a single text analysis provider
type ProviderConfig struct {
	Kind           string // chat | responses
	APIKey         string
	Model          string
	BaseURL        string
	Timeout        time.Duration
	RateLimitRPM   int
	RateLimitBurst int
}

// ExtractionConfig holds text extraction settings
type ExtractionConfig struct {
	PdftotextPath string
	TempDir       string
}

// UploadConfig holds upload limits
type UploadConfig struct {
	MaxBytes         int64
	RateLimitPerHour int
}

// AuthConfig holds bearer token verification settings
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	sharedKey := getEnv("OPENAI_API_KEY", "")

	return &Config{
		Server: ServerConfig{
			Host:        getEnv("SERVER_HOST", "0.0.0.0"),
			Port:        getEnvAsInt("SERVER_PORT", 8080),
			Environment: getEnv("ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			CORSOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("STORE_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "medical_reports"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Storage: StorageConfig{
			Driver:   getEnv("STORAGE_DRIVER", "local"),
			LocalDir: getEnv("STORAGE_LOCAL_DIR", "uploads"),
			Minio: MinioConfig{
				Endpoint:  getEnv("MINIO_ENDPOINT", ""),
				AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
				SecretKey: getEnv("MINIO_SECRET_KEY", ""),
				Bucket:    getEnv("MINIO_BUCKET", "medical-reports"),
				Region:    getEnv("MINIO_REGION", "us-east-1"),
				UseSSL:    getEnvAsBool("MINIO_USE_SSL", false),
			},
		},
		Oracle: OracleConfig{
			Primary: ProviderConfig{
				Kind:           getEnv("ORACLE_PRIMARY_KIND", "chat"),
				APIKey:         getEnv("ORACLE_PRIMARY_API_KEY", sharedKey),
				Model:          getEnv("ORACLE_PRIMARY_MODEL", "gpt-4o-mini"),
				BaseURL:        getEnv("ORACLE_PRIMARY_BASE_URL", ""),
				Timeout:        getEnvAsDuration("ORACLE_PRIMARY_TIMEOUT", 30*time.Second),
				RateLimitRPM:   getEnvAsInt("ORACLE_PRIMARY_RATE_LIMIT_RPM", 60),
				RateLimitBurst: getEnvAsInt("ORACLE_PRIMARY_RATE_LIMIT_BURST", 5),
			},
			Fallback: ProviderConfig{
				Kind:           getEnv("ORACLE_FALLBACK_KIND", "responses"),
				APIKey:         getEnv("ORACLE_FALLBACK_API_KEY", sharedKey),
				Model:          getEnv("ORACLE_FALLBACK_MODEL", "gpt-4.1-mini"),
				BaseURL:        getEnv("ORACLE_FALLBACK_BASE_URL", ""),
				Timeout:        getEnvAsDuration("ORACLE_FALLBACK_TIMEOUT", 30*time.Second),
				RateLimitRPM:   getEnvAsInt("ORACLE_FALLBACK_RATE_LIMIT_RPM", 60),
				RateLimitBurst: getEnvAsInt("ORACLE_FALLBACK_RATE_LIMIT_BURST", 5),
			},
			MaxInputChars: getEnvAsInt("ORACLE_MAX_INPUT_CHARS", 15000),
		},
		Extraction: ExtractionConfig{
			PdftotextPath: getEnv("PDFTOTEXT_PATH", "pdftotext"),
			TempDir:       getEnv("EXTRACTION_TEMP_DIR", os.TempDir()),
		},
		Upload: UploadConfig{
			MaxBytes:         int64(getEnvAsInt("UPLOAD_MAX_BYTES", 10<<20)),
			RateLimitPerHour: getEnvAsInt("UPLOAD_RATE_LIMIT_PER_HOUR", 20),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", ""),
			Issuer:    getEnv("AUTH_JWT_ISSUER", ""),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "medical-report-analysis"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}, nil
}

// Validate reports configuration the API server cannot start with
func (c *Config) Validate() error {
	var errs []error

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET is required"))
	}
	if c.Oracle.Primary.APIKey == "" {
		errs = append(errs, errors.New("primary oracle api key is required (ORACLE_PRIMARY_API_KEY or OPENAI_API_KEY)"))
	}
	if c.Oracle.MaxInputChars <= 0 {
		errs = append(errs, errors.New("ORACLE_MAX_INPUT_CHARS must be positive"))
	}
	for _, p := range []ProviderConfig{c.Oracle.Primary, c.Oracle.Fallback} {
		if p.Kind != "chat" && p.Kind != "responses" {
			errs = append(errs, fmt.Errorf("unknown oracle provider kind %q", p.Kind))
		}
		if p.Timeout <= 0 {
			errs = append(errs, fmt.Errorf("oracle provider %q timeout must be positive", p.Kind))
		}
	}
	if c.Database.Driver != "postgres" && c.Database.Driver != "memory" {
		errs = append(errs, fmt.Errorf("unknown report store driver %q", c.Database.Driver))
	}
	switch c.Storage.Driver {
	case "local":
	case "minio":
		if c.Storage.Minio.Endpoint == "" {
			errs = append(errs, errors.New("MINIO_ENDPOINT is required for the minio storage driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	if c.Upload.MaxBytes <= 0 {
		errs = append(errs, errors.New("UPLOAD_MAX_BYTES must be positive"))
	}

	return errors.Join(errs...)
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

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

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
