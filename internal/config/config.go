package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Storage      StorageConfig
	Upload       UploadConfig
	Workflow     WorkflowConfig
	Listing      ListingConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	BodyLimitMB           int
}

// PostgresConfig holds DB connection values. An empty DSN selects the
// in-memory store.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// NotificationConfig controls domain event fan-out.
type NotificationConfig struct {
	RedisChannel string
}

// StorageConfig selects and configures the document storage driver.
type StorageConfig struct {
	Driver            string
	LocalDir          string
	PublicURL         string
	MinIOEndpoint     string
	MinIOAccessKey    string
	MinIOSecretKey    string
	MinIOBucket       string
	MinIOUseSSL       bool
	PresignTTLMinutes int
}

// UploadConfig bounds uploaded documents.
type UploadConfig struct {
	MaxFileSizeMB int
}

// WorkflowConfig toggles workflow rules.
type WorkflowConfig struct {
	EnforceStageOrder bool
}

// ListingConfig bounds list pages.
type ListingConfig struct {
	DefaultPageSize int
	MaxPageSize     int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "field-ticket-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			BodyLimitMB:           getEnvAsInt("HTTP_BODY_LIMIT_MB", 32),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			File:       os.Getenv("LOG_FILE"),
			MaxSizeMB:  getEnvAsInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvAsInt("LOG_MAX_AGE_DAYS", 30),
			Compress:   getEnvAsBool("LOG_COMPRESS", true),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Notification: NotificationConfig{
			RedisChannel: getEnv("NOTIFY_REDIS_CHANNEL", "tickets.events"),
		},
		Storage: StorageConfig{
			Driver:            strings.ToLower(getEnv("STORAGE_DRIVER", "local")),
			LocalDir:          getEnv("STORAGE_LOCAL_DIR", "./storage"),
			PublicURL:         getEnv("STORAGE_PUBLIC_URL", "/storage"),
			MinIOEndpoint:     os.Getenv("MINIO_ENDPOINT"),
			MinIOAccessKey:    os.Getenv("MINIO_ACCESS_KEY"),
			MinIOSecretKey:    os.Getenv("MINIO_SECRET_KEY"),
			MinIOBucket:       getEnv("MINIO_BUCKET", "tickets"),
			MinIOUseSSL:       getEnvAsBool("MINIO_USE_SSL", false),
			PresignTTLMinutes: getEnvAsInt("MINIO_PRESIGN_TTL_MINUTES", 15),
		},
		Upload: UploadConfig{
			MaxFileSizeMB: getEnvAsInt("UPLOAD_MAX_FILE_SIZE_MB", 10),
		},
		Workflow: WorkflowConfig{
			EnforceStageOrder: getEnvAsBool("WORKFLOW_ENFORCE_STAGE_ORDER", true),
		},
		Listing: ListingConfig{
			DefaultPageSize: getEnvAsInt("LIST_DEFAULT_PAGE_SIZE", 10),
			MaxPageSize:     getEnvAsInt("LIST_MAX_PAGE_SIZE", 100),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "local":
	case "minio":
		if c.Storage.MinIOEndpoint == "" {
			return fmt.Errorf("MINIO_ENDPOINT is required when STORAGE_DRIVER=minio")
		}
	default:
		return fmt.Errorf("invalid STORAGE_DRIVER %q", c.Storage.Driver)
	}
	if c.Listing.DefaultPageSize <= 0 || c.Listing.MaxPageSize < c.Listing.DefaultPageSize {
		return fmt.Errorf("invalid page sizes: default %d, max %d", c.Listing.DefaultPageSize, c.Listing.MaxPageSize)
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// BodyLimit returns the maximum request body in bytes.
func (a AppConfig) BodyLimit() int {
	return a.BodyLimitMB * 1024 * 1024
}

// MaxFileSize returns the per-file upload limit in bytes.
func (u UploadConfig) MaxFileSize() int64 {
	return int64(u.MaxFileSizeMB) * 1024 * 1024
}

// AccessTokenTTL returns the JWT lifetime.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// PresignTTL returns how long MinIO download links stay valid.
func (s StorageConfig) PresignTTL() time.Duration {
	return time.Duration(s.PresignTTLMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
