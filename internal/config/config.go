package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Environment constants
const (
	EnvProduction = "production"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	Auth      AuthConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Ingest    IngestConfig
	Archive   ArchiveConfig
	Retention RetentionConfig
	Worker    WorkerConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Name  string
	Env   string
	Debug bool
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RequestTimeout  time.Duration // Per-request handler timeout
	ShutdownTimeout time.Duration
	MaxBodySize     int64
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host          string
	Port          int
	Password      string
	DB            int
	PoolSize      int
	MinIdleConns  int
	DialTimeout   time.Duration
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	TLSEnabled    bool
	TLSSkipVerify bool
	MaxRetries    int
	MinRetryDelay time.Duration
	MaxRetryDelay time.Duration
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string

	// HTTP logging configuration
	SkipHealthLogs     bool // Skip logging health check endpoints
	SlowRequestSeconds int  // Log requests slower than this as warnings
}

// AuthConfig holds authentication configuration. Uploads require a bearer
// token; restricted source formats additionally require the admin role
// claim.
type AuthConfig struct {
	JWTSecret           string        // Secret key for verifying JWTs (required)
	JWTIssuer           string        // Expected token issuer claim
	AccessTokenDuration time.Duration // Token lifetime when minting via the admin CLI
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool
	RPS     float64 // Sustained requests per second per client
	Burst   int
}

// IngestConfig tunes the file ingestion pipeline.
type IngestConfig struct {
	MaxUploadBytes       int64         // Upload size cap enforced before parsing
	ErrorSampleLimit     int           // Row errors kept verbatim in the ingestion log
	DuplicateWindow      time.Duration // Checksum lookback for duplicate-upload flagging
	AllowedExtensions    []string      // Accepted upload extensions
	RestrictedSourceTags []string      // Source formats gated behind the admin role
}

// ArchiveConfig holds object-store archival configuration. When disabled,
// raw uploads are discarded after processing.
type ArchiveConfig struct {
	Enabled   bool
	Endpoint  string // Custom endpoint for S3-compatible stores, empty for AWS
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	PathStyle bool
}

// RetentionConfig holds the retention sweep configuration.
type RetentionConfig struct {
	Enabled      bool
	Schedule     string // Cron expression for the periodic sweep
	LogDays      int    // Ingestion log entries older than this are purged
	RecordDays   int    // Records not seen for this many days are purged
	DryRun       bool   // Log what would be deleted without deleting
	SweepTimeout time.Duration
}

// WorkerConfig holds background worker configuration.
type WorkerConfig struct {
	Concurrency   int
	QueueDefault  int // Priority weight of the default queue
	QueueArchive  int // Priority weight of the archive queue
	ShutdownGrace time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:  getEnv("APP_NAME", "secboard"),
			Env:   getEnv("APP_ENV", "development"),
			Debug: getEnvBool("APP_DEBUG", false),
		},
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			RequestTimeout:  getEnvDuration("SERVER_REQUEST_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			MaxBodySize:     getEnvInt64("SERVER_MAX_BODY_SIZE", 64<<20), // File uploads need headroom
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "secboard"),
			Password:        getEnv("DB_PASSWORD", "secret"),
			Name:            getEnv("DB_NAME", "secboard"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:          getEnv("REDIS_HOST", "localhost"),
			Port:          getEnvInt("REDIS_PORT", 6379),
			Password:      getEnv("REDIS_PASSWORD", ""),
			DB:            getEnvInt("REDIS_DB", 0),
			PoolSize:      getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns:  getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:   getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:   getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout:  getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			TLSEnabled:    getEnvBool("REDIS_TLS_ENABLED", false),
			TLSSkipVerify: getEnvBool("REDIS_TLS_SKIP_VERIFY", false),
			MaxRetries:    getEnvInt("REDIS_MAX_RETRIES", 3),
		},
		Log: LogConfig{
			Level:              getEnv("LOG_LEVEL", "info"),
			Format:             getEnv("LOG_FORMAT", "json"),
			SkipHealthLogs:     getEnvBool("LOG_SKIP_HEALTH", true),
			SlowRequestSeconds: getEnvInt("LOG_SLOW_REQUEST_SECONDS", 5),
		},
		Auth: AuthConfig{
			JWTSecret:           getEnv("AUTH_JWT_SECRET", ""),
			JWTIssuer:           getEnv("AUTH_JWT_ISSUER", "secboard"),
			AccessTokenDuration: getEnvDuration("AUTH_ACCESS_TOKEN_DURATION", 8*time.Hour),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			AllowedMethods: getEnvSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvSlice("CORS_ALLOWED_HEADERS", []string{"Authorization", "Content-Type"}),
			MaxAge:         getEnvInt("CORS_MAX_AGE", 300),
		},
		RateLimit: RateLimitConfig{
			Enabled: getEnvBool("RATE_LIMIT_ENABLED", true),
			RPS:     getEnvFloat("RATE_LIMIT_RPS", 10),
			Burst:   getEnvInt("RATE_LIMIT_BURST", 20),
		},
		Ingest: IngestConfig{
			MaxUploadBytes:       getEnvInt64("INGEST_MAX_UPLOAD_BYTES", 50<<20),
			ErrorSampleLimit:     getEnvInt("INGEST_ERROR_SAMPLE_LIMIT", 10),
			DuplicateWindow:      getEnvDuration("INGEST_DUPLICATE_WINDOW", 24*time.Hour),
			AllowedExtensions:    getEnvSlice("INGEST_ALLOWED_EXTENSIONS", []string{".csv", ".pdf"}),
			RestrictedSourceTags: getEnvSlice("INGEST_RESTRICTED_SOURCES", []string{"edr-falcon", "edr-secureworks"}),
		},
		Archive: ArchiveConfig{
			Enabled:   getEnvBool("ARCHIVE_ENABLED", false),
			Endpoint:  getEnv("ARCHIVE_S3_ENDPOINT", ""),
			Region:    getEnv("ARCHIVE_S3_REGION", "us-east-1"),
			Bucket:    getEnv("ARCHIVE_S3_BUCKET", ""),
			AccessKey: getEnv("ARCHIVE_S3_ACCESS_KEY", ""),
			SecretKey: getEnv("ARCHIVE_S3_SECRET_KEY", ""),
			PathStyle: getEnvBool("ARCHIVE_S3_PATH_STYLE", false),
		},
		Retention: RetentionConfig{
			Enabled:      getEnvBool("RETENTION_ENABLED", false),
			Schedule:     getEnv("RETENTION_SCHEDULE", "0 3 * * *"),
			LogDays:      getEnvInt("RETENTION_LOG_DAYS", 365),
			RecordDays:   getEnvInt("RETENTION_RECORD_DAYS", 730),
			DryRun:       getEnvBool("RETENTION_DRY_RUN", false),
			SweepTimeout: getEnvDuration("RETENTION_SWEEP_TIMEOUT", 10*time.Minute),
		},
		Worker: WorkerConfig{
			Concurrency:   getEnvInt("WORKER_CONCURRENCY", 10),
			QueueDefault:  getEnvInt("WORKER_QUEUE_DEFAULT", 6),
			QueueArchive:  getEnvInt("WORKER_QUEUE_ARCHIVE", 3),
			ShutdownGrace: getEnvDuration("WORKER_SHUTDOWN_GRACE", 30*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.validateBasic(); err != nil {
		return err
	}
	if c.App.Env == EnvProduction {
		return c.validateProduction()
	}
	return nil
}

// validateBasic validates basic configuration regardless of environment.
func (c *Config) validateBasic() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is required")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("AUTH_JWT_SECRET must be at least 32 characters")
	}
	if err := c.validateLog(); err != nil {
		return err
	}
	if err := c.validateIngest(); err != nil {
		return err
	}
	if err := c.validateArchive(); err != nil {
		return err
	}
	if err := c.validateRetention(); err != nil {
		return err
	}
	return nil
}

// validateLog validates logging configuration.
func (c *Config) validateLog() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if c.Log.Level != "" && !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid LOG_LEVEL: %s (must be debug, info, warn, or error)", c.Log.Level)
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "json", "text":
	default:
		return fmt.Errorf("invalid LOG_FORMAT: %s (must be json or text)", c.Log.Format)
	}

	if c.Log.SlowRequestSeconds < 0 {
		return fmt.Errorf("LOG_SLOW_REQUEST_SECONDS must be non-negative, got %d", c.Log.SlowRequestSeconds)
	}
	return nil
}

// validateIngest validates ingestion configuration.
func (c *Config) validateIngest() error {
	if c.Ingest.MaxUploadBytes < 1 {
		return fmt.Errorf("INGEST_MAX_UPLOAD_BYTES must be positive, got %d", c.Ingest.MaxUploadBytes)
	}
	if c.Ingest.ErrorSampleLimit < 1 {
		return fmt.Errorf("INGEST_ERROR_SAMPLE_LIMIT must be at least 1, got %d", c.Ingest.ErrorSampleLimit)
	}
	if c.Ingest.DuplicateWindow < 0 {
		return fmt.Errorf("INGEST_DUPLICATE_WINDOW must be non-negative, got %v", c.Ingest.DuplicateWindow)
	}
	for _, ext := range c.Ingest.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("INGEST_ALLOWED_EXTENSIONS entries must start with a dot, got %q", ext)
		}
	}
	return nil
}

// validateArchive validates archival configuration.
func (c *Config) validateArchive() error {
	if !c.Archive.Enabled {
		return nil
	}
	if c.Archive.Bucket == "" {
		return fmt.Errorf("ARCHIVE_S3_BUCKET is required when archival is enabled")
	}
	if c.Archive.Region == "" {
		return fmt.Errorf("ARCHIVE_S3_REGION is required when archival is enabled")
	}
	return nil
}

// validateRetention validates the retention sweep configuration.
func (c *Config) validateRetention() error {
	if !c.Retention.Enabled {
		return nil
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(c.Retention.Schedule); err != nil {
		return fmt.Errorf("invalid RETENTION_SCHEDULE %q: %w", c.Retention.Schedule, err)
	}
	if c.Retention.LogDays < 1 {
		return fmt.Errorf("RETENTION_LOG_DAYS must be at least 1, got %d", c.Retention.LogDays)
	}
	if c.Retention.RecordDays < 1 {
		return fmt.Errorf("RETENTION_RECORD_DAYS must be at least 1, got %d", c.Retention.RecordDays)
	}
	return nil
}

// validateProduction validates production-specific configuration.
func (c *Config) validateProduction() error {
	if slices.Contains(c.CORS.AllowedOrigins, "*") {
		return fmt.Errorf("CORS wildcard origin not allowed in production")
	}
	if c.Database.SSLMode == "disable" {
		return fmt.Errorf("database SSL must be enabled in production (use 'require' or 'verify-full')")
	}
	if !c.RateLimit.Enabled {
		return fmt.Errorf("rate limiting must be enabled in production")
	}
	if c.App.Debug {
		return fmt.Errorf("debug mode must be disabled in production")
	}
	if strings.ToLower(c.Log.Level) == "debug" {
		return fmt.Errorf("log level should not be 'debug' in production")
	}
	if len(c.Auth.JWTSecret) < 64 {
		return fmt.Errorf("AUTH_JWT_SECRET must be at least 64 characters in production")
	}
	if c.Redis.Password == "" {
		return fmt.Errorf("redis password must be set in production")
	}
	if !c.Redis.TLSEnabled {
		return fmt.Errorf("redis TLS must be enabled in production")
	}
	if c.Redis.TLSSkipVerify {
		return fmt.Errorf("redis TLS skip verify must be false in production")
	}
	return nil
}

// DSN returns the database connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Addr returns the Redis address.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Addr returns the HTTP server address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDevelopment returns true if the application is in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction returns true if the application is in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Env == EnvProduction
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, p := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}
