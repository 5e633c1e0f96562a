package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	JWT          JWTConfig          `yaml:"jwt"`
	Storage      StorageConfig      `yaml:"storage"`
	Log          LogConfig          `yaml:"log"`
	Session      SessionConfig      `yaml:"session"`
	Enrichment   EnrichmentConfig   `yaml:"enrichment"`
	SendGrid     SendGridConfig     `yaml:"sendgrid"`
	Firebase     FirebaseConfig     `yaml:"firebase"`
	Scheduler    SchedulerConfig    `yaml:"scheduler"`
	Registration RegistrationConfig `yaml:"registration"`
}

// ServerConfig contains the REST and gRPC listener settings
type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	GRPCPort int    `yaml:"grpc_port"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// JWTConfig contains JWT token settings
type JWTConfig struct {
	Secret            string `yaml:"secret"`
	AccessTokenExpiry int    `yaml:"access_token_expiry_minutes"`
}

// StorageConfig contains photo storage settings
type StorageConfig struct {
	Type        string `yaml:"type"`       // "mock" only for now
	UploadDir   string `yaml:"upload_dir"` // For mock storage
	BaseURL     string `yaml:"base_url"`   // Server base URL for download links
	MaxFileSize int64  `yaml:"max_file_size_mb"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// SessionConfig controls live appraisal sessions
type SessionConfig struct {
	IdleTTLMinutes int `yaml:"idle_ttl_minutes"`
	MaxNotices     int `yaml:"max_notices"`
}

// EnrichmentConfig contains settings for the vehicle data providers
type EnrichmentConfig struct {
	TimeoutSeconds   int     `yaml:"timeout_seconds"`
	VisionEnabled    bool    `yaml:"vision_enabled"`
	CredentialsFile  string  `yaml:"credentials_file"`
	VPICBaseURL      string  `yaml:"vpic_base_url"`
	VPICRatePerSec   float64 `yaml:"vpic_rate_per_second"`
	VPICMaxAttempts  int     `yaml:"vpic_max_attempts"`
	ImageMaxDim      int     `yaml:"image_max_dimension"`
	ImageJPEGQuality int     `yaml:"image_jpeg_quality"`
}

// SendGridConfig contains report email settings. An empty API key disables mail.
type SendGridConfig struct {
	APIKey    string `yaml:"api_key"`
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
}

// FirebaseConfig contains push notification settings. Disabled when no
// credentials file is given.
type FirebaseConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	SweepIdleSessions      string `yaml:"sweep_idle_sessions"`
	PurgeExpiredAppraisals string `yaml:"purge_expired_appraisals"`
	RetentionDays          int    `yaml:"retention_days"`
}

// RegistrationConfig selects the registration register
type RegistrationConfig struct {
	Source string `yaml:"source"` // "fixture" or "postgres"
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, applies environment overrides and validates it
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// JWT
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}
	if val := os.Getenv("GRPC_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.GRPCPort)
	}

	// Storage
	if val := os.Getenv("UPLOAD_DIR"); val != "" {
		c.Storage.UploadDir = val
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	// Providers
	if val := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); val != "" {
		c.Enrichment.CredentialsFile = val
	}
	if val := os.Getenv("VPIC_BASE_URL"); val != "" {
		c.Enrichment.VPICBaseURL = val
	}
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.SendGrid.APIKey = val
	}
	if val := os.Getenv("FIREBASE_CREDENTIALS"); val != "" {
		c.Firebase.CredentialsFile = val
	}
	if val := os.Getenv("REGISTRATION_SOURCE"); val != "" {
		c.Registration.Source = val
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid and fills defaults
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.GRPCPort == 0 {
		c.Server.GRPCPort = c.Server.Port + 1
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 || c.Server.GRPCPort == c.Server.Port {
		return fmt.Errorf("invalid gRPC port: %d", c.Server.GRPCPort)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.JWT.AccessTokenExpiry <= 0 {
		c.JWT.AccessTokenExpiry = 12 * 60
	}

	if c.Storage.Type == "" {
		c.Storage.Type = "mock"
	}
	if c.Storage.Type != "mock" {
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}
	if c.Storage.UploadDir == "" {
		return fmt.Errorf("upload directory is required")
	}
	if c.Storage.MaxFileSize <= 0 {
		c.Storage.MaxFileSize = 15
	}

	if c.Session.IdleTTLMinutes <= 0 {
		c.Session.IdleTTLMinutes = 120
	}
	if c.Session.MaxNotices <= 0 {
		c.Session.MaxNotices = 20
	}

	if c.Enrichment.TimeoutSeconds <= 0 {
		c.Enrichment.TimeoutSeconds = 30
	}
	if c.Enrichment.VPICBaseURL == "" {
		c.Enrichment.VPICBaseURL = "https://vpic.nhtsa.dot.gov/api"
	}
	if c.Enrichment.VPICRatePerSec <= 0 {
		c.Enrichment.VPICRatePerSec = 2
	}
	if c.Enrichment.VPICMaxAttempts <= 0 {
		c.Enrichment.VPICMaxAttempts = 3
	}
	if c.Enrichment.ImageMaxDim <= 0 {
		c.Enrichment.ImageMaxDim = 1024
	}
	if c.Enrichment.ImageJPEGQuality <= 0 || c.Enrichment.ImageJPEGQuality > 100 {
		c.Enrichment.ImageJPEGQuality = 70
	}

	if c.SendGrid.APIKey != "" && c.SendGrid.FromEmail == "" {
		return fmt.Errorf("sendgrid from_email is required when an API key is set")
	}
	if c.SendGrid.FromName == "" {
		c.SendGrid.FromName = "AutoGrade Appraisals"
	}

	switch c.Registration.Source {
	case "":
		c.Registration.Source = "fixture"
	case "fixture", "postgres":
	default:
		return fmt.Errorf("unsupported registration source: %s", c.Registration.Source)
	}

	if c.Scheduler.SweepIdleSessions == "" {
		c.Scheduler.SweepIdleSessions = "0 */5 * * * *" // every 5 minutes
	}
	if c.Scheduler.PurgeExpiredAppraisals == "" {
		c.Scheduler.PurgeExpiredAppraisals = "0 0 3 * * *" // 3 AM UTC
	}
	if c.Scheduler.RetentionDays <= 0 {
		c.Scheduler.RetentionDays = 365
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the REST server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetGRPCAddress returns the gRPC health server address
func (c *Config) GetGRPCAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}

// EnrichmentTimeout is the upper bound on a single enrichment flight
func (c *Config) EnrichmentTimeout() time.Duration {
	return time.Duration(c.Enrichment.TimeoutSeconds) * time.Second
}

// SessionIdleTTL is how long an untouched session lives
func (c *Config) SessionIdleTTL() time.Duration {
	return time.Duration(c.Session.IdleTTLMinutes) * time.Minute
}

// AccessTokenTTL is the lifetime of an appraiser access token
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.JWT.AccessTokenExpiry) * time.Minute
}
