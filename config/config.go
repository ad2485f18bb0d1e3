package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseConfig     DatabaseConfig     `json:"database"`
	RedisConfig        RedisConfig        `json:"redis"`
	ServerConfig       ServerConfig       `json:"server"`
	AuthConfig         AuthConfig         `json:"auth"`
	VaultConfig        VaultConfig        `json:"vault"`
	AccrualConfig      AccrualConfig      `json:"accrual"`
	WithdrawalConfig   WithdrawalConfig   `json:"withdrawal"`
	ReferralConfig     ReferralConfig     `json:"referral"`
	NotificationConfig NotificationConfig `json:"notification"`
	LoggingConfig      LoggingConfig      `json:"logging"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// RedisConfig holds Redis configuration for caching and batch locking
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            int    `json:"port"`
	Host            string `json:"host"`
	ProductionMode  bool   `json:"production_mode"`
	AllowedOrigins  string `json:"allowed_origins"`
	ReadTimeout     int    `json:"read_timeout"`      // Seconds
	WriteTimeout    int    `json:"write_timeout"`     // Seconds
	ShutdownTimeout int    `json:"shutdown_timeout"`  // Seconds
}

// AuthConfig holds JWT authentication settings
type AuthConfig struct {
	Enabled             bool          `json:"enabled"`
	JWTSecret           string        `json:"jwt_secret"`
	AccessTokenDuration time.Duration `json:"access_token_duration"`
	MinPasswordLength   int           `json:"min_password_length"`
}

// VaultConfig holds HashiCorp Vault settings for secret material.
// When enabled, the database password and JWT signing secret are read
// from Vault at startup instead of the environment.
type VaultConfig struct {
	Enabled    bool   `json:"enabled"`
	Address    string `json:"address"`
	Token      string `json:"token"`
	MountPath  string `json:"mount_path"`
	SecretPath string `json:"secret_path"`
	TLSEnabled bool   `json:"tls_enabled"`
	CACert     string `json:"ca_cert"`
}

// AccrualConfig holds profit accrual scheduler settings.
// PeriodCadence selects the period key granularity: "daily" in production,
// or a Go duration string (e.g. "1m") for development buckets. All period
// key resolution goes through this single policy.
type AccrualConfig struct {
	Enabled        bool    `json:"enabled"`
	PeriodCadence  string  `json:"period_cadence"`
	TickInterval   int     `json:"tick_interval"`    // Seconds between due-checks
	RunHourUTC     int     `json:"run_hour_utc"`     // Hour for daily cadence
	MaxRetries     int     `json:"max_retries"`      // Per-investment retries on transient failure
	RetryDelayMs   int     `json:"retry_delay_ms"`
	BatchLockTTL   int     `json:"batch_lock_ttl"`   // Seconds; Redis lock preventing overlapping batches
}

// WithdrawalConfig holds the fee schedule and unlock policy.
// Fees are evaluated once at request creation and frozen on the request.
type WithdrawalConfig struct {
	UnlockDays          int                  `json:"unlock_days"`
	FeeSchedule         map[string]FeePolicy `json:"fee_schedule"`
}

// FeePolicy is the fee for one payment method: a percentage of the
// requested amount plus a flat component.
type FeePolicy struct {
	Percent float64 `json:"percent"`
	Flat    float64 `json:"flat"`
}

// ReferralConfig holds referral points and equity conversion settings
type ReferralConfig struct {
	Enabled             bool    `json:"enabled"`
	MinQualifyingAmount float64 `json:"min_qualifying_amount"`
	MinimumConversion   int64   `json:"minimum_conversion"` // points
	BaseSharePrice      float64 `json:"base_share_price"`
}

// NotificationConfig holds ops alerting settings
type NotificationConfig struct {
	Enabled    bool          `json:"enabled"`
	Webhook    WebhookConfig `json:"webhook"`
}

type WebhookConfig struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
}

type LoggingConfig struct {
	Level       string `json:"level"`        // DEBUG, INFO, WARN, ERROR
	Output      string `json:"output"`       // stdout, stderr, or file path
	JSONFormat  bool   `json:"json_format"`  // Output as JSON
	IncludeFile bool   `json:"include_file"` // Include file and line number
}

func Load() (*Config, error) {
	// First try to load base config from file
	cfg, err := loadFromFile("config.json")
	if err != nil {
		// If no config file, start with empty config
		cfg = &Config{}
	}

	// Apply environment variable overrides (these take precedence)
	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	// Database config
	cfg.DatabaseConfig.Host = getEnvOrDefault("DB_HOST", defaultString(cfg.DatabaseConfig.Host, "localhost"))
	cfg.DatabaseConfig.Port = getEnvIntOrDefault("DB_PORT", defaultInt(cfg.DatabaseConfig.Port, 5432))
	cfg.DatabaseConfig.User = getEnvOrDefault("DB_USER", defaultString(cfg.DatabaseConfig.User, "invest"))
	cfg.DatabaseConfig.Password = getEnvOrDefault("DB_PASSWORD", cfg.DatabaseConfig.Password)
	cfg.DatabaseConfig.Database = getEnvOrDefault("DB_NAME", defaultString(cfg.DatabaseConfig.Database, "invest_platform"))
	cfg.DatabaseConfig.SSLMode = getEnvOrDefault("DB_SSLMODE", defaultString(cfg.DatabaseConfig.SSLMode, "disable"))

	// Redis config
	cfg.RedisConfig.Enabled = getEnvOrDefault("REDIS_ENABLED", "false") == "true"
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", defaultString(cfg.RedisConfig.Address, "localhost:6379"))
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)
	cfg.RedisConfig.PoolSize = getEnvIntOrDefault("REDIS_POOL_SIZE", defaultInt(cfg.RedisConfig.PoolSize, 10))

	// Server config
	cfg.ServerConfig.Port = getEnvIntOrDefault("WEB_PORT", defaultInt(cfg.ServerConfig.Port, 8080))
	cfg.ServerConfig.Host = getEnvOrDefault("WEB_HOST", defaultString(cfg.ServerConfig.Host, "0.0.0.0"))
	cfg.ServerConfig.ProductionMode = getEnvOrDefault("PRODUCTION_MODE", "false") == "true"
	cfg.ServerConfig.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", defaultString(cfg.ServerConfig.AllowedOrigins, "*"))
	cfg.ServerConfig.ReadTimeout = getEnvIntOrDefault("SERVER_READ_TIMEOUT", defaultInt(cfg.ServerConfig.ReadTimeout, 30))
	cfg.ServerConfig.WriteTimeout = getEnvIntOrDefault("SERVER_WRITE_TIMEOUT", defaultInt(cfg.ServerConfig.WriteTimeout, 30))
	cfg.ServerConfig.ShutdownTimeout = getEnvIntOrDefault("SERVER_SHUTDOWN_TIMEOUT", defaultInt(cfg.ServerConfig.ShutdownTimeout, 10))

	// Auth config - ALWAYS apply from environment
	cfg.AuthConfig.Enabled = getEnvOrDefault("AUTH_ENABLED", "true") == "true"
	cfg.AuthConfig.JWTSecret = getEnvOrDefault("AUTH_JWT_SECRET", cfg.AuthConfig.JWTSecret)
	cfg.AuthConfig.AccessTokenDuration = getEnvDurationOrDefault("AUTH_ACCESS_TOKEN_DURATION", 24*time.Hour)
	cfg.AuthConfig.MinPasswordLength = getEnvIntOrDefault("AUTH_MIN_PASSWORD_LENGTH", 8)

	// Vault config
	cfg.VaultConfig.Enabled = getEnvOrDefault("VAULT_ENABLED", "false") == "true"
	cfg.VaultConfig.Address = getEnvOrDefault("VAULT_ADDR", defaultString(cfg.VaultConfig.Address, "http://localhost:8200"))
	cfg.VaultConfig.Token = getEnvOrDefault("VAULT_TOKEN", cfg.VaultConfig.Token)
	cfg.VaultConfig.MountPath = getEnvOrDefault("VAULT_MOUNT_PATH", defaultString(cfg.VaultConfig.MountPath, "secret"))
	cfg.VaultConfig.SecretPath = getEnvOrDefault("VAULT_SECRET_PATH", defaultString(cfg.VaultConfig.SecretPath, "invest-platform/app"))
	cfg.VaultConfig.TLSEnabled = getEnvOrDefault("VAULT_TLS_ENABLED", "false") == "true"

	// Accrual config
	cfg.AccrualConfig.Enabled = getEnvOrDefault("ACCRUAL_ENABLED", "true") == "true"
	cfg.AccrualConfig.PeriodCadence = getEnvOrDefault("ACCRUAL_PERIOD_CADENCE", defaultString(cfg.AccrualConfig.PeriodCadence, "daily"))
	cfg.AccrualConfig.TickInterval = getEnvIntOrDefault("ACCRUAL_TICK_INTERVAL", defaultInt(cfg.AccrualConfig.TickInterval, 60))
	cfg.AccrualConfig.RunHourUTC = getEnvIntOrDefault("ACCRUAL_RUN_HOUR_UTC", cfg.AccrualConfig.RunHourUTC)
	cfg.AccrualConfig.MaxRetries = getEnvIntOrDefault("ACCRUAL_MAX_RETRIES", defaultInt(cfg.AccrualConfig.MaxRetries, 2))
	cfg.AccrualConfig.RetryDelayMs = getEnvIntOrDefault("ACCRUAL_RETRY_DELAY_MS", defaultInt(cfg.AccrualConfig.RetryDelayMs, 500))
	cfg.AccrualConfig.BatchLockTTL = getEnvIntOrDefault("ACCRUAL_BATCH_LOCK_TTL", defaultInt(cfg.AccrualConfig.BatchLockTTL, 3600))

	// Withdrawal config
	cfg.WithdrawalConfig.UnlockDays = getEnvIntOrDefault("WITHDRAWAL_UNLOCK_DAYS", defaultInt(cfg.WithdrawalConfig.UnlockDays, 7))
	if cfg.WithdrawalConfig.FeeSchedule == nil {
		cfg.WithdrawalConfig.FeeSchedule = DefaultFeeSchedule()
	}

	// Referral config
	cfg.ReferralConfig.Enabled = getEnvOrDefault("REFERRAL_ENABLED", "true") == "true"
	cfg.ReferralConfig.MinQualifyingAmount = getEnvFloatOrDefault("REFERRAL_MIN_QUALIFYING_AMOUNT", defaultFloat(cfg.ReferralConfig.MinQualifyingAmount, 100.0))
	cfg.ReferralConfig.MinimumConversion = int64(getEnvIntOrDefault("REFERRAL_MINIMUM_CONVERSION", defaultInt(int(cfg.ReferralConfig.MinimumConversion), 500)))
	cfg.ReferralConfig.BaseSharePrice = getEnvFloatOrDefault("REFERRAL_BASE_SHARE_PRICE", defaultFloat(cfg.ReferralConfig.BaseSharePrice, 100.0))

	// Notification config
	cfg.NotificationConfig.Enabled = getEnvOrDefault("NOTIFICATIONS_ENABLED", "false") == "true"
	cfg.NotificationConfig.Webhook.Enabled = getEnvOrDefault("WEBHOOK_ENABLED", "false") == "true"
	cfg.NotificationConfig.Webhook.URL = getEnvOrDefault("WEBHOOK_URL", cfg.NotificationConfig.Webhook.URL)

	// Logging config
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", defaultString(cfg.LoggingConfig.Level, "INFO"))
	cfg.LoggingConfig.Output = getEnvOrDefault("LOG_OUTPUT", defaultString(cfg.LoggingConfig.Output, "stdout"))
	cfg.LoggingConfig.JSONFormat = getEnvOrDefault("LOG_JSON", "true") == "true"
	cfg.LoggingConfig.IncludeFile = getEnvOrDefault("LOG_INCLUDE_FILE", "false") == "true"
}

// DefaultFeeSchedule returns the standard per-method fee table.
func DefaultFeeSchedule() map[string]FeePolicy {
	return map[string]FeePolicy{
		"bank_transfer": {Percent: 0.5},
		"crypto":        {Percent: 1.0},
		"check":         {Flat: 25.0},
	}
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return &config, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func defaultString(current, fallback string) string {
	if current != "" {
		return current
	}
	return fallback
}

func defaultInt(current, fallback int) int {
	if current != 0 {
		return current
	}
	return fallback
}

func defaultFloat(current, fallback float64) float64 {
	if current != 0 {
		return current
	}
	return fallback
}

// GenerateSampleConfig creates a sample configuration file
func GenerateSampleConfig(filename string) error {
	config := Config{
		DatabaseConfig: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "invest",
			Password: "",
			Database: "invest_platform",
			SSLMode:  "disable",
		},
		RedisConfig: RedisConfig{
			Enabled:  false,
			Address:  "localhost:6379",
			PoolSize: 10,
		},
		ServerConfig: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			AllowedOrigins:  "*",
			ReadTimeout:     30,
			WriteTimeout:    30,
			ShutdownTimeout: 10,
		},
		AccrualConfig: AccrualConfig{
			Enabled:       true,
			PeriodCadence: "daily",
			TickInterval:  60,
			RunHourUTC:    0,
			MaxRetries:    2,
			RetryDelayMs:  500,
			BatchLockTTL:  3600,
		},
		WithdrawalConfig: WithdrawalConfig{
			UnlockDays:  7,
			FeeSchedule: DefaultFeeSchedule(),
		},
		ReferralConfig: ReferralConfig{
			Enabled:             true,
			MinQualifyingAmount: 100.0,
			MinimumConversion:   500.0,
			BaseSharePrice:      100.0,
		},
		LoggingConfig: LoggingConfig{
			Level:      "INFO",
			Output:     "stdout",
			JSONFormat: true,
		},
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filename, data, 0644)
}
