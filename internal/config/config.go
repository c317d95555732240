package config

import (
	"errors"
	"fmt"
	"os"

	"clinicbook/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Booking    BookingConfig    `yaml:"booking"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Interval      string `yaml:"interval"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	HTTP      APIHTTPConfig      `yaml:"http"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Port int `yaml:"port"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// BookingConfig tunes the scheduling core.
type BookingConfig struct {
	BusinessDayStartHour   int `yaml:"business_day_start_hour"`
	BusinessDayEndHour     int `yaml:"business_day_end_hour"`
	SlotMinutes            int `yaml:"slot_minutes"`
	DefaultDurationMinutes int `yaml:"default_duration_minutes"`
	MaxAdvanceDays         int `yaml:"max_advance_days"`
	LockWaitSeconds        int `yaml:"lock_wait_seconds"`
	LockTTLSeconds         int `yaml:"lock_ttl_seconds"`
}

// Load reads the YAML config at configPath, expanding ${ENV} references and
// honoring a local .env file when present.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.Redis.Enabled && c.Redis.Address == "" {
		return errors.New("redis address is required when redis is enabled")
	}
	return c.Booking.Validate()
}

func (b BookingConfig) Validate() error {
	if b.BusinessDayStartHour < 0 || b.BusinessDayEndHour > 24 {
		return fmt.Errorf("business hours %d-%d outside 0-24", b.BusinessDayStartHour, b.BusinessDayEndHour)
	}
	if b.BusinessDayStartHour >= b.BusinessDayEndHour {
		return fmt.Errorf("business day start %d must precede end %d", b.BusinessDayStartHour, b.BusinessDayEndHour)
	}
	if b.SlotMinutes <= 0 {
		return fmt.Errorf("slot_minutes must be positive, got %d", b.SlotMinutes)
	}
	if b.DefaultDurationMinutes <= 0 {
		return fmt.Errorf("default_duration_minutes must be positive, got %d", b.DefaultDurationMinutes)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.API.RateLimit.RPS == 0 {
		c.API.RateLimit.RPS = 10
	}
	if c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = 20
	}

	if c.Booking.BusinessDayStartHour == 0 && c.Booking.BusinessDayEndHour == 0 {
		c.Booking.BusinessDayStartHour = models.DefaultBusinessDayStartHour
		c.Booking.BusinessDayEndHour = models.DefaultBusinessDayEndHour
	}
	if c.Booking.SlotMinutes == 0 {
		c.Booking.SlotMinutes = models.DefaultSlotMinutes
	}
	if c.Booking.DefaultDurationMinutes == 0 {
		c.Booking.DefaultDurationMinutes = models.DefaultDurationMinutes
	}
	if c.Booking.MaxAdvanceDays == 0 {
		c.Booking.MaxAdvanceDays = models.DefaultMaxAdvanceDays
	}
	if c.Booking.LockWaitSeconds == 0 {
		c.Booking.LockWaitSeconds = models.DefaultLockWaitSeconds
	}
	if c.Booking.LockTTLSeconds == 0 {
		c.Booking.LockTTLSeconds = models.DefaultLockTTLSeconds
	}
}
