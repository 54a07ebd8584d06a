package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "smartsales/internal/errors"
)

// EnvPrefix is the namespace for all environment overrides, e.g. SMARTSALES_LOGGING_LEVEL.
const EnvPrefix = "SMARTSALES"

// Config represents the complete application configuration
type Config struct {
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Cleaning  CleaningConfig  `yaml:"cleaning" envconfig:"CLEANING"`
	Warehouse WarehouseConfig `yaml:"warehouse" envconfig:"WAREHOUSE"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Schedule  ScheduleConfig  `yaml:"schedule" envconfig:"SCHEDULE"`
}

// PathsConfig contains file system locations, relative to Root unless absolute
type PathsConfig struct {
	Root          string `yaml:"root" envconfig:"ROOT"`
	RawDir        string `yaml:"raw_dir" envconfig:"RAW_DIR" validate:"required"`
	ProcessedDir  string `yaml:"processed_dir" envconfig:"PROCESSED_DIR" validate:"required"`
	WarehouseFile string `yaml:"warehouse_file" envconfig:"WAREHOUSE_FILE" validate:"required"`
	FiguresDir    string `yaml:"figures_dir" envconfig:"FIGURES_DIR" validate:"required"`
	ReportsDir    string `yaml:"reports_dir" envconfig:"REPORTS_DIR" validate:"required"`
	LogFile       string `yaml:"log_file" envconfig:"LOG_FILE" validate:"required"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	// FilePath overrides Paths.LogFile when set.
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// CleaningConfig tunes the domain cleaning recipes
type CleaningConfig struct {
	OutlierMultiplier float64 `yaml:"outlier_multiplier" envconfig:"OUTLIER_MULTIPLIER" validate:"gt=0"`
	StrictCasts       bool    `yaml:"strict_casts" envconfig:"STRICT_CASTS"`
}

// WarehouseConfig controls how dates are treated during the load.
// Customer join dates fail the load when unparseable; sale dates drop the row.
type WarehouseConfig struct {
	StrictJoinDate bool `yaml:"strict_join_date" envconfig:"STRICT_JOIN_DATE"`
	StrictSaleDate bool `yaml:"strict_sale_date" envconfig:"STRICT_SALE_DATE"`
}

// TelemetryConfig contains tracing and metrics configuration
type TelemetryConfig struct {
	ServiceName   string `yaml:"service_name" envconfig:"SERVICE_NAME" validate:"required"`
	TraceExporter string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=none stdout"`
	MetricsFile   string `yaml:"metrics_file" envconfig:"METRICS_FILE"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int             `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" validate:"gte=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" validate:"gte=0"`
}

// ScheduleConfig controls the periodic full-refresh runner
type ScheduleConfig struct {
	Interval   time.Duration `yaml:"interval" envconfig:"INTERVAL" validate:"gt=0"`
	RunOnStart bool          `yaml:"run_on_start" envconfig:"RUN_ON_START"`
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			RawDir:        "data/raw",
			ProcessedDir:  "data/processed",
			WarehouseFile: "data/dw/smart_sales.db",
			FiguresDir:    "figures/olap",
			ReportsDir:    "data/reports/olap",
			LogFile:       "project.log",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "both",
		},
		Cleaning: CleaningConfig{
			OutlierMultiplier: 1.5,
		},
		Warehouse: WarehouseConfig{
			StrictJoinDate: true,
			StrictSaleDate: false,
		},
		Telemetry: TelemetryConfig{
			ServiceName:   "smartsales",
			TraceExporter: "none",
			MetricsFile:   "data/reports/metrics.prom",
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     20,
				Burst:   40,
			},
		},
		Schedule: ScheduleConfig{
			Interval:   24 * time.Hour,
			RunOnStart: true,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// SMARTSALES_* environment variables, in increasing order of precedence.
// An empty file searches the usual locations; a named file must exist.
func Load(file string) (*Config, error) {
	cfg := Default()

	if file == "" {
		file = findConfigFile()
	} else if _, err := os.Stat(file); err != nil {
		return nil, apperrors.NewConfigError(fmt.Sprintf("config file %s not readable", file), err)
	}

	if file != "" {
		if err := loadFromFile(file, cfg); err != nil {
			return nil, apperrors.NewConfigError("failed to load config from file", err).
				WithContext("file", file)
		}
	}

	// Fields without a matching variable keep their file or default value
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile overlays YAML values onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks struct constraints
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return apperrors.NewConfigError("config validation failed", err)
	}
	return nil
}

// findConfigFile returns the first config file found in the common locations
func findConfigFile() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}
