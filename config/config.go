package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. IMPORT_WIZARD_API_BASE_URL
const EnvPrefix = "IMPORT_WIZARD"

// Config holds the application configuration
type Config struct {
	API         APIConfig         `mapstructure:"api"`
	Preview     PreviewConfig     `mapstructure:"preview"`
	Confirm     ConfirmConfig     `mapstructure:"confirm"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
	Server      ServerConfig      `mapstructure:"server"`
	Sandbox     SandboxConfig     `mapstructure:"sandbox"`
}

// APIConfig holds remote import API settings
type APIConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
}

// PreviewConfig holds preview scheduling settings
type PreviewConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// ConfirmConfig holds confirmation settings
type ConfirmConfig struct {
	PhaseDelay time.Duration `mapstructure:"phase_delay"`
}

// CredentialsConfig holds where tokens are persisted
type CredentialsConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

// TelemetryConfig holds OpenTelemetry export settings
type TelemetryConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Endpoint       string        `mapstructure:"endpoint"`
	Insecure       bool          `mapstructure:"insecure"`
	ServiceName    string        `mapstructure:"service_name"`
	MetricInterval time.Duration `mapstructure:"metric_interval"`
}

// ServerConfig holds sandbox HTTP server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// SandboxConfig holds settings of the local stand-in import service
type SandboxConfig struct {
	TokenSecret       string            `mapstructure:"token_secret"`
	AccessTTL         time.Duration     `mapstructure:"access_ttl"`
	RefreshTTL        time.Duration     `mapstructure:"refresh_ttl"`
	Users             map[string]string `mapstructure:"users"`
	StoragePath       string            `mapstructure:"storage_path"`
	RequestsPerSecond float64           `mapstructure:"requests_per_second"`
	Burst             int               `mapstructure:"burst"`
}

// Load loads the configuration from file, .env, and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// .env is optional
	_ = loadEnvFile()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvVars(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the client cannot run with
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	if c.API.Timeout <= 0 {
		return errors.New("api.timeout must be positive")
	}
	if c.Preview.Debounce <= 0 {
		return errors.New("preview.debounce must be positive")
	}
	if c.Confirm.PhaseDelay < 0 {
		return errors.New("confirm.phase_delay must not be negative")
	}
	return nil
}

// loadEnvFile loads the first .env file found as KEY=VALUE lines. Variables
// already set in the environment win.
func loadEnvFile() error {
	for _, dir := range []string{".", "./config"} {
		envFile := filepath.Join(dir, ".env")
		if _, err := os.Stat(envFile); err == nil {
			return loadDotEnvFile(envFile)
		}
	}
	return fmt.Errorf("no .env file found")
}

func loadDotEnvFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		if _, set := os.LookupEnv(key); set {
			continue
		}
		os.Setenv(key, strings.Trim(strings.TrimSpace(value), "\"'"))
	}
	return scanner.Err()
}

// bindEnvVars binds conventional unprefixed variables
func bindEnvVars(v *viper.Viper) {
	v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "PORT")
	v.BindEnv("logging.level", EnvPrefix+"_LOGGING_LEVEL", "LOG_LEVEL")
	v.BindEnv("telemetry.endpoint", EnvPrefix+"_TELEMETRY_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// DefaultCredentialsPath is where tokens are kept unless configured otherwise
func DefaultCredentialsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "import-wizard", "credentials.json")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:3000")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.requests_per_second", 5)
	v.SetDefault("api.burst", 10)

	v.SetDefault("preview.debounce", 400*time.Millisecond)
	v.SetDefault("confirm.phase_delay", 600*time.Millisecond)
	v.SetDefault("credentials.path", DefaultCredentialsPath())

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.no_color", false)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "localhost:4317")
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("telemetry.service_name", "import-wizard")
	v.SetDefault("telemetry.metric_interval", 30*time.Second)

	v.SetDefault("server.port", 3000)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("sandbox.token_secret", "sandbox-dev-secret")
	v.SetDefault("sandbox.access_ttl", 5*time.Minute)
	v.SetDefault("sandbox.refresh_ttl", 24*time.Hour)
	v.SetDefault("sandbox.users", map[string]string{"demo": "demo"})
	v.SetDefault("sandbox.storage_path", "./data/sandbox")
	v.SetDefault("sandbox.requests_per_second", 20)
	v.SetDefault("sandbox.burst", 40)
}
