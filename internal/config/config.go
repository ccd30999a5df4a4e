package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar points at an optional YAML config file.
const ConfigPathEnvVar = "DASHBOARD_CONFIG"

var DefaultConfigPaths = []string{"config.yaml", "config.yml"}

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Dataset   DatasetConfig   `koanf:"dataset"`
	Logger    LoggerConfig    `koanf:"logger"`
	Security  SecurityConfig  `koanf:"security"`
	Dashboard DashboardConfig `koanf:"dashboard"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatasetConfig struct {
	Path         string        `koanf:"path"`
	FileID       string        `koanf:"file_id"`
	RemoteURL    string        `koanf:"remote_url"`
	FetchTimeout time.Duration `koanf:"fetch_timeout"`
	LoadTimeout  time.Duration `koanf:"load_timeout"`
	Workers      int           `koanf:"workers"`
	BatchSize    int           `koanf:"batch_size"`
}

// SourceURL is the remote location used when the local file is absent.
func (d DatasetConfig) SourceURL() string {
	if d.RemoteURL != "" {
		return d.RemoteURL
	}
	if d.FileID == "" {
		return ""
	}
	return "https://drive.google.com/uc?export=download&id=" + d.FileID
}

type LoggerConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type SecurityConfig struct {
	EnableRateLimit bool     `koanf:"rate_limit_enabled"`
	RateLimitRPS    int      `koanf:"rate_limit_rps"`
	RateLimitBurst  int      `koanf:"rate_limit_burst"`
	AllowedOrigins  []string `koanf:"allowed_origins"`
	TrustedProxies  []string `koanf:"trusted_proxies"`
}

type DashboardConfig struct {
	TopN int `koanf:"top_n"`
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8084,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Dataset: DatasetConfig{
			Path:         "all_data.csv",
			FileID:       "17pDAE1NiwmxR5cjvRbTm0oi49CvAzgi-",
			FetchTimeout: 2 * time.Minute,
			LoadTimeout:  30 * time.Second,
			Workers:      10,
			BatchSize:    10000,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "json",
		},
		Security: SecurityConfig{
			EnableRateLimit: true,
			RateLimitRPS:    100,
			RateLimitBurst:  10,
			AllowedOrigins:  []string{"http://localhost:8084"},
			TrustedProxies:  []string{"127.0.0.1"},
		},
		Dashboard: DashboardConfig{
			TopN: 5,
		},
	}
}

// Load layers defaults, an optional YAML file and environment variables,
// in that order of precedence. A .env file in the working directory is
// read into the environment first.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := splitSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

var envMappings = map[string]string{
	"server_host":                 "server.host",
	"server_port":                 "server.port",
	"server_read_timeout":         "server.read_timeout",
	"server_write_timeout":        "server.write_timeout",
	"server_idle_timeout":         "server.idle_timeout",
	"server_shutdown_timeout":     "server.shutdown_timeout",
	"csv_file":                    "dataset.path",
	"dataset_file_id":             "dataset.file_id",
	"dataset_remote_url":          "dataset.remote_url",
	"dataset_fetch_timeout":       "dataset.fetch_timeout",
	"dataset_load_timeout":        "dataset.load_timeout",
	"dataset_workers":             "dataset.workers",
	"dataset_batch_size":          "dataset.batch_size",
	"log_level":                   "logger.level",
	"log_format":                  "logger.format",
	"security_rate_limit_enabled": "security.rate_limit_enabled",
	"security_rate_limit_rps":     "security.rate_limit_rps",
	"security_rate_limit_burst":   "security.rate_limit_burst",
	"security_allowed_origins":    "security.allowed_origins",
	"security_trusted_proxies":    "security.trusted_proxies",
	"dashboard_top_n":             "dashboard.top_n",
}

// envTransformFunc maps known variables to config paths; others are ignored.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

var sliceConfigPaths = []string{
	"security.allowed_origins",
	"security.trusted_proxies",
}

// splitSliceFields turns comma-separated env values into slices.
func splitSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}
		parts := strings.Split(s, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("set %s: %w", path, err)
		}
	}
	return nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Dataset.Path == "" {
		return fmt.Errorf("CSV file path cannot be empty")
	}

	if c.Dataset.Workers <= 0 || c.Dataset.BatchSize <= 0 {
		return fmt.Errorf("dataset workers and batch size must be positive")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !slices.Contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	if c.Dashboard.TopN <= 0 {
		return fmt.Errorf("dashboard top_n must be positive")
	}

	return nil
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
