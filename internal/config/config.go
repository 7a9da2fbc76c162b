// Package config provides unified configuration loading for floodwise.
// Supports YAML files, environment variables, and programmatic overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the floodwise service.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Cache         CacheConfig         `yaml:"cache"`
	OpenAI        OpenAIConfig        `yaml:"openai"`
	Maps          MapsConfig          `yaml:"maps"`
	Selection     SelectionConfig     `yaml:"selection"`
	Report        ReportConfig        `yaml:"report"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

// DatabaseConfig holds Postgres connection settings. The flood database is
// PostGIS-backed, so only the postgres driver is supported.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// CacheConfig holds cache settings for geocoding results.
type CacheConfig struct {
	Driver     string        `yaml:"driver"` // memory or redis
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
	Redis      RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// OpenAIConfig holds settings for the chat-completion and embedding services.
type OpenAIConfig struct {
	APIKey         string        `yaml:"api_key"`
	BaseURL        string        `yaml:"base_url"`
	ChatModel      string        `yaml:"chat_model"`
	EmbeddingModel string        `yaml:"embedding_model"`
	Timeout        time.Duration `yaml:"timeout"`
}

// MapsConfig holds Google Maps Platform settings.
type MapsConfig struct {
	APIKey     string        `yaml:"api_key"`
	GeocodeURL string        `yaml:"geocode_url"`
	WeatherURL string        `yaml:"weather_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

// SelectionConfig holds context-selection settings.
type SelectionConfig struct {
	// SVIContextPath points at the domain-description text that enriches
	// SVI variable embeddings. Loaded once at startup, shared read-only.
	SVIContextPath       string `yaml:"svi_context_path"`
	SVIReleaseYear       int    `yaml:"svi_release_year"`
	DefaultForecastHours int    `yaml:"default_forecast_hours"`
}

// ReportConfig holds report output settings.
type ReportConfig struct {
	OutputDir string `yaml:"output_dir"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8091,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     120 * time.Second,
			RequestTimeout:   120 * time.Second,
			GracefulShutdown: 10 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Cache: CacheConfig{
			Driver:     "memory",
			TTL:        24 * time.Hour,
			MaxEntries: 10000,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				DB:       0,
				PoolSize: 10,
			},
		},
		OpenAI: OpenAIConfig{
			BaseURL:        "https://api.openai.com/v1",
			ChatModel:      "gpt-4o",
			EmbeddingModel: "text-embedding-3-large",
			Timeout:        60 * time.Second,
		},
		Maps: MapsConfig{
			GeocodeURL: "https://maps.googleapis.com/maps/api/geocode/json",
			WeatherURL: "https://weather.googleapis.com/v1",
			Timeout:    30 * time.Second,
		},
		Selection: SelectionConfig{
			SVIContextPath:       "prompts/social_vulnerability_index.txt",
			SVIReleaseYear:       2022,
			DefaultForecastHours: 24,
		},
		Report: ReportConfig{
			OutputDir: "results",
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "json",
		},
	}
}

// Validate checks the configuration for errors. Missing credentials are
// reported here, once at startup, rather than deep inside the pipeline.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Cache.Driver != "memory" && c.Cache.Driver != "redis" {
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}

	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai api key is required")
	}

	if c.Maps.APIKey == "" {
		return fmt.Errorf("maps api key is required")
	}

	if c.Selection.SVIReleaseYear < 2000 {
		return fmt.Errorf("invalid svi release year: %d", c.Selection.SVIReleaseYear)
	}

	if c.Selection.DefaultForecastHours < 1 || c.Selection.DefaultForecastHours > 240 {
		return fmt.Errorf("default_forecast_hours must be between 1 and 240")
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}

	if v := os.Getenv("SERVER_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.DSN = v
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.Driver = "redis"
		cfg.Cache.Redis.Addr = trimScheme(v, "redis://")
	}

	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}

	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.OpenAI.BaseURL = v
	}

	if v := os.Getenv("OPENAI_CHAT_MODEL"); v != "" {
		cfg.OpenAI.ChatModel = v
	}

	if v := os.Getenv("OPENAI_EMBEDDING_MODEL"); v != "" {
		cfg.OpenAI.EmbeddingModel = v
	}

	if v := os.Getenv("GOOGLE_MAPS_API_KEY"); v != "" {
		cfg.Maps.APIKey = v
	}

	if v := os.Getenv("SVI_CONTEXT_PATH"); v != "" {
		cfg.Selection.SVIContextPath = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
}

func trimScheme(addr, scheme string) string {
	if len(addr) >= len(scheme) && addr[:len(scheme)] == scheme {
		return addr[len(scheme):]
	}
	return addr
}
