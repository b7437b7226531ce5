package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jengzang/antrak/internal/filter"
)

// Config 应用配置
type Config struct {
	Port      string `yaml:"port"`
	DBPath    string `yaml:"db_path"`
	JWTSecret string `yaml:"jwt_secret"`
	MaxMemory int64  `yaml:"max_memory"` // 最大上传大小（字节）

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // json | text

	RedisAddr string        `yaml:"redis_addr"` // empty: in-process cache
	RedisDB   int           `yaml:"redis_db"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`

	TileProvider string `yaml:"tile_provider"`
	MapWidth     int    `yaml:"map_width"`
	MapHeight    int    `yaml:"map_height"`
	MapFormat    string `yaml:"map_format"` // png | geojson

	RateLimit       int           `yaml:"rate_limit"` // requests per window and client
	RateLimitWindow time.Duration `yaml:"rate_limit_window"`

	Filter FilterConfig `yaml:"filter"`
}

// FilterConfig holds the fix rejection thresholds.
type FilterConfig struct {
	MaxDOP           float64       `yaml:"max_dop"`
	MaxVerticalSpeed float64       `yaml:"max_vertical_speed"` // m/s
	MinInterval      time.Duration `yaml:"min_interval"`
}

// Thresholds converts the filter section.
func (f FilterConfig) Thresholds() filter.Thresholds {
	return filter.Thresholds{
		MaxDOP:           f.MaxDOP,
		MaxVerticalSpeed: f.MaxVerticalSpeed,
		MinInterval:      f.MinInterval,
	}.WithDefaults()
}

// Load 加载配置: defaults, then the YAML file named by ANTRAK_CONFIG, then
// environment variables.
func Load() (*Config, error) {
	return LoadFile(os.Getenv("ANTRAK_CONFIG"))
}

// LoadFile loads configuration from path (may be empty) and the
// environment.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.TileProvider = getEnv("TILE_PROVIDER", cfg.TileProvider)
	if v := os.Getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("REDIS_DB: %w", err)
		}
		cfg.RedisDB = n
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:            ":8080",
		DBPath:          "./data/antrak.db",
		JWTSecret:       "your-secret-key-change-in-production",
		MaxMemory:       1024 * 1024 * 800, // 800MB
		LogLevel:        "info",
		LogFormat:       "json",
		CacheTTL:        10 * time.Minute,
		TileProvider:    "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
		MapWidth:        1024,
		MapHeight:       1024,
		MapFormat:       "png",
		RateLimit:       120,
		RateLimitWindow: time.Minute,
		Filter: FilterConfig{
			MaxDOP:           filter.DefaultThresholds.MaxDOP,
			MaxVerticalSpeed: filter.DefaultThresholds.MaxVerticalSpeed,
			MinInterval:      filter.DefaultThresholds.MinInterval,
		},
	}
}

// Validate checks values which have no usable fallback.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("config: db_path is empty")
	}
	if c.Filter.MaxDOP < 0 || c.Filter.MaxVerticalSpeed < 0 || c.Filter.MinInterval < 0 {
		return fmt.Errorf("config: filter thresholds must not be negative")
	}
	if c.MapFormat != "png" && c.MapFormat != "geojson" {
		return fmt.Errorf("config: map_format must be png or geojson")
	}
	if c.MapWidth <= 0 || c.MapHeight <= 0 {
		return fmt.Errorf("config: map size must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
