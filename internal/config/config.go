package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTPAddr          string        `mapstructure:"HTTP_ADDR"`
	Env               string        `mapstructure:"ENV"`
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
	DatabaseURL       string        `mapstructure:"DATABASE_URL"`
	DBMaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetime time.Duration `mapstructure:"DB_CONN_MAX_LIFETIME"`
	DirectoryBaseURL  string        `mapstructure:"DIRECTORY_BASE_URL"`
	MaxRangeDays      int           `mapstructure:"MAX_RANGE_DAYS"`
	DayCacheSize      int           `mapstructure:"DAY_CACHE_SIZE"`
	StoreTimeout      time.Duration `mapstructure:"STORE_TIMEOUT"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("MAX_RANGE_DAYS", 31)
	v.SetDefault("DAY_CACHE_SIZE", 1024)
	v.SetDefault("STORE_TIMEOUT", "5s")

	v.BindEnv("HTTP_ADDR")
	v.BindEnv("ENV")
	v.BindEnv("LOG_LEVEL")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_OPEN_CONNS")
	v.BindEnv("DB_MAX_IDLE_CONNS")
	v.BindEnv("DB_CONN_MAX_LIFETIME")
	v.BindEnv("DIRECTORY_BASE_URL")
	v.BindEnv("MAX_RANGE_DAYS")
	v.BindEnv("DAY_CACHE_SIZE")
	v.BindEnv("STORE_TIMEOUT")

	// The .env file is optional; env vars alone are enough.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DirectoryBaseURL == "" {
		return fmt.Errorf("DIRECTORY_BASE_URL is required")
	}
	if c.MaxRangeDays <= 0 {
		return fmt.Errorf("MAX_RANGE_DAYS must be positive")
	}
	if c.DayCacheSize <= 0 {
		return fmt.Errorf("DAY_CACHE_SIZE must be positive")
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}
