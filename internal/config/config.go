package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"selfserve-api/internal/ratelimit"
)

type Config struct {
	Server    ServerConfig    `json:"server"`
	Postgres  PostgresConfig  `json:"postgres"`
	Redis     RedisConfig     `json:"redis"`
	JWT       JWTConfig       `json:"jwt"`
	RateLimit RateLimitConfig `json:"rate_limit"`
}

type ServerConfig struct {
	Port        string `json:"port"`
	Environment string `json:"environment"`

	// Cloud deployments honor per-organization plan limits; self-hosted
	// instances are governed by instance config only.
	IsCloud bool `json:"is_cloud"`
}

type PostgresConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"-"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Password string `json:"-"`
	DB       int    `json:"db"`
}

func (r RedisConfig) GetRedisAddr() string {
	return r.Host + ":" + r.Port
}

type JWTConfig struct {
	Secret      string `json:"-"`
	ExpiryHours int    `json:"expiry_hours"`
}

type RateLimitConfig struct {
	// Limiter algorithm: fixed_window, sliding_window or token_bucket.
	Algorithm string `json:"algorithm"`

	// Instance default thresholds per category, requests per minute.
	// Missing categories get hardcoded defaults from the registry.
	Defaults ratelimit.PlanLimits `json:"defaults"`
}

func Load(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()
	config.applyEnv()

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.Environment == "" {
		c.Server.Environment = "development"
	}
	if c.Postgres.SSLMode == "" {
		c.Postgres.SSLMode = "disable"
	}
	if c.JWT.ExpiryHours == 0 {
		c.JWT.ExpiryHours = 24
	}
	if c.RateLimit.Algorithm == "" {
		c.RateLimit.Algorithm = "fixed_window"
	}
}

// Secrets come from the environment, never the config file.
func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("IS_CLOUD"); v != "" {
		c.Server.IsCloud, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		c.Postgres.Password = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.JWT.Secret = v
	}
}
