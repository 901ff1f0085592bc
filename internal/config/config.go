// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	ListenAddr    string
	MigrationsDir string

	Database    DatabaseConfig
	Auth        AuthConfig
	ObjectStore ObjectStoreConfig
	NATSURL     string
	Enhancer    EnhancerConfig
}

type DatabaseConfig struct {
	DSN     string
	MaxOpen int
	MaxIdle int
}

type AuthConfig struct {
	JWTSecret string
	// AdminEmails is the fallback allowlist consulted only when a token
	// carries no role claim.
	AdminEmails []string
}

type ObjectStoreConfig struct {
	Dir     string
	BaseURL string
}

type EnhancerConfig struct {
	Endpoint string
	Timeout  time.Duration
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		ListenAddr:    getEnv("LISTEN_ADDR", ":8080"),
		MigrationsDir: getEnv("MIGRATIONS_DIR", "migrations"),
		Database: DatabaseConfig{
			DSN:     getEnv("DB_URL", ""),
			MaxOpen: getEnvAsInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdle: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		},
		Auth: AuthConfig{
			JWTSecret:   getEnv("JWT_SECRET", ""),
			AdminEmails: splitList(getEnv("ADMIN_EMAILS", "")),
		},
		ObjectStore: ObjectStoreConfig{
			Dir:     getEnv("OBJECT_STORE_DIR", "./data/objects"),
			BaseURL: getEnv("OBJECT_STORE_BASE_URL", "http://localhost:8080/files"),
		},
		NATSURL: getEnv("NATS_URL", ""),
		Enhancer: EnhancerConfig{
			Endpoint: getEnv("ENHANCER_URL", ""),
			Timeout:  getEnvAsDuration("ENHANCER_TIMEOUT", 30*time.Second),
		},
	}
}

// Validate checks the settings the service cannot run without.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("DB_URL is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
