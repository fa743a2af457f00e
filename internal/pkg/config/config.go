package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type PostgresConfig struct {
	Host     string
	Port     string
	DB       string
	Username string
	Password string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

type RepositoriesConfig struct {
	Postgres PostgresConfig
}

// SessionConfig controls server-side session lifetime. A zero TTL means
// sessions only die on explicit logout, matching the original deployment.
type SessionConfig struct {
	TTL time.Duration
}

// BillImageConfig carries the client-side compression policy (advisory,
// returned on /image-policy) and the server-side hard ceiling on the decoded
// payload, which is enforced regardless of what the client does.
type BillImageConfig struct {
	MaxSizeKB      int
	MaxDimensionPX int
	MaxUploadBytes int
}

type Config struct {
	Repositories RepositoriesConfig
	Session      SessionConfig
	BillImage    BillImageConfig
	ServerPort   string
}

func Load() (*Config, error) {
	cfg := &Config{
		Repositories: RepositoriesConfig{
			Postgres: PostgresConfig{
				Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
				Port:     getEnvOrDefault("POSTGRES_PORT", "5432"),
				DB:       getEnvOrDefault("POSTGRES_DB", "expensefund"),
				Username: getEnvOrDefault("POSTGRES_USER", "postgres"),
				Password: getEnvOrDefault("POSTGRES_PASSWORD", ""),
				SSLMode:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
				MaxConns: 30,
				MinConns: 5,
			},
		},
		Session: SessionConfig{
			TTL: getEnvDuration("SESSION_TTL", 0),
		},
		BillImage: BillImageConfig{
			MaxSizeKB:      getEnvInt("BILL_IMAGE_MAX_SIZE_KB", 20),
			MaxDimensionPX: getEnvInt("BILL_IMAGE_MAX_DIMENSION_PX", 800),
			MaxUploadBytes: getEnvInt("BILL_IMAGE_MAX_UPLOAD_BYTES", 512<<10),
		},
		ServerPort: getEnvOrDefault("SERVER_PORT", "8080"),
	}

	if cfg.Repositories.Postgres.Password == "" {
		return nil, fmt.Errorf("POSTGRES_PASSWORD environment variable is required")
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
