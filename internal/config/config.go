package config

import (
	"fmt"
	"os"
	"time"
)

const ServiceName = "orders-service"

type Config struct {
	Port string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	MigrationsPath string

	// SweepInterval is how often abandoned reservations are looked for;
	// SweepGrace is how old a held reservation must be before it is
	// considered abandoned.
	SweepInterval time.Duration
	SweepGrace    time.Duration
}

func Load() *Config {
	return &Config{
		Port:           getEnvOrDefault("PORT", "8001"),
		DBHost:         getEnvOrDefault("DB_HOST", "localhost"),
		DBPort:         getEnvOrDefault("DB_PORT", "5432"),
		DBUser:         getEnvOrDefault("DB_USER", "postgres"),
		DBPassword:     getEnvOrDefault("DB_PASSWORD", "postgres"),
		DBName:         getEnvOrDefault("DB_NAME", "orders_db"),
		DBSSLMode:      getEnvOrDefault("DB_SSLMODE", "disable"),
		MigrationsPath: getEnvOrDefault("MIGRATIONS_PATH", "migrations"),
		SweepInterval:  getDurationOrDefault("SWEEP_INTERVAL", 30*time.Second),
		SweepGrace:     getDurationOrDefault("SWEEP_GRACE", 5*time.Minute),
	}
}

func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
