package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DB struct {
		Host     string
		Port     int
		User     string
		Password string
		Database string
	}
	RabbitMQ struct {
		Host     string
		Port     int
		User     string
		Password string
	}
	HTTP struct {
		Port int
	}
	Auth struct {
		JWTSecret     string
		TokenDuration time.Duration
	}
	Ride struct {
		LockTimeout time.Duration
	}
}

// Load reads an optional .env file into the environment, then populates the
// config with env values falling back to development defaults.
func Load(filename string) (*Config, error) {
	if filename != "" {
		if err := loadEnvFile(filename); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}

	cfg := &Config{}
	cfg.DB.Host = getEnv("DB_HOST", "localhost")
	cfg.DB.Port = getEnvAsInt("DB_PORT", 5432)
	cfg.DB.User = getEnv("DB_USER", "ride_user")
	cfg.DB.Password = getEnv("DB_PASS", "ride_pass")
	cfg.DB.Database = getEnv("DB_NAME", "ride_db")
	cfg.RabbitMQ.Host = getEnv("RABBITMQ_HOST", "localhost")
	cfg.RabbitMQ.Port = getEnvAsInt("RABBITMQ_PORT", 5672)
	cfg.RabbitMQ.User = getEnv("RABBITMQ_USER", "guest")
	cfg.RabbitMQ.Password = getEnv("RABBITMQ_PASS", "guest")
	cfg.HTTP.Port = getEnvAsInt("HTTP_PORT", 3000)
	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", "dev-secret")
	cfg.Auth.TokenDuration = getEnvAsDuration("JWT_TOKEN_DURATION", time.Hour)
	cfg.Ride.LockTimeout = getEnvAsDuration("RIDE_LOCK_TIMEOUT", 3*time.Second)

	return cfg, nil
}

func loadEnvFile(filename string) error {
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

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)

		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("could not set env var %s: %w", key, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading env file: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}
