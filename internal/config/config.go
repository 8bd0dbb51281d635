package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURI string

	// SweepInterval is the reminder sweep tick period.
	SweepInterval time.Duration
	// MaterializeCron is the daily materialization schedule (cron spec).
	MaterializeCron string
	// HorizonDays is how far ahead occurrences are materialized.
	HorizonDays int

	MailCC     string
	MailSender string
	LogoPath   string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// .env file is optional in production
	}

	return &Config{
		DatabaseURI:     os.Getenv("DATABASE_URI"),
		SweepInterval:   getDurationOrDefault("SWEEP_INTERVAL", time.Minute),
		MaterializeCron: getEnvOrDefault("MATERIALIZE_CRON", "30 0 * * *"),
		HorizonDays:     getIntOrDefault("HORIZON_DAYS", 365),
		MailCC:          os.Getenv("MAIL_CC"),
		MailSender:      os.Getenv("MAIL_SENDER"),
		LogoPath:        getEnvOrDefault("MAIL_LOGO", "statics/logo.jpg"),
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
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
