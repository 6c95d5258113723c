package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	AppMode  string
	Port     string
	Database DatabaseConfig
	JWT      JWTConfig
	Schedule ScheduleConfig

	// EnvFileLoaded is false when no .env file was found
	EnvFileLoaded bool
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret          string
	AccessTokenMins int
}

// ScheduleConfig holds the business calendar settings
type ScheduleConfig struct {
	// Timezone defines what "today" and "tomorrow" mean for urgency and dashboards
	Timezone string
	// UrgencySweepCron is the cron spec of the nightly urgency sweep; empty disables it
	UrgencySweepCron string
}

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// .env is optional in production
	envLoaded := godotenv.Load() == nil

	// trim spaces for Windows compatibility
	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	cfg := &Config{
		AppMode:       appMode,
		Port:          getEnv("PORT", "3000"),
		Database:      loadDatabaseConfig(appMode),
		JWT:           loadJWTConfig(appMode),
		Schedule:      loadScheduleConfig(),
		EnvFileLoaded: envLoaded,
	}

	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	if cfg.IsProd() && cfg.JWT.Secret == defaultJWTSecret {
		return nil, fmt.Errorf("PROD_JWT_SECRET must be set in prod mode")
	}

	return cfg, nil
}

func modePrefix(mode string) string {
	if mode == "prod" {
		return "PROD_"
	}
	return "DEV_"
}

// loadDatabaseConfig loads database config based on mode
func loadDatabaseConfig(mode string) DatabaseConfig {
	prefix := modePrefix(mode)

	return DatabaseConfig{
		Host:     getEnv(prefix+"DB_HOST", "localhost"),
		Port:     getEnv(prefix+"DB_PORT", "3306"),
		User:     getEnv(prefix+"DB_USER", "root"),
		Password: getEnv(prefix+"DB_PASS", ""),
		DBName:   getEnv(prefix+"DB_NAME", "loanhub"),
	}
}

const defaultJWTSecret = "default_secret"

// loadJWTConfig loads JWT config based on mode
func loadJWTConfig(mode string) JWTConfig {
	prefix := modePrefix(mode)

	accessMins, err := strconv.Atoi(getEnv("ACCESS_TOKEN_MINUTES", "480"))
	if err != nil || accessMins < 1 {
		accessMins = 480
	}

	return JWTConfig{
		Secret:          getEnv(prefix+"JWT_SECRET", defaultJWTSecret),
		AccessTokenMins: accessMins,
	}
}

func loadScheduleConfig() ScheduleConfig {
	sweep := "5 0 * * *"
	if spec, ok := os.LookupEnv("URGENCY_SWEEP_CRON"); ok {
		sweep = strings.TrimSpace(spec)
	}
	return ScheduleConfig{
		Timezone:         getEnv("TIMEZONE", "Asia/Seoul"),
		UrgencySweepCron: sweep,
	}
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// Location resolves the configured business time zone
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Schedule.Timezone, err)
	}
	return loc, nil
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	origins := getEnv("ALLOWED_ORIGINS", "")
	if origins == "" {
		if c.IsDev() {
			return "*"
		}
		return "https://loanhub.local"
	}
	return origins
}
