package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config - структура для хранения конфигурации приложения
type Config struct {
	DatabaseURL string `env:"DATABASE_URL"`
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Redis Config
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Webhook Config
	WebhookURL        string        `env:"WEBHOOK_URL"`
	WebhookSecret     string        `env:"WEBHOOK_SECRET"`
	WebhookTimeout    time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"5s"`
	WebhookMaxRetries int           `env:"WEBHOOK_MAX_RETRIES" envDefault:"3"`
	WebhookBaseDelay  time.Duration `env:"WEBHOOK_BASE_DELAY" envDefault:"1s"`

	// API Keys for authentication
	APIKeys []string `env:"API_KEYS"`

	IncidentCacheTTL time.Duration `env:"INCIDENT_CACHE_TTL" envDefault:"5m"`

	// Сопоставление отчетов с инцидентами
	MatchSpatialToleranceMeters float64       `env:"MATCH_SPATIAL_TOLERANCE_METERS" envDefault:"25"`
	MatchDateToleranceDays      int           `env:"MATCH_DATE_TOLERANCE_DAYS" envDefault:"7"`
	MatchTimeToleranceMinutes   int           `env:"MATCH_TIME_TOLERANCE_MINUTES" envDefault:"300"`
	IncidentDefaultRadiusMeters int           `env:"INCIDENT_DEFAULT_RADIUS_METERS" envDefault:"10"`
	AttachMaxRetries            int           `env:"ATTACH_MAX_RETRIES" envDefault:"3"`
	CreationGuardTTL            time.Duration `env:"CREATION_GUARD_TTL" envDefault:"10s"`
	CreationGuardWait           time.Duration `env:"CREATION_GUARD_WAIT" envDefault:"3s"`

	// Маршрутизация
	RiskProximityMeters  float64 `env:"RISK_PROXIMITY_METERS" envDefault:"10"`
	RiskMultiplierLow    float64 `env:"RISK_MULTIPLIER_LOW" envDefault:"1.25"`
	RiskMultiplierMedium float64 `env:"RISK_MULTIPLIER_MEDIUM" envDefault:"2.5"`
	RiskMultiplierHigh   float64 `env:"RISK_MULTIPLIER_HIGH" envDefault:"6"`
	RouteMaxExpansions   int     `env:"ROUTE_MAX_EXPANSIONS" envDefault:"500000"`
}

// LoadConfig загружает конфигурацию из переменных окружения и .env файла
func LoadConfig() (*Config, error) {
	// Загрузка переменных окружения из .env файла (если есть)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("ошибка загрузки файла .env: %w", err)
	}

	cfg := &Config{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		HTTPPort:          getEnv("HTTP_PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:           getEnvAsInt("REDIS_DB", 0),
		WebhookURL:        os.Getenv("WEBHOOK_URL"),
		WebhookSecret:     os.Getenv("WEBHOOK_SECRET"),
		WebhookTimeout:    getEnvAsDuration("WEBHOOK_TIMEOUT", 5*time.Second),
		WebhookMaxRetries: getEnvAsInt("WEBHOOK_MAX_RETRIES", 3),
		WebhookBaseDelay:  getEnvAsDuration("WEBHOOK_BASE_DELAY", time.Second),
		IncidentCacheTTL:  getEnvAsDuration("INCIDENT_CACHE_TTL", 5*time.Minute),

		MatchSpatialToleranceMeters: getEnvAsFloat("MATCH_SPATIAL_TOLERANCE_METERS", 25),
		MatchDateToleranceDays:      getEnvAsInt("MATCH_DATE_TOLERANCE_DAYS", 7),
		MatchTimeToleranceMinutes:   getEnvAsInt("MATCH_TIME_TOLERANCE_MINUTES", 300),
		IncidentDefaultRadiusMeters: getEnvAsInt("INCIDENT_DEFAULT_RADIUS_METERS", 10),
		AttachMaxRetries:            getEnvAsInt("ATTACH_MAX_RETRIES", 3),
		CreationGuardTTL:            getEnvAsDuration("CREATION_GUARD_TTL", 10*time.Second),
		CreationGuardWait:           getEnvAsDuration("CREATION_GUARD_WAIT", 3*time.Second),

		RiskProximityMeters:  getEnvAsFloat("RISK_PROXIMITY_METERS", 10),
		RiskMultiplierLow:    getEnvAsFloat("RISK_MULTIPLIER_LOW", 1.25),
		RiskMultiplierMedium: getEnvAsFloat("RISK_MULTIPLIER_MEDIUM", 2.5),
		RiskMultiplierHigh:   getEnvAsFloat("RISK_MULTIPLIER_HIGH", 6),
		RouteMaxExpansions:   getEnvAsInt("ROUTE_MAX_EXPANSIONS", 500000),
	}

	// Загрузка API ключей
	apiKeysStr := os.Getenv("API_KEYS")
	if apiKeysStr != "" {
		cfg.APIKeys = strings.Split(apiKeysStr, ",")
		for i, key := range cfg.APIKeys {
			cfg.APIKeys[i] = strings.TrimSpace(key)
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if cfg.AttachMaxRetries < 1 {
		return nil, fmt.Errorf("ATTACH_MAX_RETRIES must be at least 1, got %d", cfg.AttachMaxRetries)
	}
	if cfg.WebhookMaxRetries < 1 {
		return nil, fmt.Errorf("WEBHOOK_MAX_RETRIES must be at least 1, got %d", cfg.WebhookMaxRetries)
	}
	if cfg.IncidentDefaultRadiusMeters < 1 {
		return nil, fmt.Errorf("INCIDENT_DEFAULT_RADIUS_METERS must be positive, got %d", cfg.IncidentDefaultRadiusMeters)
	}

	return cfg, nil
}

// getEnv возвращает значение переменной окружения или значение по умолчанию
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt возвращает значение переменной окружения как int или значение по умолчанию
func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsDuration возвращает значение переменной окружения как time.Duration или значение по умолчанию
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if durationValue, err := time.ParseDuration(value); err == nil {
			return durationValue
		}
	}
	return defaultValue
}
