package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/farellandr/storefront/internal/models"
)

const (
	defaultPort          = "8080"
	defaultEnv           = "development"
	defaultAPIBaseURL    = "http://localhost:3036"
	defaultAPITimeout    = 10 * time.Second
	defaultPublicBaseURL = "http://localhost:3000"
	defaultCheckoutTTL   = 30 * time.Minute
)

var ErrMissingJWTSecret = errors.New("JWT_SECRET is required")

type Config struct {
	Port              string
	Env               string
	APIBaseURL        string
	APITimeout        time.Duration
	JWTSecret         string
	CredentialsSecret string
	PublicBaseURL     string
	CORSOrigins       []string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	RedisURL    string
	CheckoutTTL time.Duration
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", defaultPort),
		Env:               getEnv("APP_ENV", defaultEnv),
		APIBaseURL:        getEnv("API_BASE_URL", defaultAPIBaseURL),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		CredentialsSecret: os.Getenv("CREDENTIALS_SECRET"),
		PublicBaseURL:     getEnv("PUBLIC_BASE_URL", defaultPublicBaseURL),
		CORSOrigins:       parseCSV(os.Getenv("CORS_ORIGINS")),
		DBHost:            os.Getenv("DB_HOST"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBUser:            os.Getenv("DB_USER"),
		DBPassword:        os.Getenv("DB_PASSWORD"),
		DBName:            os.Getenv("DB_NAME"),
		RedisURL:          os.Getenv("REDIS_URL"),
	}

	if cfg.JWTSecret == "" {
		return nil, ErrMissingJWTSecret
	}
	if cfg.CredentialsSecret == "" {
		cfg.CredentialsSecret = cfg.JWTSecret
	}

	var err error
	if cfg.APITimeout, err = getDuration("API_TIMEOUT", defaultAPITimeout); err != nil {
		return nil, err
	}
	if cfg.CheckoutTTL, err = getDuration("CHECKOUT_TTL", defaultCheckoutTTL); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (cfg *Config) Production() bool {
	return cfg.Env == "production"
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return d, nil
}

func parseCSV(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func enableUUIDExtension(db *gorm.DB) error {
	return db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error
}

// InitDatabase opens postgres and migrates the credentials table. It returns
// nil, nil when no DB_HOST is configured.
func InitDatabase(cfg *Config) (*gorm.DB, error) {
	if cfg.DBHost == "" {
		return nil, nil
	}

	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := enableUUIDExtension(db); err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&models.Credential{}); err != nil {
		return nil, err
	}

	return db, nil
}

// InitRedis connects to REDIS_URL. It returns nil, nil when none is set.
func InitRedis(ctx context.Context, cfg *Config) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}
