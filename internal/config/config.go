package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"saascore/internal/providers"
)

// Config holds everything the process needs, loaded from the environment.
// A .env file is honored when present but never required.
type Config struct {
	Port        string
	DatabaseURL string

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	AuthProvider   string
	ProviderConfig providers.Config

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	SessionSweepInterval time.Duration
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables")
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTSecret:       os.Getenv("JWT_SECRET"),
		AccessTokenTTL:  getDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: getDuration("REFRESH_TOKEN_TTL", 720*time.Hour),

		AuthProvider: getEnv("AUTH_PROVIDER", "supabase"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
		MinioBucket:    getEnv("MINIO_BUCKET", "saascore-assets"),
		MinioUseSSL:    os.Getenv("MINIO_USE_SSL") == "true",

		SessionSweepInterval: getDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	cfg.ProviderConfig = providerConfig(cfg.AuthProvider, cfg.JWTSecret)

	return cfg, nil
}

// providerConfig collects the provider-specific settings for the registry
// factory. Unknown providers get an empty config and land on the stub.
func providerConfig(name, jwtSecret string) providers.Config {
	switch name {
	case "supabase":
		return providers.Config{
			"url":         os.Getenv("SUPABASE_URL"),
			"anon_key":    os.Getenv("SUPABASE_ANON_KEY"),
			"service_key": os.Getenv("SUPABASE_SERVICE_KEY"),
			"jwt_secret":  os.Getenv("SUPABASE_JWT_SECRET"),
			"jwks_url":    os.Getenv("SUPABASE_JWKS_URL"),
		}
	case "custom":
		return providers.Config{
			"jwt_secret": jwtSecret,
		}
	default:
		return providers.Config{}
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid value for %s: %q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("invalid duration for %s: %q, using %s", key, v, fallback)
		return fallback
	}
	return d
}
