package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                 string
	DBUrl                string
	JWTSecret            string
	SupabaseURL          string
	SupabaseBucket       string
	SupabaseServiceKey   string
	KafkaBrokers         string
	KafkaTopic           string
	RedisURL             string
	AuthRateLimit        int
	AppEnv               string
	DefaultAdminEmail    string
	DefaultAdminPassword string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	jwtSecret, exists := os.LookupEnv("JWT_SECRET")
	if !exists || jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return &Config{
		Port:                 getEnv("PORT", "8080"),
		DBUrl:                getEnv("DB_URL", ""),
		JWTSecret:            jwtSecret,
		SupabaseURL:          getEnv("SUPABASE_URL", ""),
		SupabaseBucket:       getEnv("SUPABASE_BUCKET", ""),
		SupabaseServiceKey:   getEnv("SUPABASE_SERVICE_KEY", ""),
		KafkaBrokers:         getEnv("KAFKA_BROKERS", ""),
		KafkaTopic:           getEnv("KAFKA_TOPIC", "consultlink.events"),
		RedisURL:             getEnv("REDIS_URL", ""),
		AuthRateLimit:        getEnvInt("AUTH_RATE_LIMIT", 30),
		AppEnv:               normalizeEnv(getEnv("APP_ENV", "production")),
		DefaultAdminEmail:    getEnv("DEFAULT_ADMIN_EMAIL", ""),
		DefaultAdminPassword: getEnv("DEFAULT_ADMIN_PASSWORD", ""),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func normalizeEnv(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "develop", "development", "local":
		return "development"
	case "prod", "production":
		return "production"
	case "stage", "staging":
		return "staging"
	case "test", "testing":
		return "test"
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}
