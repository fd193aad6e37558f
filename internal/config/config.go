package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port               string
	DBUrl              string
	JWTSecret          string
	SupabaseURL        string
	SupabaseBucket     string
	SupabaseServiceKey string
	StripeSecretKey    string
	PaymentCurrency    string
	MeetingBaseURL     string
	AppEnv             string
	LogLevel           string
	EnableDocs         bool
	AdminEmail         string
	AdminPassword      string
	AdminFirstName     string
	AdminLastName      string
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
		Port:               getEnv("PORT", "5000"),
		DBUrl:              getEnv("DB_URL", ""),
		JWTSecret:          jwtSecret,
		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseBucket:     getEnv("SUPABASE_BUCKET", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_KEY", ""),
		StripeSecretKey:    getEnv("STRIPE_SECRET_KEY", ""),
		PaymentCurrency:    strings.ToLower(getEnv("PAYMENT_CURRENCY", "usd")),
		MeetingBaseURL:     strings.TrimRight(getEnv("MEETING_BASE_URL", "https://meet.jit.si"), "/"),
		AppEnv:             normalizeEnv(getEnv("APP_ENV", "production")),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		EnableDocs:         getEnvBool("ENABLE_API_DOCS", false),
		AdminEmail:         getEnv("ADMIN_EMAIL", ""),
		AdminPassword:      getEnv("ADMIN_PASSWORD", ""),
		AdminFirstName:     getEnv("ADMIN_FIRST_NAME", "Site"),
		AdminLastName:      getEnv("ADMIN_LAST_NAME", "Admin"),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}

	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
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

func (c *Config) DocsEnabled() bool {
	return c != nil && c.EnableDocs && c.AppEnv == "development"
}

func (c *Config) PaymentsEnabled() bool {
	return c != nil && c.StripeSecretKey != ""
}

func (c *Config) StorageEnabled() bool {
	return c != nil && c.SupabaseURL != "" && c.SupabaseBucket != "" && c.SupabaseServiceKey != ""
}

func (c *Config) SeedAdmin() bool {
	return c != nil && c.AdminEmail != "" && c.AdminPassword != ""
}
