package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	AWS       AWSConfig
	Messaging MessagingDefaults
	Dispatch  DispatchConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all (e.g. http://localhost:5173)
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is (e.g. postgres://localhost:5432/invites?sslmode=disable)
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds the secret used by the auth provider to sign access tokens.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// AWSConfig holds AWS credentials and the card image bucket.
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	CardsBucket     string
	PublicBaseURL   string // optional CDN/base URL for card objects; empty = virtual-hosted S3 URL
}

// MessagingDefaults is the system-wide messaging configuration used when a user
// has not switched on their own credentials. Built once at start-up.
type MessagingDefaults struct {
	WhatsAppAPIKey            string
	WhatsAppPhoneNumber       string
	WhatsAppPhoneNumberID     string
	WhatsAppBusinessAccountID string
	WhatsAppEnabled           bool
	WhatsAppGraphURL          string
	SMSAPIKey                 string
	SMSAPISecret              string
	SMSProvider               string
	SMSPhoneNumber            string
	SMSSenderID               string
	SMSWebhookURL             string
	SMSEnabled                bool
	EmailNotifications        bool
	PushNotifications         bool
}

// DispatchConfig holds timeouts for the invitation send pipeline.
type DispatchConfig struct {
	InProcessWorker   bool
	ConfigTimeout     time.Duration
	SendTimeout       time.Duration
	UpdateTimeout     time.Duration
	BackgroundTimeout time.Duration // fetching a card design's background image
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// MissingAdminSettings lists the environment keys the default WhatsApp/SMS setup needs but lacks.
func (m MessagingDefaults) MissingAdminSettings() []string {
	var missing []string
	check := func(key, value string) {
		if value == "" {
			missing = append(missing, key)
		}
	}
	check("ADMIN_WHATSAPP_API_KEY", m.WhatsAppAPIKey)
	check("ADMIN_WHATSAPP_PHONE_NUMBER", m.WhatsAppPhoneNumber)
	check("ADMIN_WHATSAPP_PHONE_NUMBER_ID", m.WhatsAppPhoneNumberID)
	check("ADMIN_WHATSAPP_BUSINESS_ACCOUNT_ID", m.WhatsAppBusinessAccountID)
	check("ADMIN_SMS_API_KEY", m.SMSAPIKey)
	check("ADMIN_SMS_PHONE_NUMBER", m.SMSPhoneNumber)
	return missing
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "invites"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 10),
			MinConns: getEnvInt("DB_MIN_CONNS", 0),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			CardsBucket:     getEnv("AWS_S3_CARDS_BUCKET", "card-images"),
			PublicBaseURL:   getEnv("CARDS_PUBLIC_BASE_URL", ""),
		},
		Messaging: MessagingDefaults{
			WhatsAppAPIKey:            getEnv("ADMIN_WHATSAPP_API_KEY", ""),
			WhatsAppPhoneNumber:       getEnv("ADMIN_WHATSAPP_PHONE_NUMBER", ""),
			WhatsAppPhoneNumberID:     getEnv("ADMIN_WHATSAPP_PHONE_NUMBER_ID", ""),
			WhatsAppBusinessAccountID: getEnv("ADMIN_WHATSAPP_BUSINESS_ACCOUNT_ID", ""),
			WhatsAppEnabled:           getEnvBool("ADMIN_WHATSAPP_ENABLED", false),
			WhatsAppGraphURL:          getEnv("WHATSAPP_GRAPH_URL", "https://graph.facebook.com"),
			SMSAPIKey:                 getEnv("ADMIN_SMS_API_KEY", ""),
			SMSAPISecret:              getEnv("ADMIN_SMS_API_SECRET", ""),
			SMSProvider:               getEnv("ADMIN_SMS_PROVIDER", "kilakona"),
			SMSPhoneNumber:            getEnv("ADMIN_SMS_PHONE_NUMBER", ""),
			SMSSenderID:               getEnv("ADMIN_SMS_SENDER_ID", ""),
			SMSWebhookURL:             getEnv("ADMIN_SMS_WEBHOOK_URL", ""),
			SMSEnabled:                getEnvBool("ADMIN_SMS_ENABLED", false),
			EmailNotifications:        true,
			PushNotifications:         false,
		},
		Dispatch: DispatchConfig{
			InProcessWorker:   getEnvBool("DISPATCH_IN_PROCESS", true),
			ConfigTimeout:     time.Duration(getEnvInt("DISPATCH_CONFIG_TIMEOUT_SEC", 5)) * time.Second,
			SendTimeout:       time.Duration(getEnvInt("DISPATCH_SEND_TIMEOUT_SEC", 15)) * time.Second,
			UpdateTimeout:     time.Duration(getEnvInt("DISPATCH_UPDATE_TIMEOUT_SEC", 30)) * time.Second,
			BackgroundTimeout: time.Duration(getEnvInt("CARD_BACKGROUND_TIMEOUT_SEC", 10)) * time.Second,
		},
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
