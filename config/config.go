package config

import (
	"os"
	"strconv"

	"storefront-api/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config carries all runtime settings, loaded once at startup and
// passed to the components that need them.
type Config struct {
	Port      string
	DBPath    string
	JWTSecret []byte

	// Notification channels
	SMTPAddr      string // host:port of the SMTP relay
	SMTPFrom      string
	WhatsAppURL   string // business-messaging template API endpoint
	WhatsAppToken string

	// Country code prefixed to bare 10-digit phone numbers
	DefaultCountryCode string

	NotifyQueueSize int
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		DBPath:             getEnv("DB_PATH", "storefront.db"),
		JWTSecret:          []byte(getEnv("JWT_SECRET", "storefront_super_secret_2024")),
		SMTPAddr:           getEnv("SMTP_ADDR", "localhost:1025"),
		SMTPFrom:           getEnv("SMTP_FROM", "orders@storefront.local"),
		WhatsAppURL:        getEnv("WHATSAPP_API_URL", ""),
		WhatsAppToken:      getEnv("WHATSAPP_API_TOKEN", ""),
		DefaultCountryCode: getEnv("DEFAULT_COUNTRY_CODE", "91"),
		NotifyQueueSize:    getEnvInt("NOTIFY_QUEUE_SIZE", 64),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// OpenDB connects to the database and migrates the schema. The returned
// handle is injected into handlers and services; there is no package-global
// client.
func OpenDB(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	// Auto-migrate all models
	err = db.AutoMigrate(
		&models.User{},
		&models.Store{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}
