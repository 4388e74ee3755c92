package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

// Config holds application configuration values.
type Config struct {
	Secret            string
	DatabaseDSN       string
	HTTPPort          string
	LogLevel          string
	CORSOrigins       []string
	LowStockThreshold int64
	AdminEmail        string
	AdminPassword     string
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Load reads configuration from environment variables with reasonable defaults.
func Load() Config {
	secret := getenv("SECRET", "dev_secret")
	port := getenv("HTTP_PORT", "8080")
	dsn := getenv("DATABASE_DSN", "file:pharmadesk.db?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")

	// Validate that port is numeric.
	if _, err := strconv.Atoi(port); err != nil {
		log.Printf("invalid HTTP_PORT value %q, defaulting to 8080", port)
		port = "8080"
	}

	threshold := int64(10)
	if raw := os.Getenv("LOW_STOCK_THRESHOLD"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 {
			threshold = n
		} else {
			log.Printf("invalid LOW_STOCK_THRESHOLD value %q, defaulting to %d", raw, threshold)
		}
	}

	var origins []string
	for _, o := range strings.Split(getenv("CORS_ORIGINS", "*"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return Config{
		Secret:            secret,
		DatabaseDSN:       dsn,
		HTTPPort:          port,
		LogLevel:          getenv("LOG_LEVEL", "info"),
		CORSOrigins:       origins,
		LowStockThreshold: threshold,
		AdminEmail:        getenv("ADMIN_EMAIL", "admin@pharmadesk.local"),
		AdminPassword:     getenv("ADMIN_PASSWORD", "admin"),
	}
}
