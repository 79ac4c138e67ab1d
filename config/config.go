package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DBDriver   string // "sqlite" or "postgres"
	SQLitePath string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	HomepageURL string
	SearchURL   string
	ChromeBin   string

	MaxRetries      int
	FetchTimeoutSec int
	RefreshMinutes  int

	HTTPPort        int
	CSVSnapshotPath string
	Debug           bool
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		DBDriver:   getEnv("DB_DRIVER", "sqlite"),
		SQLitePath: getEnv("SQLITE_PATH", "./data/apartments.db"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "tracker"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "tracker123"),
		PostgresDB:       getEnv("POSTGRES_DB", "apartment_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		HomepageURL: getEnv("HOMEPAGE_URL", "https://www.villagesonmcknight.com/"),
		SearchURL:   getEnv("SEARCH_URL", "https://www.villagesonmcknight.com/floorplans/highwood?Beds=1"),
		ChromeBin:   getEnv("CHROME_BIN", ""),

		MaxRetries:      getEnvInt("MAX_RETRIES", 3),
		FetchTimeoutSec: getEnvInt("FETCH_TIMEOUT_SEC", 90),
		RefreshMinutes:  getEnvInt("REFRESH_INTERVAL_MIN", 30),

		HTTPPort:        getEnvInt("HTTP_PORT", 5000),
		CSVSnapshotPath: getEnv("CSV_SNAPSHOT_PATH", ""),
		Debug:           getEnvBool("DEBUG", false),
	}
}

// DSN returns the database connection string for the configured driver.
func (c *Config) DSN() string {
	if c.DBDriver == "sqlite" {
		return c.SQLitePath
	}
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
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
		log.Printf("[config] Invalid integer for %s, using default %d", key, fallback)
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		log.Printf("[config] Invalid boolean for %s, using default %v", key, fallback)
	}
	return fallback
}
