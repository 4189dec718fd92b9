package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Port     string
	GinMode  string
	LogLevel string

	ModelPath    string
	ModelVersion string
	MockSeed     int64
	PolicyPath   string

	StoreDriver      string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	SQLitePath       string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	BatchWorkers   int
	MaxConcurrency int
	RateLimitMs    int
	MaxRetries     int
	APIRPS         float64
	APIBurst       int

	CSVOutputPath  string
	ChromeBin      string
	ScrapeCategory string
	ScrapeCountry  string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current process environment only.
func FromEnv() *Config {
	return &Config{
		Port:     getEnv("PORT", "8000"),
		GinMode:  getEnv("GIN_MODE", "release"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		ModelPath:    getEnv("MODEL_PATH", "./models/model.json"),
		ModelVersion: getEnv("MODEL_VERSION", "v0.1"),
		MockSeed:     int64(getEnvInt("MOCK_SEED", 42)),
		PolicyPath:   getEnv("POLICY_PATH", ""),

		StoreDriver:      strings.ToLower(getEnv("STORE_DRIVER", "none")),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "fraud"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "fraud123"),
		PostgresDB:       getEnv("POSTGRES_DB", "listing_fraud"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		SQLitePath:       getEnv("SQLITE_PATH", "./output/verdicts.db"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CacheTTL:      getEnvDuration("CACHE_TTL", 10*time.Minute),

		BatchWorkers:   getEnvInt("BATCH_WORKERS", 4),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 3),
		RateLimitMs:    getEnvInt("RATE_LIMIT_MS", 2000),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		APIRPS:         getEnvFloat("API_RPS", 20),
		APIBurst:       getEnvInt("API_BURST", 40),

		CSVOutputPath:  getEnv("CSV_OUTPUT_PATH", "./output/raw_listings.csv"),
		ChromeBin:      getEnv("CHROME_BIN", ""),
		ScrapeCategory: getEnv("SCRAPE_CATEGORY", "electronics"),
		ScrapeCountry:  getEnv("SCRAPE_COUNTRY", "US"),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// RateLimit is the minimum spacing between page visits.
func (c *Config) RateLimit() time.Duration {
	return time.Duration(c.RateLimitMs) * time.Millisecond
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err == nil {
			return d
		}
	}
	return fallback
}
