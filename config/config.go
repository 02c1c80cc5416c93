package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	ShopSource       string
	ShopsConfigPath  string
	CategoriesPath   string
	CategoriesColumn string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	MaxConcurrency int
	RateLimitMs    int
	MaxRetries     int
	MaxPages       int
	PageDelay      time.Duration
	ShopTimeout    time.Duration
	SearchTimeout  time.Duration

	HTTPPort  string
	ChromeBin string
	ProxyURL  string
	UserAgent string
	LogLevel  string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		ShopSource:       getEnv("SHOP_SOURCE", "file"),
		ShopsConfigPath:  getEnv("SHOPS_CONFIG_PATH", "./configs/shops.json"),
		CategoriesPath:   getEnv("CATEGORIES_PATH", "./configs/food.csv"),
		CategoriesColumn: getEnv("CATEGORIES_COLUMN", "Turkish_names"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "sepet"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "sepet123"),
		PostgresDB:       getEnv("POSTGRES_DB", "sepet"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 4),
		RateLimitMs:    getEnvInt("RATE_LIMIT_MS", 0),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		MaxPages:       getEnvInt("MAX_PAGES", 5),
		PageDelay:      getEnvDuration("PAGE_DELAY", 500*time.Millisecond),
		ShopTimeout:    getEnvDuration("SHOP_TIMEOUT", 45*time.Second),
		SearchTimeout:  getEnvDuration("SEARCH_TIMEOUT", 90*time.Second),

		HTTPPort:  getEnv("HTTP_PORT", "8080"),
		ChromeBin: getEnv("CHROME_BIN", ""),
		ProxyURL:  getEnv("HTTP_PROXY_URL", ""),
		UserAgent: getEnv("USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/141.0.0.0 Safari/537.36"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
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

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err == nil {
			return d
		}
	}
	return fallback
}
