package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	ServerPort string

	RedisURL string

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string

	// Moderation and lifecycle
	ReportThreshold int
	MarkerTTL       time.Duration
	ArchiveInterval time.Duration

	// Rate limiting (requests per hour, per identifier)
	RateLimitIdentity string
	RateLimitMarkers  int
	RateLimitComments int
	RateLimitReports  int
	RateLimitUpvotes  int

	CORSAllowedOrigins []string

	SearchBaseURL   string
	SearchUserAgent string

	LogLevel  string
	LogFormat string
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading it, relying on environment variables")
	}

	return &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBSSLMode:  getEnv("DB_SSLMODE", "require"),

		ServerPort: getEnv("SERVER_PORT", "8080"),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379"),

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicURL:       os.Getenv("R2_PUBLIC_URL"),

		ReportThreshold: getPositiveInt("REPORT_THRESHOLD", 5),
		MarkerTTL:       time.Duration(getPositiveInt("MARKER_TTL_HOURS", 168)) * time.Hour,
		ArchiveInterval: getDuration("ARCHIVE_INTERVAL", 15*time.Minute),

		RateLimitIdentity: getEnv("RATE_LIMIT_IDENTITY", "magic_code"),
		RateLimitMarkers:  getPositiveInt("RATE_LIMIT_MARKERS", 5),
		RateLimitComments: getPositiveInt("RATE_LIMIT_COMMENTS", 20),
		RateLimitReports:  getPositiveInt("RATE_LIMIT_REPORTS", 10),
		RateLimitUpvotes:  getPositiveInt("RATE_LIMIT_UPVOTES", 20),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),

		SearchBaseURL:   getEnv("SEARCH_BASE_URL", "https://nominatim.openstreetmap.org"),
		SearchUserAgent: getEnv("SEARCH_USER_AGENT", "PigMap.org Community Tracker (pigmap.org)"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}, nil
}

// HasBlobStore reports whether every R2 setting needed for presigned uploads is present.
func (c *Config) HasBlobStore() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" &&
		c.R2BucketName != "" && c.R2PublicURL != ""
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getPositiveInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
