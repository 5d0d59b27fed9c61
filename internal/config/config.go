package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// S3Config holds object storage settings for AWS S3 or any S3-compatible endpoint.
type S3Config struct {
	Region       string
	Bucket       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// StorageConfig selects and configures the blob store backend.
type StorageConfig struct {
	Driver string // "minio" or "s3"
	MinIO  MinIOConfig
	S3     S3Config
}

// PaymentConfig holds the settings of the purchase protocol.
type PaymentConfig struct {
	// ServerPrivateKey is the hex-encoded secp256k1 identity key of the seller side.
	ServerPrivateKey string
	// Network selects address parameters: "main" or "test".
	Network       string
	ContentURLTTL time.Duration
}

// RateLimitConfig configures the per-client limiter on the purchase endpoint.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// DefaultPaymentHeaderMaxBytes fits a BEEF payment carrying a few ancestors with
// their merkle paths.
const DefaultPaymentHeaderMaxBytes = 64 << 10

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost        string
	Port           string
	TimeZone       string
	LogLevel       string
	PublicBaseURL  string
	UploadMaxBytes int
	Database       DatabaseConfig
	Storage        StorageConfig
	Payment        PaymentConfig
	RateLimit      RateLimitConfig

	// PaymentHeaderMaxBytes sizes the request read buffer. The whole X-BSV-Payment
	// JSON, transaction included, arrives as a header.
	PaymentHeaderMaxBytes int
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:               getEnv("APP_HOST", "localhost:8080"),
		Port:                  getEnv("PORT", "8080"),
		TimeZone:              getEnv("APP_TIMEZONE", "UTC"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		PublicBaseURL:         strings.TrimRight(getEnv("PUBLIC_BASE_URL", ""), "/"),
		UploadMaxBytes:        getEnvInt("UPLOAD_MAX_BYTES", 50*1024*1024),
		PaymentHeaderMaxBytes: getEnvInt("PAYMENT_HEADER_MAX_BYTES", DefaultPaymentHeaderMaxBytes),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		Storage: StorageConfig{
			Driver: strings.ToLower(getEnv("STORAGE_DRIVER", "minio")),
			MinIO: MinIOConfig{
				Endpoint:  getEnv("MINIO_ENDPOINT", ""),
				AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
				SecretKey: getEnv("MINIO_SECRET_KEY", ""),
				Bucket:    getEnv("MINIO_BUCKET", ""),
				UseSSL:    getEnvBool("MINIO_USE_SSL", false),
			},
			S3: S3Config{
				Region:       getEnv("S3_REGION", "us-east-1"),
				Bucket:       getEnv("S3_BUCKET", ""),
				Endpoint:     getEnv("S3_ENDPOINT", ""),
				AccessKey:    getEnv("S3_ACCESS_KEY", ""),
				SecretKey:    getEnv("S3_SECRET_KEY", ""),
				UsePathStyle: getEnvBool("S3_USE_PATH_STYLE", false),
			},
		},
		Payment: PaymentConfig{
			ServerPrivateKey: getEnv("SERVER_PRIVATE_KEY", ""),
			Network:          getEnv("BSV_NETWORK", "main"),
			ContentURLTTL:    time.Duration(getEnvInt("CONTENT_URL_TTL_SEC", 3600)) * time.Second,
		},
		RateLimit: RateLimitConfig{
			RPS:   getEnvFloat("PURCHASE_RATE_LIMIT_RPS", 5),
			Burst: getEnvInt("PURCHASE_RATE_LIMIT_BURST", 10),
		},
	}
}

// Location resolves TimeZone, falling back to UTC when it is unknown.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}
