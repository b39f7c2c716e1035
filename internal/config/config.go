package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration (optional, enables persistent audit + rate limits)
	Database DatabaseConfig

	// JWT configuration for member access tokens
	JWT JWTConfig

	// Remote travel API configuration
	TourAPI TourAPIConfig

	// Booking form configuration
	Booking BookingConfig

	// OTP configuration
	OTP OTPConfig

	// CORS configuration
	CORS CORSConfig

	// Security configuration
	Security SecurityConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// Enabled reports whether a database is configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret            string
	Issuer            string
	AccessTokenExpiry time.Duration
}

// TourAPIConfig holds the travel agency API client configuration
type TourAPIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// BookingConfig holds booking draft and pricing policy configuration
type BookingConfig struct {
	DraftIdleTTL             time.Duration
	SweepSchedule            string // cron spec for the idle draft sweeper
	InfantPolicy             string // "billed" or "free"
	RoomRateTriple           int64
	RoomRateTwin             int64
	RoomRateDouble           int64
	SingleSupplementOverride int64
}

// OTPConfig holds OTP-related configuration
type OTPConfig struct {
	MaxPhoneRequests int
	PhoneWindow      time.Duration
	MaxIPRequests    int
	IPWindow         time.Duration
	ExposeDebugCode  bool // pass the remote debug_code through, development only
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	EnableRequestLog bool
	EnableAuditLog   bool
	AuditHashKey     string // keys the phone pseudonyms written to audit rows
	AuditRetention   time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", ""),
			Issuer:            getEnv("JWT_ISSUER", "tripnest"),
			AccessTokenExpiry: time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
		},
		TourAPI: TourAPIConfig{
			BaseURL: getEnv("TOUR_API_BASE_URL", "http://localhost:9000/api"),
			Timeout: time.Duration(getEnvAsInt("TOUR_API_TIMEOUT_SECONDS", 15)) * time.Second,
		},
		Booking: BookingConfig{
			DraftIdleTTL:             time.Duration(getEnvAsInt("BOOKING_DRAFT_IDLE_MINUTES", 30)) * time.Minute,
			SweepSchedule:            getEnv("BOOKING_DRAFT_SWEEP_SCHEDULE", "@every 1m"),
			InfantPolicy:             getEnv("BOOKING_INFANT_POLICY", "billed"),
			RoomRateTriple:           getEnvAsInt64("BOOKING_ROOM_RATE_TRIPLE", 0),
			RoomRateTwin:             getEnvAsInt64("BOOKING_ROOM_RATE_TWIN", 0),
			RoomRateDouble:           getEnvAsInt64("BOOKING_ROOM_RATE_DOUBLE", 0),
			SingleSupplementOverride: getEnvAsInt64("BOOKING_SINGLE_SUPPLEMENT", 0),
		},
		OTP: LoadOTP(),
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		Security: SecurityConfig{
			EnableRequestLog: getEnvAsBool("ENABLE_REQUEST_LOGGING", true),
			EnableAuditLog:   getEnvAsBool("ENABLE_AUDIT_LOGGING", true),
			AuditHashKey:     getEnv("AUDIT_HASH_KEY", ""),
			AuditRetention:   time.Duration(getEnvAsInt("AUDIT_RETENTION_DAYS", 90)) * 24 * time.Hour,
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadOTP reads only the OTP settings, for tools that prune rate limit
// windows without the rest of the server configuration
func LoadOTP() OTPConfig {
	return OTPConfig{
		MaxPhoneRequests: getEnvAsInt("OTP_RATE_LIMIT", 3),
		PhoneWindow:      time.Duration(getEnvAsInt("OTP_RATE_WINDOW_MINUTES", 10)) * time.Minute,
		MaxIPRequests:    getEnvAsInt("OTP_IP_RATE_LIMIT", 10),
		IPWindow:         time.Duration(getEnvAsInt("OTP_IP_RATE_WINDOW_MINUTES", 60)) * time.Minute,
		ExposeDebugCode:  getEnvAsBool("OTP_EXPOSE_DEBUG_CODE", false),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.TourAPI.BaseURL == "" {
		return fmt.Errorf("TOUR_API_BASE_URL is required")
	}

	if c.Booking.DraftIdleTTL <= 0 {
		return fmt.Errorf("BOOKING_DRAFT_IDLE_MINUTES must be positive")
	}

	switch strings.ToLower(c.Booking.InfantPolicy) {
	case "billed", "free":
	default:
		return fmt.Errorf("invalid BOOKING_INFANT_POLICY: %s (must be 'billed' or 'free')", c.Booking.InfantPolicy)
	}

	if c.Database.Enabled() && c.Security.EnableAuditLog && len(c.Security.AuditHashKey) < 32 {
		return fmt.Errorf("AUDIT_HASH_KEY must be at least 32 characters when audit logging is enabled")
	}

	if c.OTP.ExposeDebugCode && c.Server.Environment == "production" {
		return fmt.Errorf("OTP_EXPOSE_DEBUG_CODE cannot be enabled in production")
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
