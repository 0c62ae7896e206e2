package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds portal configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Office API
	OfficeAPIBaseURL string
	OfficeAPITimeout time.Duration
	BookingPageSize  int
	Timezone         string

	// Remember-me credential persistence: "memory", "file", "redis" or "dynamodb".
	CredentialStore     string
	CredentialFile      string
	CredentialTTL       time.Duration
	CredentialTable     string
	RedisAddr           string
	RedisPassword       string
	RedisTLS            bool
	DefaultRangeDays    int
	CORSAllowedOrigins  []string
	PortalJWTSecret     string
	LoginRateLimit      int
	ExportDir           string
	ExportS3Bucket      string
	ExportS3Prefix      string
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		OfficeAPIBaseURL: strings.TrimRight(getEnv("OFFICE_API_BASE_URL", ""), "/"),
		OfficeAPITimeout: getEnvAsDuration("OFFICE_API_TIMEOUT", 15*time.Second),
		BookingPageSize:  getEnvAsInt("BOOKING_PAGE_SIZE", 250),
		Timezone:         getEnv("PORTAL_TZ", "Local"),

		CredentialStore:     strings.ToLower(strings.TrimSpace(getEnv("CREDENTIAL_STORE", "file"))),
		CredentialFile:      getEnv("CREDENTIAL_FILE", defaultCredentialFile()),
		CredentialTTL:       getEnvAsDuration("CREDENTIAL_TTL", 30*24*time.Hour),
		CredentialTable:     getEnv("CREDENTIAL_DYNAMODB_TABLE", "office-portal-auth"),
		RedisAddr:           getEnv("REDIS_ADDR", ""),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		RedisTLS:            getEnvAsBool("REDIS_TLS", false),
		DefaultRangeDays:    getEnvAsInt("DEFAULT_RANGE_DAYS", 30),
		CORSAllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS"),
		PortalJWTSecret:     getEnv("PORTAL_JWT_SECRET", ""),
		LoginRateLimit:      getEnvAsInt("LOGIN_RATE_LIMIT", 10),
		ExportDir:           getEnv("EXPORT_DIR", "."),
		ExportS3Bucket:      getEnv("EXPORT_S3_BUCKET", ""),
		ExportS3Prefix:      getEnv("EXPORT_S3_PREFIX", "exports/bookings"),
		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
	}
}

// Location resolves the configured timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	if c == nil || c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func defaultCredentialFile() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return ".office_portal_auth"
	}
	return dir + string(os.PathSeparator) + "office-portal" + string(os.PathSeparator) + "auth"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
