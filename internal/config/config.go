package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	Environment string // ENV: production, development, etc.
	FrontendURL string
	// CORS: from CORS_ORIGIN (comma separated) or FRONTEND_URL
	AllowedOrigins []string
	TrustProxy     bool

	MongoURI    string
	MongoDB     string
	RedisURI    string
	PostgresURI string // optional; enables the auth audit log

	AccessTokenSecret          string
	AccessTokenExpiry          time.Duration
	AccessTokenRememberExpiry  time.Duration
	RefreshTokenSecret         string
	RefreshTokenExpiry         time.Duration
	RefreshTokenRememberExpiry time.Duration
	RefreshCookieMaxAge        time.Duration
	RefreshCookieRememberAge   time.Duration
	// Signs verification and password reset tokens
	JWTSecret string

	SMTPHost        string
	SMTPPort        int
	MailUser        string
	MailPassword    string
	MailProductName string
	ShopOwnerEmail  string

	CloudinaryName      string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	RateLimitWindow time.Duration
	RateLimitMax    int
	OutboundTimeout time.Duration
}

func Load() *Config {
	frontend := getEnv("FRONTEND_URL", "http://localhost:3000")

	allowedOrigins := parseOrigins(getEnv("CORS_ORIGIN", ""))
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{frontend}
	}

	return &Config{
		Port:           getEnv("PORT", "8000"),
		Environment:    strings.ToLower(strings.TrimSpace(getEnv("ENV", "development"))),
		FrontendURL:    strings.TrimRight(frontend, "/"),
		AllowedOrigins: allowedOrigins,
		TrustProxy:     getBool("TRUST_PROXY", true),

		MongoURI:    getEnv("MONGODB_URI", getEnv("MONGO_URI", "mongodb://localhost:27017/flowmotion")),
		MongoDB:     getEnv("MONGO_DB", ""),
		RedisURI:    getEnv("REDIS_URI", "redis://localhost:6379/0"),
		PostgresURI: getEnv("POSTGRES_URI", ""),

		AccessTokenSecret:          getEnv("ACCESS_TOKEN_SECRET", "access-secret-change-me"),
		AccessTokenExpiry:          getDuration("ACCESS_TOKEN_EXPIRY", 15*time.Minute),
		AccessTokenRememberExpiry:  getDuration("ACCESS_TOKEN_REMEMBER_EXPIRY", 24*time.Hour),
		RefreshTokenSecret:         getEnv("REFRESH_TOKEN_SECRET", "refresh-secret-change-me"),
		RefreshTokenExpiry:         getDuration("REFRESH_TOKEN_EXPIRY", 24*time.Hour),
		RefreshTokenRememberExpiry: getDuration("REFRESH_TOKEN_REMEMBER_EXPIRY", 180*24*time.Hour),
		RefreshCookieMaxAge:        getDuration("REFRESH_COOKIE_MAX_AGE", 24*time.Hour),
		RefreshCookieRememberAge:   getDuration("REFRESH_COOKIE_REMEMBER_MAX_AGE", 180*24*time.Hour),
		JWTSecret:                  getEnv("JWT_SECRET", "verification-secret-change-me"),

		SMTPHost:        getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:        getInt("SMTP_PORT", 587),
		MailUser:        getEnv("EMAIL", ""),
		MailPassword:    getEnv("PASSWORD", ""),
		MailProductName: getEnv("MAIL_PRODUCT_NAME", "Flowmotion IT Services"),
		ShopOwnerEmail:  getEnv("SHOP_OWNER_EMAIL", ""),

		CloudinaryName:      getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),

		RateLimitWindow: getDuration("RATE_LIMIT_WINDOW", 5*time.Minute),
		RateLimitMax:    getInt("RATE_LIMIT_MAX", 150),
		OutboundTimeout: getDuration("OUTBOUND_TIMEOUT", 10*time.Second),
	}
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Validate rejects configurations that would make issued tokens unsafe.
// Outside production the development defaults are accepted.
func (c *Config) Validate() error {
	if !c.IsProduction() {
		return nil
	}
	if c.AccessTokenSecret == "" || c.RefreshTokenSecret == "" || c.JWTSecret == "" {
		return errors.New("ACCESS_TOKEN_SECRET, REFRESH_TOKEN_SECRET and JWT_SECRET must be set")
	}
	if c.AccessTokenSecret == c.RefreshTokenSecret || c.AccessTokenSecret == c.JWTSecret || c.RefreshTokenSecret == c.JWTSecret {
		return errors.New("token signing secrets must be distinct")
	}
	return nil
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, strings.TrimRight(part, "/"))
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

func getInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

func getBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return b
}
