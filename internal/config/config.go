package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBPath     string
	DBLogLevel string

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	ServerPort string
	GinMode    string
	BaseURL    string
	// TrustedProxies lists proxy IPs or CIDRs whose forwarding headers are
	// honored. Empty means the peer address is the client.
	TrustedProxies []string

	MediaDir    string
	MediaURL    string
	MaxUploadMB int64

	RedisAddr    string
	OpenAIAPIKey string

	RateLimitAuthPerMinute int

	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "volunteer"),
		DBPassword: getEnv("DB_PASSWORD", "volunteer"),
		DBName:     getEnv("DB_NAME", "volunteer"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		DBPath:     getEnv("DB_PATH", "volunteer.db"),
		DBLogLevel: getEnv("DB_LOG_LEVEL", "warn"),

		JWTSecret:       getEnv("JWT_SECRET", "default-secret-key-change-me"),
		AccessTokenTTL:  getEnvDuration("ACCESS_TOKEN_TTL", 3*time.Hour),
		RefreshTokenTTL: getEnvDuration("REFRESH_TOKEN_TTL", 24*time.Hour),

		ServerPort: getEnv("SERVER_PORT", "8080"),
		GinMode:    getEnv("GIN_MODE", "debug"),
		BaseURL:    getEnv("BASE_URL", ""),

		TrustedProxies: getEnvList("TRUSTED_PROXIES"),

		MediaDir:    getEnv("MEDIA_DIR", "./media"),
		MediaURL:    getEnv("MEDIA_URL", "/media"),
		MaxUploadMB: getEnvInt64("MAX_UPLOAD_MB", 5),

		RedisAddr:    getEnv("REDIS_ADDR", ""),
		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),

		RateLimitAuthPerMinute: getEnvInt("RATE_LIMIT_AUTH_PER_MINUTE", 20),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.GinMode == "release" && c.JWTSecret == "default-secret-key-change-me" {
		return fmt.Errorf("JWT_SECRET must be set in release mode")
	}
	if c.GinMode == "release" && c.BaseURL == "" {
		return fmt.Errorf("BASE_URL must be set in release mode")
	}
	for _, proxy := range c.TrustedProxies {
		if !validProxy(proxy) {
			return fmt.Errorf("invalid TRUSTED_PROXIES entry %q", proxy)
		}
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}
	if c.RateLimitAuthPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_AUTH_PER_MINUTE must be greater than 0")
	}
	return nil
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvList splits a comma separated value, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func validProxy(proxy string) bool {
	if strings.Contains(proxy, "/") {
		_, _, err := net.ParseCIDR(proxy)
		return err == nil
	}
	return net.ParseIP(proxy) != nil
}

func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return i
}

func getEnvInt64(key string, defaultValue int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultValue
	}
	return i
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultValue
	}
	return d
}
