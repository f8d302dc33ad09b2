/*
Package configs loads the application's configuration settings.

Both binaries read the same AppConfig from environment variables, optionally seeded from a
.env file: the client settings (Member Service URL, cookie jar backend, timeouts, login retry
policy, photo storage) and the settings of the development Member Service.
*/
package configs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Cookie jar backends.
const (
	JarFile   = "file"
	JarMemory = "memory"
	JarRedis  = "redis"
)

// AppConfig contains all configuration parameters required for the application to run.
type AppConfig struct {
	// General Settings
	Environment string

	// Member Service Client Settings
	MemberServiceURL string
	RequestTimeout   time.Duration
	LoginMaxRetries  int
	LoginRetryDelay  time.Duration

	// Cookie Jar Settings
	CookieJar     string
	CookieJarPath string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisJarKey   string

	// Photo Storage Settings
	StorageBucket          string
	StorageEndpoint        string
	StorageAccessKeyID     string
	StorageSecretAccessKey string
	StoragePublicURL       string

	// Development Member Service Settings
	Port           int
	AllowedOrigins []string
	JWTSecret      string
	DatabaseDSN    string
}

// IsDevelopment reports whether the development environment is active.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// StorageEnabled reports whether every photo storage setting is present.
func (c *AppConfig) StorageEnabled() bool {
	return c.StorageEndpoint != "" &&
		c.StorageAccessKeyID != "" &&
		c.StorageSecretAccessKey != "" &&
		c.StoragePublicURL != ""
}

// LoadConfig reads the configuration from environment variables after loading an optional
// .env file from the working directory. Each setting has a default; invalid values are errors.
func LoadConfig() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &AppConfig{}
	var err error

	// --- General Settings ---
	cfg.Environment = getEnv("ENVIRONMENT", "development")

	// --- Member Service Client Settings ---
	cfg.MemberServiceURL = strings.TrimRight(getEnv("MEMBER_SERVICE_URL", "http://localhost:8080"), "/")
	if !strings.HasPrefix(cfg.MemberServiceURL, "http://") && !strings.HasPrefix(cfg.MemberServiceURL, "https://") {
		return nil, fmt.Errorf("MEMBER_SERVICE_URL must be an http(s) URL, got %q", cfg.MemberServiceURL)
	}

	if cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	if cfg.LoginMaxRetries, err = getInt("LOGIN_MAX_RETRIES", 2); err != nil {
		return nil, err
	}
	if cfg.LoginMaxRetries < 0 {
		return nil, fmt.Errorf("LOGIN_MAX_RETRIES must not be negative, got %d", cfg.LoginMaxRetries)
	}

	if cfg.LoginRetryDelay, err = getDuration("LOGIN_RETRY_DELAY", time.Second); err != nil {
		return nil, err
	}

	// --- Cookie Jar Settings ---
	cfg.CookieJar = getEnv("COOKIE_JAR", JarFile)
	switch cfg.CookieJar {
	case JarFile:
		cfg.CookieJarPath = os.Getenv("COOKIE_JAR_PATH")
		if cfg.CookieJarPath == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("COOKIE_JAR_PATH is unset and the home directory is unknown: %w", err)
			}
			cfg.CookieJarPath = filepath.Join(home, ".harukcal", "cookies.json")
		}
	case JarMemory:
	case JarRedis:
		cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
		cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
		if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
			return nil, err
		}
		cfg.RedisJarKey = getEnv("REDIS_JAR_KEY", "harukcal:cookies")
	default:
		return nil, fmt.Errorf("COOKIE_JAR must be one of %s, %s, %s; got %q", JarFile, JarMemory, JarRedis, cfg.CookieJar)
	}

	// --- Photo Storage Settings ---
	cfg.StorageBucket = getEnv("STORAGE_BUCKET", "harukcal")
	cfg.StorageEndpoint = os.Getenv("STORAGE_ENDPOINT")
	cfg.StorageAccessKeyID = os.Getenv("STORAGE_ACCESS_KEY_ID")
	cfg.StorageSecretAccessKey = os.Getenv("STORAGE_SECRET_ACCESS_KEY")
	cfg.StoragePublicURL = strings.TrimRight(os.Getenv("STORAGE_PUBLIC_URL"), "/")

	// --- Development Member Service Settings ---
	if cfg.Port, err = getInt("PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", cfg.Port, 1024, 65535)
	}

	if originsStr := os.Getenv("ALLOWED_ORIGINS"); originsStr != "" {
		for _, origin := range strings.Split(originsStr, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
			}
		}
	} else {
		cfg.AllowedOrigins = []string{}
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		if !cfg.IsDevelopment() {
			return nil, fmt.Errorf("JWT_SECRET environment variable is required in %s environment for security", cfg.Environment)
		}
		cfg.JWTSecret = "your_default_insecure_secret_key_change_me"
	}

	cfg.DatabaseDSN = os.Getenv("DATABASE_URL")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %s", key, v)
	}
	return v, nil
}
