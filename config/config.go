package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Token    TokenConfig
	Signal   SignalConfig
	WebRTC   WebRTCConfig
	Dialout  DialoutConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// TokenConfig holds room-token signing and refresh settings.
// Access tokens are deliberately short-lived; clients keep them fresh
// through the refresh endpoint while a session is active.
type TokenConfig struct {
	Secret          string
	AccessTTLSec    int // access token lifetime
	RefreshLeadSec  int // how long before expiry clients refresh
	RefreshTTLHours int // refresh token lifetime
}

// SignalConfig holds the signaling endpoint the room client dials.
type SignalConfig struct {
	URL string // e.g. wss://rtc.example.com/v1/signal
}

// WebRTCConfig holds STUN/TURN ICE server URLs (comma-separated in env).
type WebRTCConfig struct {
	ICEUrls []string
}

// DialoutConfig holds the upstream carrier API for phone invites.
type DialoutConfig struct {
	Endpoint string
	APIKey   string
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", "postgres://localhost:5432/meet?sslmode=disable"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "meet"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Token: TokenConfig{
			Secret:          getEnv("TOKEN_SECRET", "change-me-in-production"),
			AccessTTLSec:    getEnvInt("TOKEN_ACCESS_TTL_SEC", 50),
			RefreshLeadSec:  getEnvInt("TOKEN_REFRESH_LEAD_SEC", 20),
			RefreshTTLHours: getEnvInt("TOKEN_REFRESH_TTL_HOURS", 24),
		},
		Signal: SignalConfig{
			URL: getEnv("SIGNAL_URL", "ws://localhost:8080/v1/signal"),
		},
		WebRTC: WebRTCConfig{
			ICEUrls: splitTrim(getEnv("WEBRTC_ICE_URLS", "stun:stun.l.google.com:19302"), ","),
		},
		Dialout: DialoutConfig{
			Endpoint: getEnv("DIALOUT_ENDPOINT", ""),
			APIKey:   getEnv("DIALOUT_API_KEY", ""),
		},
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func splitTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, sep) {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
