package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const EnvironmentProduction = "production"

type Config struct {
	Environment             string
	LogLevel                string
	ServerPort              string
	ServerReadHeaderTimeout time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	RequestTimeout          time.Duration

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	JWTSecret     string
	JWTAccessTTL  time.Duration
	JWTRefreshTTL time.Duration
	CookieSecure  bool

	TrustProxyHeaders bool
	CORSOrigins       []string
	RateLimitRPM      int
	AuthRateLimitRPM  int
	RedisURL          string
	LoginRateLimit    int
	LoginRateWindow   time.Duration
	MaxFailedAttempts int
	LockTime          time.Duration

	RecaptchaSecretKey string
	RecaptchaSiteKey   string
	RecaptchaMinScore  float64

	IzipayHMACKey  string
	IzipayPassword string

	HasFreeDemo          bool
	FreePlanName         string
	FreePlanValidityDays int

	PendingOrderMaxAge   time.Duration
	SecurityLogRetention time.Duration
	CleanupSchedule      string
	AuditBufferSize      int

	MetricsAddr string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment:             getEnv("ENVIRONMENT", "development"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		ServerPort:              getEnv("SERVER_PORT", "8000"),
		ServerReadHeaderTimeout: getDuration("SERVER_READ_HEADER_TIMEOUT", 10*time.Second),
		ServerWriteTimeout:      getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		ServerIdleTimeout:       getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:          getDuration("REQUEST_TIMEOUT", 30*time.Second),
		DatabaseURL:             strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:              int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:              int32(getInt("DB_MIN_CONNS", 2)),
		JWTSecret:               strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTAccessTTL:            time.Duration(getInt("ACCESS_TOKEN_EXPIRE_MINUTES", 60)) * time.Minute,
		JWTRefreshTTL:           time.Duration(getInt("REFRESH_TOKEN_EXPIRE_DAYS", 7)) * 24 * time.Hour,
		CookieSecure:            getBool("COOKIE_SECURE", true),
		TrustProxyHeaders:       getBool("TRUST_PROXY_HEADERS", false),
		CORSOrigins:             splitCSV(getEnv("CORS_ORIGINS", "http://localhost:8000,http://localhost:4321")),
		RateLimitRPM:            getInt("RATE_LIMIT_RPM", 300),
		AuthRateLimitRPM:        getInt("AUTH_RATE_LIMIT_RPM", 30),
		RedisURL:                strings.TrimSpace(os.Getenv("REDIS_URL")),
		LoginRateLimit:          getInt("LOGIN_RATE_LIMIT", 7),
		LoginRateWindow:         getDuration("LOGIN_RATE_WINDOW", 5*time.Minute),
		MaxFailedAttempts:       getInt("MAX_FAILED_ATTEMPTS", 5),
		LockTime:                getDuration("LOCK_TIME", 30*time.Minute),
		RecaptchaSecretKey:      strings.TrimSpace(os.Getenv("RECAPTCHA_SECRET_KEY")),
		RecaptchaSiteKey:        strings.TrimSpace(os.Getenv("RECAPTCHA_SITE_KEY")),
		RecaptchaMinScore:       getFloat("RECAPTCHA_MIN_SCORE", 0.5),
		IzipayHMACKey:           strings.TrimSpace(os.Getenv("IZIPAY_HMACSHA256")),
		IzipayPassword:          strings.TrimSpace(os.Getenv("IZIPAY_PASSWORD")),
		HasFreeDemo:             getBool("HAS_FREE_DEMO", false),
		FreePlanName:            strings.TrimSpace(os.Getenv("FREE_PLAN_NAME")),
		FreePlanValidityDays:    getInt("FREE_PLAN_VALIDITY_DAYS", 1),
		PendingOrderMaxAge:      getDuration("PENDING_ORDER_MAX_AGE", 60*time.Minute),
		SecurityLogRetention:    getDuration("SECURITY_LOG_RETENTION", 90*24*time.Hour),
		CleanupSchedule:         getEnv("CLEANUP_SCHEDULE", "@every 15m"),
		AuditBufferSize:         getInt("AUDIT_BUFFER_SIZE", 256),
		MetricsAddr:             strings.TrimSpace(os.Getenv("METRICS_ADDR")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.IsProduction() && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
	}

	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWTAccessTTL <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be positive")
	}

	if c.JWTRefreshTTL <= c.JWTAccessTTL {
		return fmt.Errorf("REFRESH_TOKEN_EXPIRE_DAYS must outlive the access token")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	if c.MaxFailedAttempts <= 0 {
		return fmt.Errorf("MAX_FAILED_ATTEMPTS must be positive")
	}

	if c.HasFreeDemo && c.FreePlanName == "" {
		return fmt.Errorf("FREE_PLAN_NAME is required when HAS_FREE_DEMO is enabled")
	}

	if c.MetricsAddr != "" && c.MetricsAddr == ":"+c.ServerPort {
		return fmt.Errorf("METRICS_ADDR must differ from the public SERVER_PORT")
	}

	if c.RecaptchaMinScore < 0 || c.RecaptchaMinScore > 1 {
		return fmt.Errorf("RECAPTCHA_MIN_SCORE must be between 0 and 1")
	}

	return nil
}

// ServeMetricsPublicly reports whether /metrics is mounted on the main
// router. A dedicated METRICS_ADDR listener always takes precedence, and
// production never exposes metrics on the public port.
func (c *Config) ServeMetricsPublicly() bool {
	return c.MetricsAddr == "" && !c.IsProduction()
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, EnvironmentProduction)
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}

	return v
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
