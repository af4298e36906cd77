package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	MaxUploadBytes  int64
	UploadDir       string
	JWTSigningKey   string
	RequireAuth     bool
	ShutdownTimeout time.Duration
}

// OCR configures the external text extraction tools.
type OCR struct {
	PDFToText        string
	PDFToPPM         string
	Tesseract        string
	Languages        string
	DPI              int
	MaxPages         int
	RetryAttempts    uint
	RetryDelay       time.Duration
	Concurrency      int
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// RedisConfig configures the optional text cache. An empty URL disables it.
type RedisConfig struct {
	URL          string
	CacheTTL     time.Duration
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RateLimit caps verification requests per client IP. A zero limit
// disables it.
type RateLimit struct {
	Requests int
	Window   time.Duration
}

// Log selects the slog handler.
type Log struct {
	Level  string
	Format string
}

// Config is everything main needs to wire the service.
type Config struct {
	Server     Server
	OCR        OCR
	Redis      RedisConfig
	RateLimit  RateLimit
	Log        Log
	PolicyFile string
}

// EnvPrefix prefixes every environment variable read by this package.
const EnvPrefix = "CERTVERIFY"

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	signingKey := env("JWT_SIGNING_KEY", "")
	if signingKey == "" {
		// Use a default for development - should be overridden in production
		signingKey = "dev-secret-key-change-in-production"
	}

	return Config{
		Server: Server{
			Addr:            env("ADDR", ":8080"),
			MaxUploadBytes:  envInt64("MAX_UPLOAD_BYTES", 20<<20),
			UploadDir:       env("UPLOAD_DIR", ""),
			JWTSigningKey:   signingKey,
			RequireAuth:     envBool("REQUIRE_AUTH", false),
			ShutdownTimeout: envDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		OCR: OCR{
			PDFToText:        env("PDFTOTEXT", "pdftotext"),
			PDFToPPM:         env("PDFTOPPM", "pdftoppm"),
			Tesseract:        env("TESSERACT", "tesseract"),
			Languages:        env("OCR_LANGUAGES", "ara+eng"),
			DPI:              envInt("OCR_DPI", 220),
			MaxPages:         envInt("OCR_MAX_PAGES", 10),
			RetryAttempts:    uint(max(envInt("OCR_RETRY_ATTEMPTS", 2), 1)),
			RetryDelay:       envDuration("OCR_RETRY_DELAY", 200*time.Millisecond),
			Concurrency:      envInt("OCR_CONCURRENCY", 2),
			BreakerThreshold: envInt("OCR_BREAKER_THRESHOLD", 5),
			BreakerCooldown:  envDuration("OCR_BREAKER_COOLDOWN", 30*time.Second),
		},
		Redis: RedisConfig{
			URL:          env("REDIS_URL", ""),
			CacheTTL:     envDuration("CACHE_TTL", 24*time.Hour),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		RateLimit: RateLimit{
			Requests: envInt("RATE_LIMIT_REQUESTS", 30),
			Window:   envDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Log: Log{
			Level:  env("LOG_LEVEL", "info"),
			Format: env("LOG_FORMAT", "json"),
		},
		PolicyFile: env("POLICY_FILE", ""),
	}
}

func env(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(EnvPrefix + "_" + key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	n, err := strconv.Atoi(env(key, ""))
	if err != nil {
		return fallback
	}
	return n
}

func envInt64(key string, fallback int64) int64 {
	n, err := strconv.ParseInt(env(key, ""), 10, 64)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(env(key, ""))
	if err != nil {
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(env(key, ""))
	if err != nil {
		return fallback
	}
	return d
}
