package config

import (
	"fmt"
	"log"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

var (
	AppEnv       string
	IsProduction bool

	JWTSecret string
	Port      string

	// database
	DBDriver string
	DBDSN    string

	// completion backend: "gemini" or "canned"
	CompletionBackend        string
	GeminiAPIKey             string
	GeminiModel              string
	GeminiBaseURL            string
	CompletionTimeoutSeconds int
	CompletionMaxAttempts    int

	// send pipeline tunables
	ContextHistoryTurns int
	MaxMessageChars     int
	DisplayTimezone     string

	// rate limiting
	RateLimitBackend       string
	RateLimitWindowSeconds int
	RateLimitCapacity      int
	AuthRateLimitCapacity  int
	RedisURL               string

	LogFile     string
	CORSOrigins []string
)

func init() {
	// defaults so packages and tests work without Load()
	setDefaults()
}

func setDefaults() {
	AppEnv = "development"
	Port = "5000"
	DBDriver = "sqlite"
	DBDSN = "chatrigo.db"
	CompletionBackend = "gemini"
	GeminiModel = "gemini-2.0-flash"
	GeminiBaseURL = "https://generativelanguage.googleapis.com"
	CompletionTimeoutSeconds = 15
	CompletionMaxAttempts = 3
	ContextHistoryTurns = 10
	MaxMessageChars = 4000
	DisplayTimezone = "Asia/Jakarta"
	RateLimitBackend = "memory"
	RateLimitWindowSeconds = 60
	RateLimitCapacity = 10
	AuthRateLimitCapacity = 20
	RedisURL = "redis://localhost:6379/0"
	LogFile = "logs/app.log"
	CORSOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}
}

// loadAppEnv loads .env unless running in production.
func loadAppEnv() {
	if os.Getenv("APP_ENV") == "production" {
		return
	}
	if err := godotenv.Load(); err != nil {
		log.Printf("[config] no .env file loaded: %v", err)
	}
}

// Load reads the process environment (and .env outside production) into the
// package variables. Call once from main before anything else.
func Load() {
	loadAppEnv()
	setDefaults()

	AppEnv = envOr("APP_ENV", AppEnv)
	IsProduction = AppEnv == "production"

	JWTSecret = os.Getenv("JWT_SECRET_KEY")
	Port = envOr("PORT", Port)

	DBDriver = strings.ToLower(envOr("DB_DRIVER", DBDriver))
	DBDSN = envOr("DB_DSN", DBDSN)

	CompletionBackend = strings.ToLower(envOr("COMPLETION_BACKEND", CompletionBackend))
	GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	GeminiModel = envOr("GEMINI_MODEL", GeminiModel)
	GeminiBaseURL = strings.TrimRight(envOr("GEMINI_BASE_URL", GeminiBaseURL), "/")
	CompletionTimeoutSeconds = atoiOr(os.Getenv("COMPLETION_TIMEOUT_SECONDS"), CompletionTimeoutSeconds)
	CompletionMaxAttempts = atoiOr(os.Getenv("COMPLETION_MAX_ATTEMPTS"), CompletionMaxAttempts)

	ContextHistoryTurns = atoiOr(os.Getenv("CONTEXT_HISTORY_TURNS"), ContextHistoryTurns)
	MaxMessageChars = atoiOr(os.Getenv("MAX_MESSAGE_CHARS"), MaxMessageChars)
	DisplayTimezone = envOr("DISPLAY_TIMEZONE", DisplayTimezone)

	RateLimitBackend = strings.ToLower(envOr("RATE_LIMIT_BACKEND", RateLimitBackend))
	RateLimitWindowSeconds = atoiOr(os.Getenv("RATE_LIMIT_WINDOW_SECONDS"), RateLimitWindowSeconds)
	RateLimitCapacity = atoiOr(os.Getenv("RATE_LIMIT_CAPACITY"), RateLimitCapacity)
	AuthRateLimitCapacity = atoiOr(os.Getenv("AUTH_RATE_LIMIT_CAPACITY"), AuthRateLimitCapacity)
	RedisURL = envOr("REDIS_URL", RedisURL)

	LogFile = envOr("LOG_FILE", LogFile)
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		CORSOrigins = splitList(v)
	}

	if err := validate(); err != nil {
		log.Fatalf("[config] %v", err)
	}
	if JWTSecret == "" {
		if IsProduction {
			log.Fatal("JWT_SECRET_KEY must be set in production")
		}
		JWTSecret = "dev-secret-change-me"
		log.Printf("[config] JWT_SECRET_KEY not set, using development secret")
	}

	log.Printf("[config] AppEnv=%s DBDriver=%s CompletionBackend=%s GeminiModel=%s GeminiAPIKeyPresent=%v",
		AppEnv, DBDriver, CompletionBackend, GeminiModel, GeminiAPIKey != "")
	log.Printf("[config] RateLimit backend=%s window=%ds capacity=%d authCapacity=%d historyTurns=%d maxChars=%d",
		RateLimitBackend, RateLimitWindowSeconds, RateLimitCapacity, AuthRateLimitCapacity, ContextHistoryTurns, MaxMessageChars)
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// validate rejects settings the server cannot start with.
func validate() error {
	if !slices.Contains([]string{"development", "staging", "production"}, AppEnv) {
		return fmt.Errorf("environment variable APP_ENV must be 'development', 'staging' or 'production', got %q", AppEnv)
	}
	if !slices.Contains([]string{"gemini", "canned"}, CompletionBackend) {
		return fmt.Errorf("COMPLETION_BACKEND must be 'gemini' or 'canned', got %q", CompletionBackend)
	}
	positive := []struct {
		key string
		val int
	}{
		{"RATE_LIMIT_WINDOW_SECONDS", RateLimitWindowSeconds},
		{"RATE_LIMIT_CAPACITY", RateLimitCapacity},
		{"AUTH_RATE_LIMIT_CAPACITY", AuthRateLimitCapacity},
		{"COMPLETION_TIMEOUT_SECONDS", CompletionTimeoutSeconds},
		{"COMPLETION_MAX_ATTEMPTS", CompletionMaxAttempts},
		{"MAX_MESSAGE_CHARS", MaxMessageChars},
	}
	for _, p := range positive {
		if p.val <= 0 {
			return fmt.Errorf("%s must be positive, got %d", p.key, p.val)
		}
	}
	return nil
}
