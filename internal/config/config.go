// Package config loads process-wide configuration from the environment.
// A .env file is honored in development; real deployments set the variables
// directly.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every knob a service process reads at startup.
type Config struct {
	// Telegram / auth
	TelegramBotToken  string
	JWTSecret         string
	TokenTTL          time.Duration
	InitDataMaxAge    time.Duration

	// Database
	DBURL        string
	DBPoolMin    int
	DBPoolMax    int
	DBIdleTime   time.Duration

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Event queue (notification relay)
	QueueURL string

	// Gateway
	Upstreams       map[string]string // name -> base URL, from GATEWAY_UPSTREAM_<NAME>
	WebAppDomain    string            // CORS origin, "*" permitted
	RateLimitAnon   int               // requests per minute
	RateLimitAuth   int

	// Photos
	NSFWThreshold float64

	// Per-service listen addresses
	ListenAddr string
}

// Load reads the environment (and .env, when present) into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// Missing .env is fine outside development.
	}

	cfg := &Config{
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		TokenTTL:         time.Duration(envInt("TOKEN_TTL_SECONDS", 3600)) * time.Second,
		InitDataMaxAge:   time.Duration(envInt("INITDATA_MAX_AGE_SECONDS", 86400)) * time.Second,

		DBURL:      os.Getenv("DB_URL"),
		DBPoolMin:  envInt("DB_POOL_MIN", 5),
		DBPoolMax:  envInt("DB_POOL_MAX", 20),
		DBIdleTime: 30 * time.Second,

		RedisAddr:     envStr("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),

		QueueURL: os.Getenv("QUEUE_URL"),

		Upstreams:     loadUpstreams(),
		WebAppDomain:  envStr("WEBAPP_DOMAIN", "*"),
		RateLimitAnon: envInt("RATE_LIMIT_ANON_RPM", 100),
		RateLimitAuth: envInt("RATE_LIMIT_AUTH_RPM", 1000),

		NSFWThreshold: envFloat("NSFW_THRESHOLD", 0.7),

		ListenAddr: envStr("LISTEN_ADDR", ":8080"),
	}
	return cfg, nil
}

// Validate checks the keys a given service cannot run without. Services pass
// the names of the keys they require so the gateway does not demand DB_URL
// and the auth service does not demand QUEUE_URL.
func (c *Config) Validate(required ...string) error {
	var missing []string
	for _, key := range required {
		switch key {
		case "TELEGRAM_BOT_TOKEN":
			if c.TelegramBotToken == "" {
				missing = append(missing, key)
			}
		case "JWT_SECRET":
			if c.JWTSecret == "" {
				missing = append(missing, key)
			}
		case "DB_URL":
			if c.DBURL == "" {
				missing = append(missing, key)
			}
		case "QUEUE_URL":
			if c.QueueURL == "" {
				missing = append(missing, key)
			}
		}
	}
	if len(missing) > 0 {
		return errors.New("missing required configuration: " + strings.Join(missing, ", "))
	}
	return nil
}

// Upstream returns the configured base URL of an internal service.
func (c *Config) Upstream(name string) (string, error) {
	u, ok := c.Upstreams[name]
	if !ok || u == "" {
		return "", fmt.Errorf("no upstream configured for %q (set GATEWAY_UPSTREAM_%s)", name, strings.ToUpper(name))
	}
	return u, nil
}

func loadUpstreams() map[string]string {
	const prefix = "GATEWAY_UPSTREAM_"
	out := make(map[string]string)
	for _, kv := range os.Environ() {
		if !strings.HasPrefix(kv, prefix) {
			continue
		}
		rest := strings.TrimPrefix(kv, prefix)
		eq := strings.IndexByte(rest, '=')
		if eq <= 0 {
			continue
		}
		name := strings.ToLower(rest[:eq])
		out[name] = rest[eq+1:]
	}
	return out
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
