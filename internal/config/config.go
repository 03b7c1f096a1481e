package config // package config loads application configuration from environment variables

import (
	"log"     // log reports configuration errors and halts execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable.
type Config struct {
	Env           string         // application environment (e.g. "dev", "prod")
	Port          string         // HTTP port to listen on
	APIBaseURL    string         // base URL of the sales backend
	HTTPTimeout   time.Duration  // timeout of a single backend request
	SessionCookie string         // name of the browser session cookie
	SessionTTL    time.Duration  // lifetime of a stored session
	SessionPrefix string         // key prefix of sessions stored in Redis
	SecureCookie  bool           // mark the session cookie Secure
	TokenLeeway   time.Duration  // remaining token lifetime treated as expired
	Location      *time.Location // zone used for calendar day charts
	AMQPURL       string         // RabbitMQ URL for session events (empty disables)
	AuditLogDir   string         // directory of the session audit log
	SweepSpec     string         // cron spec of the in-memory session sweeper
	Redis         RedisConfig
	RateLimit     RateLimitConfig
}

// Load reads configuration values from the environment, after merging a
// .env file when one exists. Missing required values are fatal.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env not loaded: %v", err)
	}
	return Config{
		Env:           envStr("APP_ENV", "dev"),
		Port:          envStr("APP_PORT", "3000"),
		APIBaseURL:    must("API_BASE_URL"),
		HTTPTimeout:   envDur("HTTP_TIMEOUT", 10*time.Second),
		SessionCookie: envStr("SESSION_COOKIE", "dashboard_sid"),
		SessionTTL:    envDur("SESSION_TTL", 7*24*time.Hour),
		SessionPrefix: envStr("SESSION_PREFIX", "dash:sess:"),
		SecureCookie:  envBool("SESSION_COOKIE_SECURE", false),
		TokenLeeway:   envDur("TOKEN_EXPIRY_LEEWAY", 5*time.Minute),
		Location:      mustLocation("DASHBOARD_TZ"),
		AMQPURL:       amqpURL(),
		AuditLogDir:   envStr("AUDIT_LOG_DIR", "logs"),
		SweepSpec:     envStr("SESSION_SWEEP_SPEC", "@every 1m"),
		Redis:         LoadRedisConfig(),
		RateLimit:     LoadRateLimitConfig(),
	}
}

// IsDev reports whether the app runs in a development environment.
func (c Config) IsDev() bool { return c.Env == "" || c.Env == "dev" || c.Env == "development" }

// amqpURL accepts both RABBITMQ_URL and AMQP_URL, the former winning.
func amqpURL() string {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		return v
	}
	return os.Getenv("AMQP_URL")
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustLocation loads the IANA zone named by key, defaulting to Local.
func mustLocation(key string) *time.Location {
	name := os.Getenv(key)
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Fatalf("invalid time zone for %s: %q", key, name)
	}
	return loc
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
