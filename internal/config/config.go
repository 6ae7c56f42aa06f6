package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppName         = "Aumarche"
	defaultAppEnv          = "development"
	defaultPort            = "8080"
	defaultLogLevel        = "info"
	defaultShutdownDelay   = 10 * time.Second
	defaultIdempotencyTTL  = 24 * time.Hour
	defaultAccessTokenTTL  = 24 * time.Hour
	defaultOTPWindow       = 5 * time.Minute
	defaultOTPMaxAttempts  = 5
	defaultOTPSendLimit    = 3
	defaultOTPPurgeEvery   = time.Hour
	defaultOTPRetention    = 24 * time.Hour
	defaultAdminStatsTTL   = 30 * time.Second
	defaultPublicBaseURL   = "https://aumarche.ci"
	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"

	// ProviderLocal keeps credentials in the service's own database.
	ProviderLocal = "local"
	// ProviderGoTrue delegates credentials to a GoTrue-compatible managed auth API.
	ProviderGoTrue = "gotrue"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	Env            string
	Port           string
	LogLevel       string
	LogFile        string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration

	// TrustedProxies lists the proxies (IPs or CIDRs) whose ProxyHeader is
	// believed for the client address. Empty means the socket peer is used.
	TrustedProxies []string
	ProxyHeader    string

	JWTSecret      string
	AccessTokenTTL time.Duration

	// AuthProvider selects the identity provider adapter (local or gotrue).
	AuthProvider string
	AuthURL      string
	// AuthAnonKey is the public key browsers may hold.
	AuthAnonKey string
	// AuthServiceKey is privileged and must never leave the server.
	AuthServiceKey string

	OTPWindow      time.Duration
	OTPMaxAttempts int
	OTPSendLimit   int
	OTPPurgeEvery  time.Duration
	OTPRetention   time.Duration
	SMSWebhookURL  string
	PublicBaseURL  string
	AdminStatsTTL  time.Duration
}

// Load reads configuration values from the environment and populates a Config instance.
// A .env file in the working directory is loaded first when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		Env:            getEnv("APP_ENV", defaultAppEnv),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		LogFile:        os.Getenv("LOG_FILE"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		ShutdownPeriod: defaultShutdownDelay,
		IdempotencyTTL: defaultIdempotencyTTL,
		JWTSecret:      os.Getenv("JWT_SECRET"),
		AuthProvider:   strings.ToLower(getEnv("AUTH_PROVIDER", ProviderLocal)),
		AuthURL:        strings.TrimRight(os.Getenv("AUTH_URL"), "/"),
		AuthAnonKey:    os.Getenv("AUTH_ANON_KEY"),
		AuthServiceKey: os.Getenv("AUTH_SERVICE_KEY"),
		SMSWebhookURL:  os.Getenv("SMS_WEBHOOK_URL"),
		TrustedProxies: list(os.Getenv("TRUSTED_PROXIES")),
		ProxyHeader:    getEnv("PROXY_HEADER", "X-Forwarded-For"),
		PublicBaseURL:  strings.TrimRight(getEnv("PUBLIC_BASE_URL", defaultPublicBaseURL), "/"),
	}

	var err error
	if cfg.ShutdownPeriod, err = secondsOrDuration(shutdownSecondsEnvVar, shutdownDurationEnvVar, defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = secondsOrDuration(idemTTLSecondsEnvVar, idemTTLDurEnvVar, defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.AccessTokenTTL, err = duration("ACCESS_TOKEN_TTL", defaultAccessTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.OTPWindow, err = duration("OTP_WINDOW", defaultOTPWindow); err != nil {
		return Config{}, err
	}
	if cfg.OTPPurgeEvery, err = duration("OTP_PURGE_INTERVAL", defaultOTPPurgeEvery); err != nil {
		return Config{}, err
	}
	if cfg.OTPRetention, err = duration("OTP_RETENTION", defaultOTPRetention); err != nil {
		return Config{}, err
	}
	if cfg.AdminStatsTTL, err = duration("ADMIN_STATS_TTL", defaultAdminStatsTTL); err != nil {
		return Config{}, err
	}
	if cfg.OTPMaxAttempts, err = integer("OTP_MAX_ATTEMPTS", defaultOTPMaxAttempts); err != nil {
		return Config{}, err
	}
	if cfg.OTPSendLimit, err = integer("OTP_SEND_LIMIT_PER_MINUTE", defaultOTPSendLimit); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	if c.OTPWindow <= 0 {
		return fmt.Errorf("OTP_WINDOW must be positive")
	}
	if c.OTPMaxAttempts <= 0 {
		return fmt.Errorf("OTP_MAX_ATTEMPTS must be positive")
	}
	switch c.AuthProvider {
	case ProviderLocal:
	case ProviderGoTrue:
		if c.AuthURL == "" || c.AuthAnonKey == "" || c.AuthServiceKey == "" {
			return fmt.Errorf("AUTH_URL, AUTH_ANON_KEY and AUTH_SERVICE_KEY must be set for AUTH_PROVIDER=gotrue")
		}
	default:
		return fmt.Errorf("unknown AUTH_PROVIDER %q", c.AuthProvider)
	}
	if c.IsDev() {
		return nil
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set")
	}
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL must be set")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}
	return nil
}

// IsDev reports whether the service runs in a local development environment,
// where Postgres and Redis are optional.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.Env) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func list(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func secondsOrDuration(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(secondsKey); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	return duration(durationKey, fallback)
}

func duration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func integer(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
