package authd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Token lifetime and cooldown defaults. Purpose is bound by which endpoint
// issues and consumes a token, never by the token payload itself.
const (
	DefaultAccessTTL     = 14 * 24 * time.Hour
	DefaultVerifyTTL     = 30 * time.Minute
	DefaultConfirmTTL    = 5 * time.Minute
	DefaultEmailCooldown = 30 * time.Second
)

// PostgresConfig holds connection parameters for the user record store.
type PostgresConfig struct {
	User     string
	Password string
	Host     string
	Port     int
	Name     string
}

// DSN renders the config as a pgx connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s",
		c.User, c.Password, c.Host, c.Port, c.Name,
	)
}

// RedisConfig holds connection parameters for the ephemeral token state.
type RedisConfig struct {
	Host string
	Port int
	DB   int
}

// Addr returns the host:port form expected by the Redis client.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SMTPConfig holds outbound mail credentials.
type SMTPConfig struct {
	Host     string
	Port     int
	Address  string
	Password string
}

// Config is process-wide configuration, read once at startup and treated as
// immutable afterwards.
type Config struct {
	Debug        bool
	SecretKey    string
	AllowOrigins []string
	ListenAddr   string
	BaseURL      string

	AccessTTL     time.Duration
	VerifyTTL     time.Duration
	ConfirmTTL    time.Duration
	EmailCooldown time.Duration

	// SendEmail disables outbound mail when false; action links are then
	// returned in the response body instead (development mode).
	SendEmail bool

	Postgres PostgresConfig
	Redis    RedisConfig
	SMTP     SMTPConfig
}

// withDefaults fills zero-valued tunables so tests can construct partial
// configs.
func (c Config) withDefaults() Config {
	if c.AccessTTL == 0 {
		c.AccessTTL = DefaultAccessTTL
	}
	if c.VerifyTTL == 0 {
		c.VerifyTTL = DefaultVerifyTTL
	}
	if c.ConfirmTTL == 0 {
		c.ConfirmTTL = DefaultConfirmTTL
	}
	if c.EmailCooldown == 0 {
		c.EmailCooldown = DefaultEmailCooldown
	}
	return c
}

// LoadConfig reads configuration from the environment, with .env support for
// development. Every required variable missing or malformed is a startup
// error; nothing is defaulted silently except the documented tunables.
func LoadConfig() (Config, error) {
	// A missing .env file is fine: production supplies real env vars.
	_ = godotenv.Load()

	var cfg Config
	var err error

	debug, err := requireEnv("DEBUG")
	if err != nil {
		return Config{}, err
	}
	cfg.Debug = debug == "true" || debug == "1"
	cfg.SendEmail = !cfg.Debug

	origins, err := requireEnv("ALLOW_ORIGINS")
	if err != nil {
		return Config{}, err
	}
	for _, origin := range strings.Split(origins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowOrigins = append(cfg.AllowOrigins, origin)
		}
	}

	if cfg.SecretKey, err = requireEnv("SECRET_KEY"); err != nil {
		return Config{}, err
	}
	if cfg.BaseURL, err = requireEnv("BASE_URL"); err != nil {
		return Config{}, err
	}
	cfg.ListenAddr = envOr("LISTEN_ADDR", ":8080")

	if cfg.Postgres.User, err = requireEnv("PG_USER"); err != nil {
		return Config{}, err
	}
	if cfg.Postgres.Password, err = requireEnv("PG_PASSWORD"); err != nil {
		return Config{}, err
	}
	if cfg.Postgres.Host, err = requireEnv("PG_HOST"); err != nil {
		return Config{}, err
	}
	if cfg.Postgres.Port, err = requireEnvInt("PG_PORT"); err != nil {
		return Config{}, err
	}
	if cfg.Postgres.Name, err = requireEnv("PG_NAME"); err != nil {
		return Config{}, err
	}

	if cfg.Redis.Host, err = requireEnv("REDIS_HOST"); err != nil {
		return Config{}, err
	}
	if cfg.Redis.Port, err = requireEnvInt("REDIS_PORT"); err != nil {
		return Config{}, err
	}
	if cfg.Redis.DB, err = requireEnvInt("REDIS_DB"); err != nil {
		return Config{}, err
	}

	if cfg.SMTP.Address, err = requireEnv("EMAIL_ADDRESS"); err != nil {
		return Config{}, err
	}
	if cfg.SMTP.Password, err = requireEnv("EMAIL_PASSWORD"); err != nil {
		return Config{}, err
	}
	cfg.SMTP.Host = envOr("SMTP_HOST", "smtp.gmail.com")
	if port := os.Getenv("SMTP_PORT"); port != "" {
		if cfg.SMTP.Port, err = requireEnvInt("SMTP_PORT"); err != nil {
			return Config{}, err
		}
	} else {
		cfg.SMTP.Port = 465
	}

	return cfg.withDefaults(), nil
}

func requireEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("missing environment variable: %s", key)
	}
	return value, nil
}

func requireEnvInt(key string) (int, error) {
	value, err := requireEnv(key)
	if err != nil {
		return 0, err
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s must be a valid integer", key)
	}
	return parsed, nil
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
