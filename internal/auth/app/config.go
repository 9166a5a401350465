package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/tabauth/pkg/httpx"
	"github.com/aussiebroadwan/tabauth/pkg/jwtx"
	"github.com/spf13/viper"
)

type Config struct {
	SigningSecret string        `mapstructure:"AUTH_SIGNING_SECRET"` // Required outside dev: HMAC secret, at least 32 bytes
	Issuer        string        `mapstructure:"AUTH_ISSUER"`         // Optional: iss claim (default: tabauth)
	AccessTTL     time.Duration `mapstructure:"AUTH_ACCESS_TTL"`     // Optional: access token lifetime (default: 15m)
	RefreshTTL    time.Duration `mapstructure:"AUTH_REFRESH_TTL"`    // Optional: refresh token lifetime (default: 168h)
	StoreTimeout  time.Duration `mapstructure:"AUTH_STORE_TIMEOUT"`  // Optional: bound on every directory/session call (default: 3s)

	SessionStore string `mapstructure:"SESSION_STORE"`      // Optional: sqlite or redis (default: sqlite)
	RedisAddr    string `mapstructure:"REDIS_ADDR"`         // Required when SESSION_STORE=redis
	RedisPrefix  string `mapstructure:"REDIS_PREFIX"`       // Optional: key prefix (default: tabauth:session)
	DatabaseFile string `mapstructure:"AUTH_DATABASE_FILE"` // Optional: path to SQLite database file (default: ./auth.db)
	PepperFile   string `mapstructure:"AUTH_PEPPER_FILE"`   // Optional: path to pepper file (default: ./pepper)

	BootstrapUsername string `mapstructure:"BOOTSTRAP_USERNAME"` // Optional: admin created when the directory is empty
	BootstrapPassword string `mapstructure:"BOOTSTRAP_PASSWORD"` // Optional: generated and logged once when empty
	BootstrapEmail    string `mapstructure:"BOOTSTRAP_EMAIL"`

	Env                  string        `mapstructure:"ENV"`                   // Environment (dev, test, prod) (default: dev)
	LogLevel             string        `mapstructure:"LOG_LEVEL"`             // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        `mapstructure:"LOG_FORMAT"`            // Log format (json, text) (default: json)
	Port                 int           `mapstructure:"PORT"`                  // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration `mapstructure:"SHUTDOWN_GRACE_PERIOD"` // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration `mapstructure:"HOUSEKEEPING_INTERVAL"` // Housekeeping interval (default: 1h)

	StrictLimit   httpx.RateLimitConfig `mapstructure:"-"` // login
	ModerateLimit httpx.RateLimitConfig `mapstructure:"-"` // refresh, logout

	// GeneratedSecret is set when no secret was configured in dev and an
	// ephemeral one was made up.
	GeneratedSecret bool `mapstructure:"-"`
}

// LoadConfig reads .env (if present) then the environment. Environment
// variables win over .env.
func LoadConfig() (Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // a missing .env is fine

	v.AutomaticEnv()
	setDefaults(v)

	return loadFrom(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("AUTH_SIGNING_SECRET", "")
	v.SetDefault("AUTH_ISSUER", "tabauth")
	v.SetDefault("AUTH_ACCESS_TTL", jwtx.DefaultAccessTokenTTL)
	v.SetDefault("AUTH_REFRESH_TTL", jwtx.DefaultRefreshTokenTTL)
	v.SetDefault("AUTH_STORE_TIMEOUT", 3*time.Second)
	v.SetDefault("SESSION_STORE", "sqlite")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PREFIX", "tabauth:session")
	v.SetDefault("AUTH_DATABASE_FILE", "auth.db")
	v.SetDefault("AUTH_PEPPER_FILE", "pepper")
	v.SetDefault("BOOTSTRAP_USERNAME", "")
	v.SetDefault("BOOTSTRAP_PASSWORD", "")
	v.SetDefault("BOOTSTRAP_EMAIL", "")
	v.SetDefault("ENV", "dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("PORT", 8080)
	v.SetDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second)
	v.SetDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour)

	// Rate limit overrides, mostly for end-to-end tests
	v.SetDefault("RATELIMIT_STRICT_REQUESTS", httpx.StrictLimit.Requests)
	v.SetDefault("RATELIMIT_STRICT_WINDOW", httpx.StrictLimit.Window)
	v.SetDefault("RATELIMIT_STRICT_BURST", httpx.StrictLimit.Burst)
	v.SetDefault("RATELIMIT_MODERATE_REQUESTS", httpx.ModerateLimit.Requests)
	v.SetDefault("RATELIMIT_MODERATE_WINDOW", httpx.ModerateLimit.Window)
	v.SetDefault("RATELIMIT_MODERATE_BURST", httpx.ModerateLimit.Burst)
}

func loadFrom(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	cfg.StrictLimit = httpx.RateLimitConfig{
		Requests: v.GetInt("RATELIMIT_STRICT_REQUESTS"),
		Window:   v.GetDuration("RATELIMIT_STRICT_WINDOW"),
		Burst:    v.GetInt("RATELIMIT_STRICT_BURST"),
	}
	cfg.ModerateLimit = httpx.RateLimitConfig{
		Requests: v.GetInt("RATELIMIT_MODERATE_REQUESTS"),
		Window:   v.GetDuration("RATELIMIT_MODERATE_WINDOW"),
		Burst:    v.GetInt("RATELIMIT_MODERATE_BURST"),
	}

	cfg.SessionStore = strings.ToLower(strings.TrimSpace(cfg.SessionStore))

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return errors.New("config: AUTH_ACCESS_TTL and AUTH_REFRESH_TTL must be positive")
	}
	if c.AccessTTL >= c.RefreshTTL {
		return errors.New("config: AUTH_ACCESS_TTL must be shorter than AUTH_REFRESH_TTL")
	}
	if c.StoreTimeout <= 0 {
		return errors.New("config: AUTH_STORE_TIMEOUT must be positive")
	}

	switch c.SessionStore {
	case "sqlite":
	case "redis":
		if c.RedisAddr == "" {
			return errors.New("config: REDIS_ADDR must be set when SESSION_STORE=redis")
		}
	default:
		return fmt.Errorf("config: unknown SESSION_STORE %q", c.SessionStore)
	}

	if c.SigningSecret == "" && !c.IsDev() {
		return errors.New("config: AUTH_SIGNING_SECRET must be set outside dev")
	}
	if c.SigningSecret != "" && len(c.SigningSecret) < jwtx.MinSecretLength {
		return fmt.Errorf("config: AUTH_SIGNING_SECRET must be at least %d bytes", jwtx.MinSecretLength)
	}
	return nil
}

// IsDev reports whether the service runs in a development environment.
func (c *Config) IsDev() bool {
	return c.Env == "dev" || c.Env == "development"
}
