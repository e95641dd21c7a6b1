package app

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/aussiebroadwan/passage/pkg/jwtx"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Env                  string        `env:"ENV" envDefault:"dev"`         // dev, staging, prod
	LogLevel             string        `env:"LOG_LEVEL" envDefault:"info"`  // debug, info, warn, error
	LogFormat            string        `env:"LOG_FORMAT" envDefault:"json"` // json, text
	Port                 int           `env:"PORT" envDefault:"8080"`
	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"1h"`

	DatabaseFile string `env:"AUTH_DATABASE_FILE" envDefault:"auth.db"`
	PepperFile   string `env:"AUTH_PEPPER_FILE" envDefault:"pepper"`

	// JWTSecret is raw text or "base64:"-prefixed; see jwtx.ParseSecret.
	JWTSecret       string        `env:"AUTH_JWT_SECRET,required,notEmpty,unset"`
	Issuer          string        `env:"AUTH_ISSUER" envDefault:"passage"`
	AccessTokenTTL  time.Duration `env:"AUTH_ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL time.Duration `env:"AUTH_REFRESH_TOKEN_TTL" envDefault:"168h"`
	CodeTTL         time.Duration `env:"AUTH_CODE_TTL" envDefault:"60s"`

	CookieSecure bool   `env:"AUTH_COOKIE_SECURE" envDefault:"true"`
	CORSOrigin   string `env:"AUTH_CORS_ORIGIN" envDefault:"http://localhost:5173"`
	RedirectURI  string `env:"AUTH_OAUTH2_REDIRECT_URI" envDefault:"http://localhost:5173/oauth2/callback"`

	Google GoogleConfig

	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`
}

// GoogleConfig enables Google login when all three values are set.
type GoogleConfig struct {
	ClientID     string `env:"GOOGLE_CLIENT_ID"`
	ClientSecret string `env:"GOOGLE_CLIENT_SECRET,unset"`
	CallbackURL  string `env:"GOOGLE_CALLBACK_URL"`
}

func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != "" && g.CallbackURL != ""
}

// LoadConfig reads an optional .env file, then the environment, and
// validates the result.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()
	return parseConfig(env.Options{})
}

func parseConfig(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error

	switch c.Env {
	case "dev", "staging", "prod":
	default:
		errs = append(errs, fmt.Errorf("ENV must be dev, staging or prod, got %q", c.Env))
	}

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d is out of range", c.Port))
	}

	secret, err := jwtx.ParseSecret(c.JWTSecret)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("AUTH_JWT_SECRET: %w", err))
	case len(secret) < jwtx.MinSecretLength:
		errs = append(errs, fmt.Errorf("AUTH_JWT_SECRET must be at least %d bytes, got %d", jwtx.MinSecretLength, len(secret)))
	}

	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 || c.CodeTTL <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}
	if c.AccessTokenTTL >= c.RefreshTokenTTL {
		errs = append(errs, errors.New("AUTH_ACCESS_TOKEN_TTL must be shorter than AUTH_REFRESH_TOKEN_TTL"))
	}
	if c.CodeTTL > 5*time.Minute {
		errs = append(errs, errors.New("AUTH_CODE_TTL must not exceed 5m"))
	}

	if !c.CookieSecure && c.Env != "dev" {
		errs = append(errs, errors.New("AUTH_COOKIE_SECURE may only be false when ENV=dev"))
	}

	if u, err := url.Parse(c.RedirectURI); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("AUTH_OAUTH2_REDIRECT_URI %q is not an absolute URL", c.RedirectURI))
	}

	return errors.Join(errs...)
}
