package infra

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL"`
	PGHost      string `env:"PGHOST" envDefault:"localhost"`
	PGPort      int    `env:"PGPORT" envDefault:"5432"`
	PGUser      string `env:"PGUSER" envDefault:"partyrush"`
	PGPassword  string `env:"PGPASSWORD" envDefault:"partyrush"`
	PGDatabase  string `env:"PGDATABASE" envDefault:"partyrush"`

	// Connection pool sizing
	DBPoolMaxConns int `env:"DB_POOL_MAX_CONNS" envDefault:"20"`
	DBPoolMinConns int `env:"DB_POOL_MIN_CONNS" envDefault:"2"`

	// JWT (admin console only; players use opaque tokens)
	JWTSecret      string `env:"JWT_SECRET" envDefault:"change-me-in-production"`
	JWTAdminExpiry string `env:"JWT_ADMIN_EXPIRY" envDefault:"8h"`

	// Server
	APIPort int `env:"API_PORT" envDefault:"3200"`

	// NATS broadcast bridge. Empty disables cross-instance fan-out.
	NATSURL string `env:"NATS_URL"`

	// Media storage for selfie uploads
	MediaDir string `env:"MEDIA_DIR" envDefault:"./media"`
	BaseURL  string `env:"BASE_URL" envDefault:"http://localhost:3200"`

	// Crash game
	BettingWindow string `env:"CRASH_BETTING_WINDOW" envDefault:"10s"`

	// CORS
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	// Dev
	AllowInsecureDefaults bool `env:"ALLOW_INSECURE_DEFAULTS" envDefault:"false"`
}

// LoadConfig parses environment variables into a Config struct.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks for insecure configuration that must not run in production.
// Set ALLOW_INSECURE_DEFAULTS=true to bypass (local dev only).
func (c *Config) Validate() error {
	if c.AllowInsecureDefaults {
		return nil
	}
	if c.JWTSecret == "change-me-in-production" {
		return fmt.Errorf("JWT_SECRET is set to the insecure default; set a strong secret or set ALLOW_INSECURE_DEFAULTS=true for local dev")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET is too short (%d chars); minimum 32 characters required", len(c.JWTSecret))
	}
	return nil
}

// DSN returns the PostgreSQL connection string, preferring DATABASE_URL if set.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}

// AdminExpiry parses the admin JWT lifetime.
func (c *Config) AdminExpiry() (time.Duration, error) {
	d, err := time.ParseDuration(c.JWTAdminExpiry)
	if err != nil {
		return 0, fmt.Errorf("parse JWT_ADMIN_EXPIRY: %w", err)
	}
	return d, nil
}

// CrashBettingWindow parses the advisory betting window for crash rounds.
func (c *Config) CrashBettingWindow() (time.Duration, error) {
	d, err := time.ParseDuration(c.BettingWindow)
	if err != nil {
		return 0, fmt.Errorf("parse CRASH_BETTING_WINDOW: %w", err)
	}
	return d, nil
}
