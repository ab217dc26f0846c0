package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/DoyleJ11/banpick-backend/internal/engine"
)

const (
	CatalogBuiltin  = "builtin"
	CatalogFile     = "file"
	CatalogPostgres = "postgres"
)

type Config struct {
	Addr        string `env:"ADDR" envDefault:":8080"`
	Env         string `env:"APP_ENV" envDefault:"development"`
	DatabaseURL string `env:"DATABASE_URL"`

	JWTSecret string `env:"JWT_SECRET,required"`
	JWTIssuer string `env:"JWT_ISSUER"`

	CatalogSource string `env:"CATALOG_SOURCE" envDefault:"builtin"`
	CatalogPath   string `env:"CATALOG_PATH"`

	RotationCapacity int           `env:"ROTATION_CAPACITY" envDefault:"2"`
	PhaseQuota       int           `env:"PHASE_QUOTA" envDefault:"4"`
	DraftTurnLimit   time.Duration `env:"DRAFT_TURN_LIMIT" envDefault:"20s"`
	GroupTurnLimit   time.Duration `env:"GROUP_TURN_LIMIT" envDefault:"20s"`
	EnforceTurnTimer bool          `env:"ENFORCE_TURN_TIMER" envDefault:"true"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" envSeparator:","`
}

// Load reads an optional .env file, then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// LoadFrom parses an explicit environment; the process environment is ignored.
func LoadFrom(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.CatalogSource {
	case CatalogBuiltin:
	case CatalogFile:
		if c.CatalogPath == "" {
			return fmt.Errorf("CATALOG_PATH is required for the file catalog")
		}
	case CatalogPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres catalog")
		}
	default:
		return fmt.Errorf("unknown CATALOG_SOURCE %q", c.CatalogSource)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	if err := c.Rules().Validate(); err != nil {
		return fmt.Errorf("rules: %w", err)
	}
	return nil
}

// CheckCatalog rejects default quotas that a catalog of size items cannot
// fill, since no session created with them could ever start.
func (c Config) CheckCatalog(size int) error {
	if need := c.Rules().TotalQuota(); need > size {
		return fmt.Errorf("PHASE_QUOTA needs %d catalog items, catalog has %d", need, size)
	}
	return nil
}

// Rules are the defaults for sessions created without overrides.
func (c Config) Rules() engine.Rules {
	return engine.Rules{
		Capacity:       c.RotationCapacity,
		DraftBanQuota:  c.PhaseQuota,
		DraftPickQuota: c.PhaseQuota,
		GroupBanQuota:  c.PhaseQuota,
		GroupPickQuota: c.PhaseQuota,
		DraftTurnLimit: c.DraftTurnLimit,
		GroupTurnLimit: c.GroupTurnLimit,
		EnforceTimer:   c.EnforceTurnTimer,
	}
}

func (c Config) Production() bool { return c.Env == "production" }
