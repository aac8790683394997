package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
)

// Config is the full service configuration
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Database    DatabaseConfig    `toml:"database"`
	Auth        AuthConfig        `toml:"auth"`
	Planner     PlannerConfig     `toml:"planner"`
	Maintenance MaintenanceConfig `toml:"maintenance"`
}

// ServerConfig controls the HTTP listener
type ServerConfig struct {
	Port    string `toml:"port"`
	DevMode bool   `toml:"dev_mode"`
}

// DatabaseConfig selects postgres when URL is set, sqlite otherwise
type DatabaseConfig struct {
	URL  string `toml:"url"`
	Path string `toml:"path"`
}

// AuthConfig holds secrets and the bootstrap admin account
type AuthConfig struct {
	JWTSecret       string `toml:"jwt_secret"`
	APIMasterSecret string `toml:"api_master_secret"`
	AdminUsername   string `toml:"admin_username"`
	AdminPassword   string `toml:"admin_password"`
}

// PlannerConfig tunes timetable generation
type PlannerConfig struct {
	DefaultBudget int      `toml:"default_budget"`
	MaxBudget     int      `toml:"max_budget"`
	Workers       int      `toml:"workers"`
	Timeout       Duration `toml:"timeout"`
	DefaultPolicy string   `toml:"default_policy"`
	ExportLimit   int      `toml:"export_limit"`
}

// MaintenanceConfig controls the cleanup job
type MaintenanceConfig struct {
	Schedule      string `toml:"schedule"`
	RetentionDays int    `toml:"retention_days"`
}

// Duration reads "30s" style values from TOML
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
		},
		Database: DatabaseConfig{
			Path: "planner.db",
		},
		Auth: AuthConfig{
			AdminUsername: "admin",
			AdminPassword: "admin123",
		},
		Planner: PlannerConfig{
			DefaultBudget: 1000,
			MaxBudget:     100000,
			Timeout:       Duration{30 * time.Second},
			DefaultPolicy: "conflicts_first",
			ExportLimit:   20,
		},
		Maintenance: MaintenanceConfig{
			Schedule:      "0 3 * * *",
			RetentionDays: 90,
		},
	}
}

// LoadEnvFiles loads the first .env found in the working directory or its parents
func LoadEnvFiles() {
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return
		}
	}
}

// Load builds the configuration from defaults, an optional TOML file and the
// environment, in that order. An empty path uses PLANNER_CONFIG or
// planner.toml; a missing default file is not an error.
func Load(path string) (*Config, error) {
	LoadEnvFiles()

	cfg := DefaultConfig()
	explicit := path != ""
	if !explicit {
		path = os.Getenv("PLANNER_CONFIG")
		explicit = path != ""
	}
	if path == "" {
		path = "planner.toml"
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
		return nil
	}

	str("PORT", &c.Server.Port)
	if v := os.Getenv("DEV_MODE"); v != "" {
		c.Server.DevMode, _ = strconv.ParseBool(v)
	}
	str("DATABASE_URL", &c.Database.URL)
	str("DATA_PATH", &c.Database.Path)
	str("JWT_SECRET", &c.Auth.JWTSecret)
	str("API_MASTER_SECRET", &c.Auth.APIMasterSecret)
	str("ADMIN_USERNAME", &c.Auth.AdminUsername)
	str("ADMIN_PASSWORD", &c.Auth.AdminPassword)
	str("PLANNER_DEFAULT_POLICY", &c.Planner.DefaultPolicy)
	str("MAINTENANCE_SCHEDULE", &c.Maintenance.Schedule)

	for key, dst := range map[string]*int{
		"PLANNER_DEFAULT_BUDGET": &c.Planner.DefaultBudget,
		"PLANNER_MAX_BUDGET":     &c.Planner.MaxBudget,
		"PLANNER_WORKERS":        &c.Planner.Workers,
		"PLANNER_EXPORT_LIMIT":   &c.Planner.ExportLimit,
		"USAGE_RETENTION_DAYS":   &c.Maintenance.RetentionDays,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}

	if v := os.Getenv("PLANNER_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PLANNER_TIMEOUT: %w", err)
		}
		c.Planner.Timeout = Duration{d}
	}
	return nil
}

// Validate rejects settings the service cannot run with
func (c *Config) Validate() error {
	if c.Planner.DefaultBudget < 0 || c.Planner.MaxBudget < 0 {
		return errors.New("planner budgets must not be negative")
	}
	if c.Planner.DefaultBudget > c.Planner.MaxBudget {
		return fmt.Errorf("default budget %d exceeds max budget %d", c.Planner.DefaultBudget, c.Planner.MaxBudget)
	}
	if c.Maintenance.RetentionDays < 1 {
		return errors.New("retention_days must be at least 1")
	}
	return nil
}

// NewLogger builds a development logger in dev mode and a production one otherwise
func (c *Config) NewLogger() (*zap.Logger, error) {
	if c.Server.DevMode {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
