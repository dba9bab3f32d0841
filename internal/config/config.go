// Package config loads application settings from defaults, an optional
// YAML file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/weatherlens/weatherlens/internal/app"
	"github.com/weatherlens/weatherlens/internal/database"
	"github.com/weatherlens/weatherlens/internal/weather/openweathermap"
)

// Last-search storage drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the complete application configuration.
type Config struct {
	Env         string        `yaml:"env"`
	Port        string        `yaml:"port"`
	LogLevel    string        `yaml:"log_level"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	RequireTLS  bool          `yaml:"require_tls"`

	OpenWeatherMap OpenWeatherMap  `yaml:"openweathermap"`
	LastSearch     LastSearch      `yaml:"last_search"`
	Lookup         Lookup          `yaml:"lookup"`
	Database       database.Config `yaml:"database"`
	Telemetry      Telemetry       `yaml:"telemetry"`
	PubSub         PubSub          `yaml:"pubsub"`
	Admin          Admin           `yaml:"admin"`
}

// OpenWeatherMap configures the weather provider.
type OpenWeatherMap struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// LastSearch selects where the last searched city is kept.
type LastSearch struct {
	Driver     string `yaml:"driver"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Lookup holds the startup values of the lookup behaviour switches.
type Lookup struct {
	Overlap          string `yaml:"overlap"` // "latest" or "ignore"
	AutoLoadLastCity bool   `yaml:"auto_load_last_city"`
}

// Telemetry configures OpenTelemetry export.
type Telemetry struct {
	Enabled      bool    `yaml:"enabled"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRatio  float64 `yaml:"sample_ratio"`
}

// PubSub configures lookup event publishing. Publishing is off while
// ProjectID or Topic is empty.
type PubSub struct {
	ProjectID string `yaml:"project_id"`
	Topic     string `yaml:"topic"`
}

// Enabled reports whether events should be published.
func (p PubSub) Enabled() bool {
	return p.ProjectID != "" && p.Topic != ""
}

// Admin configures the admin API. The admin routes reject every request
// while JWTSecret is empty.
type Admin struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// minJWTSecret is the shortest accepted HS256 secret.
const minJWTSecret = 32

// Enabled reports whether admin tokens can be issued and checked.
func (a Admin) Enabled() bool {
	return a.JWTSecret != ""
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Env:         "development",
		Port:        "8080",
		LogLevel:    "info",
		HTTPTimeout: 10 * time.Second,
		OpenWeatherMap: OpenWeatherMap{
			BaseURL: openweathermap.DefaultBaseURL,
		},
		LastSearch: LastSearch{
			Driver:     DriverSQLite,
			SQLitePath: "weatherlens.db",
		},
		Lookup: Lookup{
			Overlap:          app.OverlapLatestWins.String(),
			AutoLoadLastCity: true,
		},
		Database: database.DefaultConfig(),
		Telemetry: Telemetry{
			OTLPEndpoint: "localhost:4317",
			SampleRatio:  1,
		},
	}
}

// Load reads the dotenv files that exist (".env" when none are named),
// then the YAML file named by CONFIG_FILE, then the environment.
// Variables already set in the process environment win over dotenv files.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// Validate checks the values that cannot be defaulted.
func (c Config) Validate() error {
	var errs []error

	if c.OpenWeatherMap.APIKey == "" {
		errs = append(errs, errors.New("OWM_API_KEY is required"))
	}
	switch c.LastSearch.Driver {
	case DriverMemory, DriverPostgres:
	case DriverSQLite:
		if c.LastSearch.SQLitePath == "" {
			errs = append(errs, errors.New("LASTSEARCH_SQLITE_PATH is required for the sqlite driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown last search driver %q", c.LastSearch.Driver))
	}
	if _, err := app.ParseOverlapPolicy(c.Lookup.Overlap); err != nil {
		errs = append(errs, err)
	}
	if c.Admin.Enabled() && len(c.Admin.JWTSecret) < minJWTSecret {
		errs = append(errs, fmt.Errorf("ADMIN_JWT_SECRET must be at least %d bytes", minJWTSecret))
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		errs = append(errs, errors.New("OTEL_TRACES_SAMPLER_ARG must be between 0 and 1"))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, errors.New("HTTP_TIMEOUT must be positive"))
	}

	return errors.Join(errs...)
}

// OverlapPolicy returns the parsed lookup overlap policy.
func (c Config) OverlapPolicy() app.OverlapPolicy {
	p, _ := app.ParseOverlapPolicy(c.Lookup.Overlap)
	return p
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	e := envReader{lookup: lookup}

	e.str("APP_ENV", &c.Env)
	e.str("APP_PORT", &c.Port)
	e.str("LOG_LEVEL", &c.LogLevel)
	e.duration("HTTP_TIMEOUT", &c.HTTPTimeout)
	e.boolean("REQUIRE_TLS", &c.RequireTLS)

	e.str("OWM_API_KEY", &c.OpenWeatherMap.APIKey)
	e.str("OWM_BASE_URL", &c.OpenWeatherMap.BaseURL)

	e.str("LASTSEARCH_DRIVER", &c.LastSearch.Driver)
	e.str("LASTSEARCH_SQLITE_PATH", &c.LastSearch.SQLitePath)

	e.str("OVERLAP_POLICY", &c.Lookup.Overlap)
	e.boolean("AUTO_LOAD_LAST_CITY", &c.Lookup.AutoLoadLastCity)

	e.str("DB_HOST", &c.Database.Host)
	e.integer("DB_PORT", &c.Database.Port)
	e.str("DB_USER", &c.Database.User)
	e.str("DB_PASSWORD", &c.Database.Password)
	e.str("DB_NAME", &c.Database.Database)
	e.str("DB_SSL_MODE", &c.Database.SSLMode)
	e.integer("DB_MAX_OPEN_CONNS", &c.Database.MaxOpenConns)
	e.integer("DB_MAX_IDLE_CONNS", &c.Database.MaxIdleConns)
	e.duration("DB_CONN_MAX_LIFETIME", &c.Database.ConnMaxLifetime)

	e.boolean("OTEL_ENABLED", &c.Telemetry.Enabled)
	e.str("OTEL_EXPORTER_OTLP_ENDPOINT", &c.Telemetry.OTLPEndpoint)
	e.float("OTEL_TRACES_SAMPLER_ARG", &c.Telemetry.SampleRatio)

	e.str("PUBSUB_PROJECT_ID", &c.PubSub.ProjectID)
	e.str("PUBSUB_TOPIC", &c.PubSub.Topic)

	e.str("ADMIN_JWT_SECRET", &c.Admin.JWTSecret)

	return errors.Join(e.errs...)
}

// envReader overlays set, non-empty variables and collects parse errors.
type envReader struct {
	lookup lookupFunc
	errs   []error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) integer(key string, dst *int) {
	if v, ok := e.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}
}

func (e *envReader) float(key string, dst *float64) {
	if v, ok := e.get(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = f
	}
}

func (e *envReader) boolean(key string, dst *bool) {
	if v, ok := e.get(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = b
	}
}

func (e *envReader) duration(key string, dst *time.Duration) {
	if v, ok := e.get(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}
}
