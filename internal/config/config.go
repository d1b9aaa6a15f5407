// Package config loads datamodeler settings. Sources are layered, each
// overriding the one before: built-in defaults, a YAML file, DATAMODELER_
// environment variables (a local .env file included), then command-line
// flags that were set.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/koustreak/datamodeler/internal/database"
	"github.com/koustreak/datamodeler/internal/errs"
	"github.com/koustreak/datamodeler/internal/filestore"
	"github.com/koustreak/datamodeler/internal/logger"
	"github.com/spf13/pflag"
)

const (
	// EnvPrefix marks environment variables read as settings, e.g.
	// DATAMODELER_DATABASE_DSN sets database.dsn.
	EnvPrefix = "DATAMODELER_"

	// DefaultFile is read when no file is named and it exists.
	DefaultFile = "datamodeler.yaml"

	// EnvFile is loaded into the environment when present.
	EnvFile = ".env"
)

// Config is the full application configuration.
type Config struct {
	Server    ServerConfig     `koanf:"server"`
	Log       LogConfig        `koanf:"log"`
	Database  database.Config  `koanf:"database"`
	Filestore filestore.Config `koanf:"filestore"`

	// File is the config file that was read, if any.
	File string `koanf:"-"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// MaxBodyBytes caps request bodies, uploads included.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`
}

// LogConfig mirrors logger.Config minus the output writer.
type LogConfig struct {
	Level      string `koanf:"level"`
	Format     string `koanf:"format"`
	TimeFormat string `koanf:"time_format"`
}

// Logger returns the logger.Config for this section.
func (c LogConfig) Logger() *logger.Config {
	lc := logger.DefaultConfig()
	lc.Level, lc.Format, lc.TimeFormat = c.Level, c.Format, c.TimeFormat
	return lc
}

func defaults() map[string]any {
	db := database.DefaultConfig("")
	return map[string]any{
		"server.addr":             ":8080",
		"server.read_timeout":     15 * time.Second,
		"server.write_timeout":    60 * time.Second,
		"server.shutdown_timeout": 10 * time.Second,
		"server.max_body_bytes":   int64(32 << 20),

		"log.level":       "info",
		"log.format":      "json",
		"log.time_format": "rfc3339",

		"database.driver":             string(database.DriverMock),
		"database.max_conns":          db.MaxConns,
		"database.min_conns":          db.MinConns,
		"database.max_conn_lifetime":  db.MaxConnLifetime,
		"database.max_conn_idle_time": db.MaxConnIdleTime,
		"database.connect_timeout":    db.ConnectTimeout,
		"database.query_timeout":      db.QueryTimeout,
		"database.mock_delay":         db.MockDelay,

		"filestore.bucket": "datamodeler",
	}
}

// flagKeys maps command-line flag names onto config keys.
var flagKeys = map[string]string{
	"log-level":  "log.level",
	"log-format": "log.format",
	"addr":       "server.addr",
	"driver":     "database.driver",
	"dsn":        "database.dsn",
	"mock-delay": "database.mock_delay",
}

// Default returns the configuration with nothing but defaults applied.
func Default() *Config {
	k := koanf.New(".")
	_ = k.Load(confmap.Provider(defaults(), "."), nil)
	var cfg Config
	_ = k.Unmarshal("", &cfg)
	return &cfg
}

// Load builds the configuration. An empty path falls back to DefaultFile
// when it exists; a named file that is missing is an error. flags may be
// nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "load defaults", err)
	}

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, errs.Wrap(errs.ErrKindNotFound, "config file "+path, err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "read config file "+path, err)
		}
	}

	// .env never overrides variables already set in the process.
	_ = godotenv.Load(EnvFile)
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "load environment", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "load flags", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "decode config", err)
	}
	cfg.File = path
	return &cfg, nil
}

// envKey turns DATAMODELER_DATABASE_MOCK_DELAY into database.mock_delay:
// the first segment names the section and the rest is the field.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(s, "_")
	if !ok {
		return s
	}
	return section + "." + field
}

// Validate checks every section.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errs.New(errs.ErrKindInvalidInput, "server.addr is required")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return errs.New(errs.ErrKindInvalidInput, "server.max_body_bytes must be positive")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return errs.Newf(errs.ErrKindInvalidInput, "log.format must be json or console, got %q", c.Log.Format)
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	return c.Filestore.Validate()
}
