// Package config loads keeper settings from defaults, an optional config
// file, KEEPER_* environment variables and command-line flags, in
// increasing order of precedence, and validates the result against an
// embedded CUE schema.
package config

import (
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/spf13/viper"

	"github.com/roach88/keeper/internal/store"
	"github.com/roach88/keeper/internal/uow"
)

// EnvPrefix prefixes every environment variable the loader reads, so
// database.path is KEEPER_DATABASE_PATH.
const EnvPrefix = "KEEPER"

//go:embed schema.cue
var schemaSource string

// Config is the complete runtime configuration.
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database" json:"database"`
	UnitOfWork UnitOfWorkConfig `mapstructure:"unit_of_work" json:"unit_of_work"`
	Log        LogConfig        `mapstructure:"log" json:"log"`
}

// DatabaseConfig selects and tunes the SQLite database.
type DatabaseConfig struct {
	Path         string        `mapstructure:"path" json:"path"`
	BusyTimeout  time.Duration `mapstructure:"busy_timeout" json:"busy_timeout"`
	JournalMode  string        `mapstructure:"journal_mode" json:"journal_mode"`
	MaxOpenConns int           `mapstructure:"max_open_conns" json:"max_open_conns"`
}

// UnitOfWorkConfig controls how transactions are opened.
type UnitOfWorkConfig struct {
	BeginAttempts uint          `mapstructure:"begin_attempts" json:"begin_attempts"`
	BeginDelay    time.Duration `mapstructure:"begin_delay" json:"begin_delay"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	db := store.DefaultOptions("keeper.db")
	tx := uow.DefaultConfig()
	return Config{
		Database: DatabaseConfig{
			Path:         db.Path,
			BusyTimeout:  db.BusyTimeout,
			JournalMode:  db.JournalMode,
			MaxOpenConns: db.MaxOpenConns,
		},
		UnitOfWork: UnitOfWorkConfig{
			BeginAttempts: tx.Attempts,
			BeginDelay:    tx.Delay,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// NewViper returns a viper instance seeded with Default and wired to the
// KEEPER_* environment.
func NewViper() *viper.Viper {
	v := viper.New()
	d := Default()
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("database.busy_timeout", d.Database.BusyTimeout)
	v.SetDefault("database.journal_mode", d.Database.JournalMode)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("unit_of_work.begin_attempts", d.UnitOfWork.BeginAttempts)
	v.SetDefault("unit_of_work.begin_delay", d.UnitOfWork.BeginDelay)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads file (when non-empty) into v, decodes the merged settings and
// validates them.
func Load(v *viper.Viper, file string) (Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Database.JournalMode = strings.ToUpper(cfg.Database.JournalMode)
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cfg against the embedded schema.
func (c Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Config"))
	val := def.Unify(ctx.Encode(c))
	if err := val.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid configuration:\n%s", cueerrors.Details(err, nil))
	}
	return nil
}

// StoreOptions maps the database section onto store options.
func (c Config) StoreOptions() store.Options {
	return store.Options{
		Path:         c.Database.Path,
		BusyTimeout:  c.Database.BusyTimeout,
		JournalMode:  c.Database.JournalMode,
		MaxOpenConns: c.Database.MaxOpenConns,
	}
}

// UnitOfWorkConfig maps the unit_of_work section onto factory settings.
func (c Config) UnitOfWorkConfig() uow.Config {
	return uow.Config{
		Attempts: c.UnitOfWork.BeginAttempts,
		Delay:    c.UnitOfWork.BeginDelay,
	}
}

// NewLogger builds the slog logger described by the log section, writing
// to w.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(c.Log.Level)}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
