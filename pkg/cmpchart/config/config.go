// Package config layers defaults, an optional YAML file, .env files,
// CMPCHART_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/komsit37/cmpchart/pkg/cmpchart/render"
	"github.com/komsit37/cmpchart/pkg/cmpchart/source"
	"github.com/komsit37/cmpchart/pkg/cmpchart/store"
)

const EnvPrefix = "CMPCHART"

// DefaultTimeout bounds each Yahoo request unless configured otherwise.
const DefaultTimeout = 10 * time.Second

type Config struct {
	Source  string        `mapstructure:"source"`
	DSN     string        `mapstructure:"dsn"`
	Driver  string        `mapstructure:"driver"`
	Range   string        `mapstructure:"range"`
	Proxy   string        `mapstructure:"proxy"`
	Timeout time.Duration `mapstructure:"timeout"`

	Render RenderConfig `mapstructure:"render"`
	Serve  ServeConfig  `mapstructure:"serve"`
	Quotes QuotesConfig `mapstructure:"quotes"`
	Ingest IngestConfig `mapstructure:"ingest"`
}

type RenderConfig struct {
	Format  string   `mapstructure:"format"`
	Only    string   `mapstructure:"only"`
	Out     string   `mapstructure:"out"`
	Title   string   `mapstructure:"title"`
	Target  string   `mapstructure:"target"`
	Columns []string `mapstructure:"columns"`
	Quotes  bool     `mapstructure:"quotes"`
	Pretty  bool     `mapstructure:"pretty"`
}

type ServeConfig struct {
	Addr    string   `mapstructure:"addr"`
	Refresh string   `mapstructure:"refresh"` // cron spec with seconds, empty disables
	Origins []string `mapstructure:"origins"`
}

type QuotesConfig struct {
	TTL  time.Duration `mapstructure:"ttl"`
	Size int           `mapstructure:"size"`
}

type IngestConfig struct {
	Start    string `mapstructure:"start"`
	End      string `mapstructure:"end"`
	VendorID int64  `mapstructure:"vendor_id"`
}

var defaults = map[string]any{
	"source":          source.KindYAML,
	"dsn":             "cmpchart.db",
	"driver":          store.DriverSQLite,
	"range":           "1y",
	"proxy":           "",
	"timeout":         DefaultTimeout,
	"render.format":   render.FormatHTML,
	"render.only":     "",
	"render.out":      "",
	"render.title":    "",
	"render.target":   render.DefaultTarget,
	"render.columns":  []string{},
	"render.quotes":   false,
	"render.pretty":   false,
	"serve.addr":      ":8080",
	"serve.refresh":   "0 0 * * * *",
	"serve.origins":   []string{"*"},
	"quotes.ttl":      time.Minute,
	"quotes.size":     256,

	"ingest.start":     "",
	"ingest.end":       "",
	"ingest.vendor_id": store.DefaultVendorID,
}

// Loader wraps a private viper instance so tests and commands do not
// share global state.
type Loader struct {
	v        *viper.Viper
	EnvFiles []string
}

func New() *Loader {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{v: v, EnvFiles: []string{".env"}}
}

// BindFlag makes flag override key when it was set on the command line.
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("bind %s: no such flag", key)
	}
	return l.v.BindPFlag(key, flag)
}

// Load reads .env files (missing ones are skipped), then the config file
// at path when set, and returns the validated result.
func (l *Loader) Load(path string) (Config, error) {
	for _, f := range l.EnvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	if path != "" {
		l.v.SetConfigFile(path)
		if err := l.v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ScheduleParser accepts six-field cron specs (leading seconds) and
// descriptors such as "@every 15m".
var ScheduleParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (c Config) Validate() error {
	var errs []error
	if !knownSource(c.Source) {
		errs = append(errs, fmt.Errorf("unknown source %q (available: %s)", c.Source, strings.Join(source.Kinds, ", ")))
	}
	if !slices.Contains(render.Formats, strings.ToLower(c.Render.Format)) && c.Render.Format != "markdown" {
		errs = append(errs, fmt.Errorf("unknown format %q (available: %s)", c.Render.Format, strings.Join(render.Formats, ", ")))
	}
	switch strings.ToLower(c.Driver) {
	case store.DriverSQLite, store.DriverPostgres, "sqlite3", "postgresql", "pg":
	default:
		errs = append(errs, fmt.Errorf("unknown driver %q", c.Driver))
	}
	if c.Serve.Refresh != "" {
		if _, err := ScheduleParser.Parse(c.Serve.Refresh); err != nil {
			errs = append(errs, fmt.Errorf("serve.refresh %q: %w", c.Serve.Refresh, err))
		}
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative"))
	}
	return errors.Join(errs...)
}

func knownSource(kind string) bool {
	switch strings.ToLower(kind) {
	case "yml", "json", "file", "sqlite3", "postgresql", "pg":
		return true
	}
	return slices.Contains(source.Kinds, strings.ToLower(kind))
}
