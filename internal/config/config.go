package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"github.com/wesm/queryview/internal/source"
)

const (
	configFileName = "config.json"
	dataFileName   = "query_history.csv"
)

// Config holds all application configuration.
type Config struct {
	Host       string `json:"host"`
	Port       int    `json:"port"`
	NoBrowser  bool   `json:"no_browser"`
	BrowserCmd string `json:"browser_cmd,omitempty"`

	Source   string `json:"source"`
	DataPath string `json:"data_path"`
	DataDir  string `json:"-"`
	Watch    bool   `json:"watch"`

	// RefreshInterval reloads the source periodically when
	// non-zero. Mostly useful for Snowflake, which has no file
	// to watch.
	RefreshInterval time.Duration `json:"-"`
	WriteTimeout    time.Duration `json:"-"`

	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`

	TopN      int `json:"top_n"`
	CacheSize int `json:"cache_size"`

	Snowflake source.SnowflakeConfig `json:"snowflake"`
}

// Default returns a Config with default values.
func Default() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf(
			"determining home directory: %w", err,
		)
	}
	return Config{
		Host:         "127.0.0.1",
		Port:         8080,
		Source:       source.KindCSV,
		DataDir:      filepath.Join(home, ".queryview"),
		Watch:        true,
		WriteTimeout: 30 * time.Second,
		LogLevel:     "info",
		LogFormat:    "console",
		TopN:         100,
		CacheSize:    256,
	}, nil
}

// Load builds a Config by layering: defaults < config file < env < flags.
// The provided FlagSet must already be parsed by the caller.
// Only flags that were explicitly set override the lower layers.
func Load(fs *pflag.FlagSet) (Config, error) {
	cfg, err := Default()
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("QUERYVIEW_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if err := cfg.loadFile(); err != nil {
		return cfg, fmt.Errorf("loading config file: %w", err)
	}
	if err := cfg.loadEnv(); err != nil {
		return cfg, err
	}
	if err := applyFlags(&cfg, fs); err != nil {
		return cfg, err
	}
	if cfg.DataPath == "" && cfg.Source != source.KindSnowflake {
		cfg.DataPath = filepath.Join(cfg.DataDir, dataFileName)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) configPath() string {
	return filepath.Join(c.DataDir, configFileName)
}

// fileConfig mirrors Config for config.json. Durations are Go
// duration strings ("30s", "5m").
type fileConfig struct {
	Config
	RefreshInterval string `json:"refresh_interval"`
	WriteTimeout    string `json:"write_timeout"`
}

func (c *Config) loadFile() error {
	data, err := os.ReadFile(c.configPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	file := fileConfig{Config: *c}
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	dataDir := c.DataDir
	*c = file.Config
	c.DataDir = dataDir

	if file.RefreshInterval != "" {
		d, err := time.ParseDuration(file.RefreshInterval)
		if err != nil {
			return fmt.Errorf("refresh_interval: %w", err)
		}
		c.RefreshInterval = d
	}
	if file.WriteTimeout != "" {
		d, err := time.ParseDuration(file.WriteTimeout)
		if err != nil {
			return fmt.Errorf("write_timeout: %w", err)
		}
		c.WriteTimeout = d
	}
	return nil
}

func (c *Config) loadEnv() error {
	if v := os.Getenv("QUERYVIEW_SOURCE"); v != "" {
		c.Source = v
	}
	if v := os.Getenv("QUERYVIEW_DATA"); v != "" {
		c.DataPath = v
	}
	if v := os.Getenv("QUERYVIEW_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("QUERYVIEW_REFRESH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("QUERYVIEW_REFRESH_INTERVAL: %w", err)
		}
		c.RefreshInterval = d
	}

	sf := &c.Snowflake
	for env, dst := range map[string]*string{
		"SNOWFLAKE_ACCOUNT":   &sf.Account,
		"SNOWFLAKE_USER":      &sf.User,
		"SNOWFLAKE_PASSWORD":  &sf.Password,
		"SNOWFLAKE_DATABASE":  &sf.Database,
		"SNOWFLAKE_SCHEMA":    &sf.Schema,
		"SNOWFLAKE_WAREHOUSE": &sf.Warehouse,
		"SNOWFLAKE_ROLE":      &sf.Role,
	} {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
	return nil
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	switch c.Source {
	case source.KindCSV, source.KindSQLite, source.KindSnowflake:
	default:
		return fmt.Errorf(
			"invalid source %q: must be csv, sqlite, or snowflake",
			c.Source,
		)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf(
			"invalid log format %q: must be console or json",
			c.LogFormat,
		)
	}
	if c.TopN <= 0 {
		return fmt.Errorf("top_n must be positive, got %d", c.TopN)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache_size must not be negative")
	}
	if c.RefreshInterval < 0 {
		return fmt.Errorf("refresh_interval must not be negative")
	}
	return nil
}

// SourceParams returns the loader parameters for this config.
func (c *Config) SourceParams() source.Params {
	return source.Params{
		Kind:      c.Source,
		Path:      c.DataPath,
		Snowflake: c.Snowflake,
	}
}

// RegisterSourceFlags registers the flags shared by every command
// that loads the dataset.
func RegisterSourceFlags(fs *pflag.FlagSet) {
	fs.String("source", source.KindCSV,
		"Data source: csv, sqlite, or snowflake")
	fs.String("data", "", "Path to the CSV export or SQLite snapshot")
	fs.String("log-level", "info", "Log level: debug, info, warn, error")
	fs.String("log-format", "console", "Log format: console or json")
}

// RegisterServeFlags registers serve-command flags on fs.
// The caller must parse fs before passing it to Load.
func RegisterServeFlags(fs *pflag.FlagSet) {
	fs.String("host", "127.0.0.1", "Host to bind to")
	fs.Int("port", 8080, "Port to listen on")
	fs.Bool("no-browser", false, "Don't open browser on startup")
	fs.Bool("watch", true, "Reload when the data file changes")
	fs.Duration("refresh", 0,
		"Reload the source on this interval (0 disables)")
	fs.Int("top-n", 100, "Rows in the slowest-queries table")
}

// applyFlags copies explicitly-set flags from fs into cfg.
func applyFlags(cfg *Config, fs *pflag.FlagSet) error {
	if fs == nil {
		return nil
	}
	var firstErr error
	fs.Visit(func(f *pflag.Flag) {
		var err error
		v := f.Value.String()
		switch f.Name {
		case "host":
			cfg.Host = v
		case "port":
			cfg.Port, err = strconv.Atoi(v)
		case "no-browser":
			cfg.NoBrowser, err = strconv.ParseBool(v)
		case "watch":
			cfg.Watch, err = strconv.ParseBool(v)
		case "refresh":
			cfg.RefreshInterval, err = time.ParseDuration(v)
		case "top-n":
			cfg.TopN, err = strconv.Atoi(v)
		case "source":
			cfg.Source = v
		case "data":
			cfg.DataPath = v
		case "log-level":
			cfg.LogLevel = v
		case "log-format":
			cfg.LogFormat = v
		}
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("flag --%s: %w", f.Name, err)
		}
	})
	return firstErr
}
