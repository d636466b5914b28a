package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
)

// EnvPrefix namespaces environment overrides, e.g. LISTVIEW_BACKEND_URL.
const EnvPrefix = "LISTVIEW_"

// Config is the runtime configuration of the list view server and CLI.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Backend  BackendConfig  `koanf:"backend"`
	Company  CompanyConfig  `koanf:"company"`
	Poll     PollConfig     `koanf:"poll"`
	Export   ExportConfig   `koanf:"export"`
	Log      LogConfig      `koanf:"log"`
	Store    StoreConfig    `koanf:"store"`
	Manifest ManifestConfig `koanf:"manifest"`
}

type ServerConfig struct {
	Addr      string   `koanf:"addr"`
	Transport string   `koanf:"transport"`
	Origins   []string `koanf:"origins"`
}

type BackendConfig struct {
	URL   string  `koanf:"url"`
	Token string  `koanf:"token"`
	Rate  float64 `koanf:"rate"`
	Burst int     `koanf:"burst"`
	Mock  bool    `koanf:"mock"`
}

type CompanyConfig struct {
	ID string `koanf:"id"`
}

type PollConfig struct {
	Interval time.Duration `koanf:"interval"`
}

type ExportConfig struct {
	PageSize int `koanf:"pagesize"`
}

type LogConfig struct {
	Level   string `koanf:"level"`
	File    string `koanf:"file"`
	Console bool   `koanf:"console"`
}

// StoreConfig selects the settings tiers. An empty Driver keeps the remote
// tier on the backend company record; an empty Cache keeps the local tier in
// memory.
type StoreConfig struct {
	Driver string `koanf:"driver"`
	DSN    string `koanf:"dsn"`
	Cache  string `koanf:"cache"`
}

type ManifestConfig struct {
	Path string `koanf:"path"`
}

// Options tells Load where to look.
type Options struct {
	File    string
	EnvFile string
}

func defaults() map[string]any {
	return map[string]any{
		"server.addr":      ":8080",
		"server.transport": "mux",
		"backend.rate":     5.0,
		"backend.burst":    1,
		"poll.interval":    "3s",
		"export.pagesize":  1000,
		"log.level":        "info",
		"log.console":      true,
	}
}

// Load layers defaults, the optional YAML file and LISTVIEW_* environment
// variables, in that order. A .env file is loaded into the environment first
// when present. Load does not validate; see Validate.
func Load(opts Options) (Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load %s: %w", envFile, err)
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("config: defaults: %w", err)
	}
	if opts.File != "" {
		if err := k.Load(file.Provider(opts.File), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", opts.File, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("config: env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	return cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if c.Backend.URL == "" && !c.Backend.Mock {
		return errors.New("config: backend.url is required unless backend.mock is set")
	}
	switch c.Store.Driver {
	case "", "sqlite3", "postgres", "mysql":
	default:
		return fmt.Errorf("config: unsupported store.driver %q", c.Store.Driver)
	}
	if c.Store.Driver != "" && c.Store.DSN == "" {
		return errors.New("config: store.dsn is required with store.driver")
	}
	switch c.Server.Transport {
	case "mux", "fiber":
	default:
		return fmt.Errorf("config: unsupported server.transport %q", c.Server.Transport)
	}
	if c.Poll.Interval < time.Second {
		return fmt.Errorf("config: poll.interval must be at least 1s, got %s", c.Poll.Interval)
	}
	if c.Export.PageSize <= 0 {
		return errors.New("config: export.pagesize must be positive")
	}
	return nil
}
