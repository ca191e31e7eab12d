// Package config loads reponav settings from an optional YAML file, a .env
// file and REPONAV_* environment variables.
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
)

// DefaultFile is read when Load is given no path and the file exists.
const DefaultFile = "reponav.yaml"

// Config holds every setting.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Client ClientConfig `yaml:"client"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig configures `reponav serve`.
type ServerConfig struct {
	Root     string   `yaml:"root"`
	Addr     string   `yaml:"addr"`
	Endpoint string   `yaml:"endpoint"`
	Patterns []string `yaml:"patterns,omitempty"`
	// CacheSize is the number of parsed files kept between analyses.
	CacheSize   int   `yaml:"cache_size"`
	MaxFileSize int64 `yaml:"max_file_size"`
}

// ClientConfig configures the requesting commands.
type ClientConfig struct {
	// Endpoint names this client. Empty picks a unique name per process.
	Endpoint  string        `yaml:"endpoint"`
	ServerURL string        `yaml:"server_url"`
	Author    string        `yaml:"author"`
	Timeout   time.Duration `yaml:"timeout"`
}

// LogConfig selects the log level (debug, info, warn, error) and format
// (text, json).
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Root:        ".",
			Addr:        "127.0.0.1:8050",
			Endpoint:    "server",
			CacheSize:   1024,
			MaxFileSize: 1_000_000,
		},
		Client: ClientConfig{
			ServerURL: "ws://127.0.0.1:8050/ws",
			Timeout:   30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration. Defaults are overlaid by the YAML file at
// path, then by environment variables (a .env file in the working
// directory is loaded first if present). An empty path reads DefaultFile
// when it exists; an explicit path must exist.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := Default()

	file := path
	if file == "" {
		file = DefaultFile
	}
	data, err := os.ReadFile(file)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", file, err)
		}
	case path == "" && errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Server.Root, "REPONAV_ROOT")
	setString(&cfg.Server.Addr, "REPONAV_ADDR")
	setString(&cfg.Server.Endpoint, "REPONAV_ENDPOINT")
	setString(&cfg.Client.Endpoint, "REPONAV_CLIENT_ENDPOINT")
	setString(&cfg.Client.ServerURL, "REPONAV_SERVER_URL")
	setString(&cfg.Client.Author, "REPONAV_AUTHOR")
	setString(&cfg.Log.Level, "REPONAV_LOG_LEVEL")
	setString(&cfg.Log.Format, "REPONAV_LOG_FORMAT")

	if v := os.Getenv("REPONAV_PATTERNS"); v != "" {
		cfg.Server.Patterns = splitList(v)
	}
	if v := os.Getenv("REPONAV_CACHE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REPONAV_CACHE_SIZE: %w", err)
		}
		cfg.Server.CacheSize = n
	}
	if v := os.Getenv("REPONAV_MAX_FILE_SIZE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("REPONAV_MAX_FILE_SIZE: %w", err)
		}
		cfg.Server.MaxFileSize = n
	}
	if v := os.Getenv("REPONAV_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("REPONAV_TIMEOUT: %w", err)
		}
		cfg.Client.Timeout = d
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// WriteDefault writes the default configuration to path. An existing file
// is left alone unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s: %w", path, fs.ErrExist)
		}
	}
	data, err := Marshal(Default())
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
