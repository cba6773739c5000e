// Package config handles the XDG configuration directory and the layered
// client settings: defaults, config.yaml, .env files, then the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// AppName is the application directory name.
	AppName = "tasktrack"

	// ConfigFile is the optional settings file in the config directory.
	ConfigFile = "config.yaml"

	// EnvFile is the optional dotenv file read from the working directory
	// and the config directory.
	EnvFile = ".env"

	// OAuthClientFile is the Google OAuth client credentials filename.
	OAuthClientFile = "oauth_client.json"

	// GoogleTokenFile is the stored Google OAuth token filename.
	GoogleTokenFile = "google_token.json"
)

// Defaults.
const (
	DefaultAPIURL         = "http://localhost:8787"
	DefaultPlaceholderURL = "https://jsonplaceholder.typicode.com"
	DefaultTimeout        = 30 * time.Second
	DefaultImportTimeout  = 10 * time.Second
	DefaultStorage        = "file"
	DefaultSyncSource     = "api"
	DefaultBackgroundRPS  = 0
)

// Sync sources.
const (
	SyncSourceAPI         = "api"
	SyncSourcePlaceholder = "placeholder"
	SyncSourceGoogleTasks = "googletasks"
)

// Environment variables, highest precedence.
const (
	EnvAPIURL         = "TASKTRACK_API_URL"
	EnvPlaceholderURL = "TASKTRACK_PLACEHOLDER_URL"
	EnvTimeout        = "TASKTRACK_TIMEOUT"
	EnvStorage        = "TASKTRACK_STORAGE"
	EnvSyncSource     = "TASKTRACK_SYNC_SOURCE"
	EnvBackgroundRPS  = "TASKTRACK_BACKGROUND_RPS"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	// APIURL is the base URL of the task backend.
	APIURL string

	// PlaceholderURL is the base URL of the demo-data API used by import.
	PlaceholderURL string

	// Timeout bounds every backend request.
	Timeout time.Duration

	// ImportTimeout bounds a whole import.
	ImportTimeout time.Duration

	// Storage selects the persistence backend: file, badger or memory.
	Storage string

	// SyncSource selects the remote that sync and background legs use.
	SyncSource string

	// BackgroundRPS paces background legs. Zero means unpaced.
	BackgroundRPS float64
}

// fileSettings is the config.yaml schema. Durations use Go syntax ("30s").
type fileSettings struct {
	APIURL         string  `yaml:"api_url"`
	PlaceholderURL string  `yaml:"placeholder_url"`
	Timeout        string  `yaml:"timeout"`
	ImportTimeout  string  `yaml:"import_timeout"`
	Storage        string  `yaml:"storage"`
	SyncSource     string  `yaml:"sync_source"`
	BackgroundRPS  float64 `yaml:"background_rps"`
}

// New creates a Config with defaults and the default or specified config
// directory. If configDir is empty, uses XDG_CONFIG_HOME/tasktrack or
// $HOME/.config/tasktrack.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	return &Config{
		Dir:            dir,
		APIURL:         DefaultAPIURL,
		PlaceholderURL: DefaultPlaceholderURL,
		Timeout:        DefaultTimeout,
		ImportTimeout:  DefaultImportTimeout,
		Storage:        DefaultStorage,
		SyncSource:     DefaultSyncSource,
		BackgroundRPS:  DefaultBackgroundRPS,
	}, nil
}

// Load is New followed by the config.yaml, .env and environment layers.
func Load(configDir string) (*Config, error) {
	cfg, err := New(configDir)
	if err != nil {
		return nil, err
	}
	if err := cfg.loadFile(); err != nil {
		return nil, err
	}

	env, err := readDotenv(EnvFile, filepath.Join(cfg.Dir, EnvFile))
	if err != nil {
		return nil, err
	}
	for _, key := range []string{EnvAPIURL, EnvPlaceholderURL, EnvTimeout, EnvStorage, EnvSyncSource, EnvBackgroundRPS} {
		if v, ok := os.LookupEnv(key); ok {
			env[key] = v
		}
	}
	if err := cfg.applyEnv(env); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

func (c *Config) loadFile() error {
	data, err := os.ReadFile(filepath.Join(c.Dir, ConfigFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", ConfigFile, err)
	}

	var fs fileSettings
	if err := yaml.Unmarshal(data, &fs); err != nil {
		return fmt.Errorf("invalid %s: %w", ConfigFile, err)
	}

	if fs.APIURL != "" {
		c.APIURL = fs.APIURL
	}
	if fs.PlaceholderURL != "" {
		c.PlaceholderURL = fs.PlaceholderURL
	}
	if fs.Storage != "" {
		c.Storage = fs.Storage
	}
	if fs.SyncSource != "" {
		c.SyncSource = fs.SyncSource
	}
	if fs.BackgroundRPS != 0 {
		c.BackgroundRPS = fs.BackgroundRPS
	}
	if c.Timeout, err = duration(ConfigFile+": timeout", fs.Timeout, c.Timeout); err != nil {
		return err
	}
	if c.ImportTimeout, err = duration(ConfigFile+": import_timeout", fs.ImportTimeout, c.ImportTimeout); err != nil {
		return err
	}
	return nil
}

// readDotenv merges the dotenv files that exist, later files winning. The
// process environment is not modified.
func readDotenv(paths ...string) (map[string]string, error) {
	out := map[string]string{}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		vals, err := godotenv.Read(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", p, err)
		}
		for k, v := range vals {
			out[k] = v
		}
	}
	return out, nil
}

func (c *Config) applyEnv(env map[string]string) error {
	if v := env[EnvAPIURL]; v != "" {
		c.APIURL = v
	}
	if v := env[EnvPlaceholderURL]; v != "" {
		c.PlaceholderURL = v
	}
	if v := env[EnvStorage]; v != "" {
		c.Storage = v
	}
	if v := env[EnvSyncSource]; v != "" {
		c.SyncSource = v
	}
	if v := env[EnvBackgroundRPS]; v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: invalid number %q", EnvBackgroundRPS, v)
		}
		c.BackgroundRPS = rps
	}

	var err error
	c.Timeout, err = duration(EnvTimeout, env[EnvTimeout], c.Timeout)
	return err
}

func duration(name, v string, fallback time.Duration) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s: invalid duration %q", name, v)
	}
	return d, nil
}

// Validate checks the enumerated settings.
func (c *Config) Validate() error {
	switch c.Storage {
	case "file", "badger", "memory":
	default:
		return fmt.Errorf("unknown storage %q (want file, badger or memory)", c.Storage)
	}
	switch c.SyncSource {
	case SyncSourceAPI, SyncSourcePlaceholder, SyncSourceGoogleTasks:
	default:
		return fmt.Errorf("unknown sync source %q (want api, placeholder or googletasks)", c.SyncSource)
	}
	if c.BackgroundRPS < 0 {
		return fmt.Errorf("background rps must not be negative")
	}
	return nil
}

// OAuthClientPath returns the path to the Google OAuth client credentials file.
func (c *Config) OAuthClientPath() string {
	return filepath.Join(c.Dir, OAuthClientFile)
}

// GoogleTokenPath returns the path to the stored Google OAuth token file.
func (c *Config) GoogleTokenPath() string {
	return filepath.Join(c.Dir, GoogleTokenFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasOAuthClient checks if the OAuth client credentials file exists.
func (c *Config) HasOAuthClient() bool {
	_, err := os.Stat(c.OAuthClientPath())
	return err == nil
}

// HasGoogleToken checks if a Google account is linked.
func (c *Config) HasGoogleToken() bool {
	_, err := os.Stat(c.GoogleTokenPath())
	return err == nil
}

// RemoveGoogleToken unlinks the Google account.
func (c *Config) RemoveGoogleToken() error {
	return os.Remove(c.GoogleTokenPath())
}
