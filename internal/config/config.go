package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.kingchat/config.toml.
type Config struct {
	DefaultSession string `toml:"default_session"`

	// APIURL is the base URL of the KingChat HTTP API. Empty means the local
	// backend is used.
	APIURL         string   `toml:"api_url"`
	Offline        bool     `toml:"offline"`
	RequestTimeout Duration `toml:"request_timeout"`

	BotReplyDelay Duration `toml:"bot_reply_delay"`
	PageSize      int      `toml:"page_size"`
	LogLevel      string   `toml:"log_level"`
}

// Duration is a time.Duration written as a string like "2s".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.RequestTimeout.Duration <= 0 {
		c.RequestTimeout.Duration = 10 * time.Second
	}
	if c.BotReplyDelay.Duration <= 0 {
		c.BotReplyDelay.Duration = 2 * time.Second
	}
	if c.PageSize <= 0 {
		c.PageSize = 50
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Load reads config from the given path. Returns nil config and error if file missing.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// LoadOrDefault reads config from path, falling back to Default when the file
// does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
