package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// StorageEnv overrides [storage] backend.
const StorageEnv = "CHATTER_STORAGE"

// Config represents the global ~/.chatter/config.toml.
type Config struct {
	DefaultProfile string  `toml:"default_profile"`
	Storage        Storage `toml:"storage"`
	Replies        Replies `toml:"replies"`
	Log            Log     `toml:"log"`
}

// Log controls the daemon logger.
type Log struct {
	Level string `toml:"level"`
}

// Storage selects where the chat and call documents live: "file" or
// "sqlite".
type Storage struct {
	Backend string `toml:"backend"`
}

// Replies tunes the simulated counterpart that answers sent messages.
type Replies struct {
	Enabled     bool          `toml:"enabled"`
	Probability float64       `toml:"probability"`
	MinDelay    time.Duration `toml:"min_delay"`
	MaxDelay    time.Duration `toml:"max_delay"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Storage: Storage{Backend: "file"},
		Replies: Replies{
			Enabled:     true,
			Probability: 0.5,
			MinDelay:    time.Second,
			MaxDelay:    2 * time.Second,
		},
		Log: Log{Level: "info"},
	}
}

// Load reads config from the given path. Returns nil config and error if file missing.
// Keys absent from the file keep their Default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	_, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// ApplyEnv overlays environment overrides onto cfg.
func ApplyEnv(cfg *Config) {
	if backend := os.Getenv(StorageEnv); backend != "" {
		cfg.Storage.Backend = backend
	}
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
