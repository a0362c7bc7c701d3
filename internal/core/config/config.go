// Package config handles configuration loading and validation for taskdeck.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

// Config holds the application configuration.
type Config struct {
	Store   StoreConfig `yaml:"store"`
	Sync    SyncConfig  `yaml:"sync"`
	Auth    AuthConfig  `yaml:"auth"`
	DataDir string      `yaml:"-"` // set by caller, not from config file
}

// StoreConfig selects and configures the document store backend.
type StoreConfig struct {
	// Backend is "sqlite" (local file store) or "mongo" (hosted store).
	Backend string `yaml:"backend"`
	// MongoURI is the connection string for the mongo backend.
	MongoURI string `yaml:"mongo_uri"`
	// Database and Collection name the mongo task collection.
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// SyncConfig tunes the sync subsystem.
type SyncConfig struct {
	// CreateTimeout bounds the remote write race during task creation.
	CreateTimeout time.Duration `yaml:"create_timeout"`
	// ProbeURL is the endpoint the connectivity probe checks.
	ProbeURL string `yaml:"probe_url"`
	// ProbeInterval is how often the connectivity probe runs.
	ProbeInterval time.Duration `yaml:"probe_interval"`
}

// AuthConfig configures the local session provider.
type AuthConfig struct {
	// Secret signs session tokens. Generated on first run when empty.
	Secret string `yaml:"secret"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{
			Backend:    BackendSQLite,
			Database:   "taskdeck",
			Collection: "tasks",
		},
		Sync: SyncConfig{
			CreateTimeout: 2 * time.Second,
			ProbeURL:      "https://clients3.google.com/generate_204",
			ProbeInterval: 15 * time.Second,
		},
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Store.Backend == "" {
		c.Store.Backend = def.Store.Backend
	}
	if c.Store.Database == "" {
		c.Store.Database = def.Store.Database
	}
	if c.Store.Collection == "" {
		c.Store.Collection = def.Store.Collection
	}
	if c.Sync.CreateTimeout <= 0 {
		c.Sync.CreateTimeout = def.Sync.CreateTimeout
	}
	if c.Sync.ProbeURL == "" {
		c.Sync.ProbeURL = def.Sync.ProbeURL
	}
	if c.Sync.ProbeInterval <= 0 {
		c.Sync.ProbeInterval = def.Sync.ProbeInterval
	}
}
