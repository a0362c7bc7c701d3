package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/hay-kot/criterio"
)

// Validate performs structural validation of the configuration.
func (c *Config) Validate() error {
	return criterio.ValidateStruct(
		criterio.Run("store.backend", c.Store.Backend, isKnownBackend),
		c.validateMongo(),
		criterio.Run("data_dir", c.DataDir, isDirectoryOrNotExist),
	)
}

// ValidateDeep adds I/O checks on top of Validate. The configPath argument
// specifies the config file location to validate (empty string skips it).
func (c *Config) ValidateDeep(configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return validateConfigFile(configPath)
}

func (c *Config) validateMongo() error {
	if c.Store.Backend != BackendMongo {
		return nil
	}
	if strings.TrimSpace(c.Store.MongoURI) == "" {
		return criterio.NewFieldErrors("store.mongo_uri", fmt.Errorf("required when backend is %q", BackendMongo))
	}
	return nil
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

// isKnownBackend validates the store backend selector.
func isKnownBackend(backend string) error {
	switch backend {
	case BackendSQLite, BackendMongo:
		return nil
	default:
		return fmt.Errorf("unknown backend %q (expected %q or %q)", backend, BackendSQLite, BackendMongo)
	}
}

// isDirectoryOrNotExist validates that a path is a directory or doesn't exist.
func isDirectoryOrNotExist(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil // will be created
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}
