// Package config loads the external configuration file that points the
// application at its database — everything else is tuned through the
// Settings record stored inside that database.
package config

import (
	"encoding/json"
	"os"

	"github.com/gwlsn/vdupes/internal/logger"
)

// DefaultDBPath is used when no config file is present or it fails to parse.
const DefaultDBPath = "videos.db"

// Config is the external config file contract: a single field, the path to
// the SQLite database file.
type Config struct {
	DBPath string `json:"dbPath"`
}

// DefaultConfig returns a Config pointing at the default database path.
func DefaultConfig() *Config {
	return &Config{DBPath: DefaultDBPath}
}

// Load reads the JSON config file at path. A missing file or malformed JSON
// is not fatal: it logs a warning and returns the default config.
func Load(path string) *Config {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("could not read config file, using default", "path", path, "error", err)
		}
		return DefaultConfig()
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		logger.Warn("malformed config file, using default", "path", path, "error", err)
		return DefaultConfig()
	}

	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath
	}

	return cfg
}

// Save writes cfg to path as JSON.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
