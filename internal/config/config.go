// Package config handles configuration for the dsstore tooling
package config

import (
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds the configuration for the dsstore CLI and inspector.
type Config struct {
	// Verbose enables debug-level diagnostics from the codec.
	Verbose bool `yaml:"verbose"`
	// Addr is the listen address of the metadata inspector.
	Addr string `yaml:"addr"`
}

// Default returns a default configuration
func Default() *Config {
	return &Config{
		Verbose: false,
		Addr:    "127.0.0.1:8422",
	}
}

// Load loads configuration from the optional YAML file, then environment
// overrides. Precedence: env > file > defaults.
func Load() *Config {
	cfg := Default()

	if path := configFile(); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				log.WithError(err).Warnf("config: ignoring unparsable %s", path)
			}
		}
	}

	if v := os.Getenv("WORKSPACE_DSSTORE_VERBOSE"); v == "true" || v == "1" {
		cfg.Verbose = true
	}
	if addr := os.Getenv("WORKSPACE_DSSTORE_ADDR"); addr != "" {
		cfg.Addr = addr
	}

	return cfg
}

// Apply pushes the configuration into the logging backend.
func (c *Config) Apply() {
	if c.Verbose {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

// configFile returns the YAML config path: the explicit override, or the
// conventional per-user location.
func configFile() string {
	if path := os.Getenv("WORKSPACE_DSSTORE_CONFIG"); path != "" {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config", "workspace", "dsstore.yaml")
}
