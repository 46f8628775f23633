// Package config decodes the updater's on-disk configuration: the state
// directory, content server URL, and a retry budget field. A missing config
// file is not an error; defaults apply and CLI flags may override them.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the updater's runtime configuration.
type Config struct {
	// Root is the live root filesystem prefix bundle operations mutate.
	Root string `yaml:"root"`
	// StateDir is the mutable state root containing staged/, download/,
	// delta/, the lock file, and the install journal.
	StateDir string `yaml:"state_dir"`
	// ContentURL is the base URL of the content server serving manifests,
	// packs, and content blobs.
	ContentURL string `yaml:"content_url"`
	// MaxTries is decoded from the config file but is not read by the
	// fetcher or the manifest loader; both use the fixed fetch.MaxTries.
	MaxTries int `yaml:"max_tries"`
}

// Default returns the configuration used when no config file is present.
func Default() Config {
	return Config{
		Root:       "/",
		StateDir:   "/var/lib/swupd",
		ContentURL: "https://cdn.example.com/update",
		MaxTries:   5,
	}
}

// Load reads path and overlays it onto Default(). A non-existent path is
// not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}
