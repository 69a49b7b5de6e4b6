// Package config handles configuration loading and the run settings
// shared by all pipeline stages.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultElevationURL is the public elevation lookup endpoint.
const DefaultElevationURL = "https://api.open-elevation.com/api/v1/lookup"

// Config represents the root configuration file structure. Values set
// in the file win over the corresponding CLI flags; zero values fall
// through to the flag (or built-in) defaults.
type Config struct {
	ElevationURL string   `yaml:"elevation_url,omitempty"`
	OverpassURLs []string `yaml:"overpass_urls,omitempty"`

	Resolution  float64 `yaml:"resolution,omitempty"`  // target grid cell size, meters
	Concurrency int     `yaml:"concurrency,omitempty"` // elevation worker count
	Rate        float64 `yaml:"rate,omitempty"`        // aggregate requests per second
	Retries     int     `yaml:"retries,omitempty"`     // attempts per request
	Timeout     int     `yaml:"timeout,omitempty"`     // initial per-request timeout, seconds
	Backoff     float64 `yaml:"backoff,omitempty"`     // backoff multiplier
}

// Load reads and parses the YAML configuration file from the specified path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
