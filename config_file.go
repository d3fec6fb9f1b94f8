package analytics

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfigFile reads a YAML configuration file.
//
//	api_url: https://collect.example.com
//	app_id: my-app
//	batch_size: 20
//	batch_interval: 10s
//	headers:
//	  X-Api-Key: secret
//
// Unknown keys are rejected so typos surface early.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("analytics: failed to read config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes a YAML configuration document.
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{}

	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// NewFromFile creates a client from a YAML configuration file. Options are
// applied after the file and take precedence.
func NewFromFile(path string, opts ...ConfigOption) (*Client, error) {
	cfg, err := LoadConfigFile(path)
	if err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return NewWithConfig(cfg)
}
