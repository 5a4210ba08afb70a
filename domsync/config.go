package domsync

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/domcanvas/selector"
)

// Config holds engine configuration.
type Config struct {
	// TolerancePx is the per-axis pixel tolerance for geometry validation.
	TolerancePx float64 `yaml:"tolerance_px"`
	// IdentityAttr is the attribute carrying stable element identities.
	IdentityAttr string `yaml:"identity_attr"`
	// SanitizeContent cleans inner-content payloads before they reach the
	// render.
	SanitizeContent bool `yaml:"sanitize_content"`
}

func (c *Config) defaults() {
	if c.TolerancePx <= 0 {
		c.TolerancePx = 2.0
	}
	if c.IdentityAttr == "" {
		c.IdentityAttr = selector.IdentityAttr
	}
}

// LoadConfigFile reads a YAML config file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.defaults()
	return cfg, nil
}
