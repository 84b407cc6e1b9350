package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Fallbacks used when the stored config predates a field.
const (
	fallbackDefaultCost    = 100.0
	fallbackDefaultReorder = 10
)

// Config models liftbay.yml.
type Config struct {
	Shop struct {
		Name     string `yaml:"name" json:"name"`
		Timezone string `yaml:"timezone" json:"timezone"`
	} `yaml:"shop" json:"shop"`
	Billing struct {
		// DefaultCost is charged when a repair completes with no cost set.
		DefaultCost float64 `yaml:"default_cost" json:"default_cost"`
	} `yaml:"billing" json:"billing"`
	Stock struct {
		// DefaultReorder is the replenish amount when none is given.
		DefaultReorder int `yaml:"default_reorder" json:"default_reorder"`
	} `yaml:"stock" json:"stock"`
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Shop.Name == "" {
		return fmt.Errorf("config.shop.name is required")
	}
	if c.Billing.DefaultCost < 0 {
		return fmt.Errorf("config.billing.default_cost must not be negative")
	}
	if c.Stock.DefaultReorder < 0 {
		return fmt.Errorf("config.stock.default_reorder must not be negative")
	}
	return nil
}

// DefaultCost returns the completion cost fallback. Safe on a nil receiver
// so the engine never needs a loaded config for a sane default.
func (c *Config) DefaultCost() float64 {
	if c == nil || c.Billing.DefaultCost == 0 {
		return fallbackDefaultCost
	}
	return c.Billing.DefaultCost
}

// DefaultReorder returns the replenish amount fallback.
func (c *Config) DefaultReorder() int {
	if c == nil || c.Stock.DefaultReorder == 0 {
		return fallbackDefaultReorder
	}
	return c.Stock.DefaultReorder
}

// Default returns the default Config struct.
func Default() *Config {
	cfg, err := FromYAML([]byte(defaultTemplate))
	if err != nil {
		// The template is a compile-time constant; it always parses.
		panic(err)
	}
	return cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// ToYAML renders the config for export.
func (c *Config) ToYAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// Template returns the starter config file contents.
func Template() string {
	return defaultTemplate
}

const defaultTemplate = `shop:
  name: Liftbay Repair Shop
  timezone: Europe/Bucharest

billing:
  default_cost: 100.0

stock:
  default_reorder: 10
`
