package extract

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/domselect/selector"
)

// Config configures an Extractor.
type Config struct {
	// MaxDocumentSize is the largest markup accepted, in bytes (default: 10 MB).
	MaxDocumentSize int64 `json:"max_document_size" yaml:"max_document_size"`

	// MinTextLen is the minimum text length for a region to count
	// (default: 50). Options and rules may override it.
	MinTextLen int `json:"min_text_len" yaml:"min_text_len"`

	// Rules are named selector sets usable with Mode "rule".
	Rules []Rule `json:"rules" yaml:"rules"`

	// Logger for debug/error messages.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

// Rule is a named, reusable extraction recipe.
type Rule struct {
	Name       string   `json:"name" yaml:"name"`
	Selectors  []string `json:"selectors" yaml:"selectors"`
	Exclude    []string `json:"exclude,omitempty" yaml:"exclude"` // regions dropped from the text
	MinTextLen int      `json:"min_text_len,omitempty" yaml:"min_text_len"`
	Markdown   bool     `json:"markdown,omitempty" yaml:"markdown"`
	Sanitize   bool     `json:"sanitize,omitempty" yaml:"sanitize"`
}

func (c *Config) defaults() {
	if c.MaxDocumentSize <= 0 {
		c.MaxDocumentSize = 10 * 1024 * 1024
	}
	if c.MinTextLen <= 0 {
		c.MinTextLen = 50
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Rule looks up a rule by name.
func (c *Config) Rule(name string) (Rule, bool) {
	for _, r := range c.Rules {
		if r.Name == name {
			return r, true
		}
	}
	return Rule{}, false
}

// Validate checks rule names are unique and every selector compiles.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Rules))
	for _, r := range c.Rules {
		if r.Name == "" {
			return fmt.Errorf("rule without name")
		}
		if seen[r.Name] {
			return fmt.Errorf("duplicate rule %q", r.Name)
		}
		seen[r.Name] = true
		if len(r.Selectors) == 0 {
			return fmt.Errorf("rule %q: no selectors", r.Name)
		}
		for _, group := range [][]string{r.Selectors, r.Exclude} {
			for _, s := range group {
				if _, err := selector.Compile(s); err != nil {
					return fmt.Errorf("rule %q: %w", r.Name, err)
				}
			}
		}
	}
	return nil
}

// LoadConfigFile reads and validates a YAML config file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}
