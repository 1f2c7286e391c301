package taskwell

import (
	"context"
	"fmt"
	"time"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"

	"github.com/taskwell/taskwell/policy"
	"github.com/taskwell/taskwell/service/classifier"
	"github.com/taskwell/taskwell/service/limiter"
)

// Config is a serialisable representation of the engine configuration. It can
// be populated from JSON or YAML. The zero-value is useful – all nested
// fields inherit their package defaults.
type Config struct {
	// BaseURL is the root of the queue state directories (file:// or mem://).
	BaseURL string `json:"baseURL" yaml:"baseURL"`

	// IndexURL locates the persisted dedup index. Defaults to
	// BaseURL/.dedup-index.json.
	IndexURL string `json:"indexURL,omitempty" yaml:"indexURL,omitempty"`

	// PollInterval drives the ingestion loop.
	PollInterval time.Duration `json:"pollInterval,omitempty" yaml:"pollInterval,omitempty"`

	RateLimit limiter.Config   `json:"rateLimit" yaml:"rateLimit"`
	Rules     classifier.Rules `json:"rules" yaml:"rules"`
	Policy    *policy.Config   `json:"policy,omitempty" yaml:"policy,omitempty"`
}

// DefaultConfig returns a Config populated with the package defaults.
// Callers may modify the returned struct before passing it to New.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:      "mem://localhost/taskwell",
		PollInterval: time.Minute,
		RateLimit:    limiter.DefaultConfig(),
		Rules:        classifier.DefaultRules(),
	}
}

// Validate returns an error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.BaseURL == "" {
		return fmt.Errorf("baseURL cannot be empty")
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("pollInterval must be >= 0")
	}
	return c.RateLimit.Validate()
}

// LoadConfig reads a YAML configuration from URL, layered over the defaults.
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	data, err := afs.New().DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %v: %w", URL, err)
	}
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config %v: %w", URL, err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
