// Package config declares the structured configuration document loaded once
// at process start: provider specs, fallback chain definitions, the routing
// policy table, cache settings and workflow bounds. Durations are expressed
// in seconds. Values like api_key support ${ENV_VAR} expansion.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration document.
type Config struct {
	Providers []ProviderConfig `yaml:"providers"`
	Chains    []ChainConfig    `yaml:"chains"`
	Routing   RoutingConfig    `yaml:"routing"`
	Cache     CacheConfig      `yaml:"cache"`
	Workflow  WorkflowConfig   `yaml:"workflow"`
	Logging   LoggingConfig    `yaml:"logging"`
}

// ProviderConfig is the static per-provider specification: identity,
// capability set and the retry/timeout behavior its chain entries inherit.
type ProviderConfig struct {
	Name         string   `yaml:"name"`
	Type         string   `yaml:"type"` // "anthropic", "openai", "ollama" or "mock"
	Model        string   `yaml:"model"`
	APIKey       string   `yaml:"api_key"`
	Host         string   `yaml:"host"`
	Capabilities []string `yaml:"capabilities"` // empty = all capabilities
	Timeout      int      `yaml:"timeout"`      // per-call timeout in seconds
	MaxRetries   int      `yaml:"max_retries"`  // transient retry budget
	RetryDelay   int      `yaml:"retry_delay"`  // base backoff delay in seconds
}

// SetDefaults applies defaults to unset provider fields.
func (c *ProviderConfig) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 60
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 2
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = 1
	}
}

// Validate checks the provider spec for consistency.
func (c *ProviderConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("provider name cannot be empty")
	}
	if c.Type == "" {
		return fmt.Errorf("provider %q needs a type", c.Name)
	}
	switch c.Type {
	case "anthropic", "openai", "ollama", "mock":
	default:
		return fmt.Errorf("provider %q has unsupported type %q", c.Name, c.Type)
	}
	if c.Timeout < 0 || c.MaxRetries < 0 || c.RetryDelay < 0 {
		return fmt.Errorf("provider %q has negative timing values", c.Name)
	}
	return nil
}

// ChainConfig defines one fallback chain: an ordered, duplicate-free list of
// provider names plus an optional ceiling across the whole traversal.
type ChainConfig struct {
	Name      string   `yaml:"name"`
	Providers []string `yaml:"providers"`
	Timeout   int      `yaml:"timeout"` // overall traversal ceiling in seconds, 0 = caller deadline only
}

// Validate checks the chain definition against the known provider names.
func (c *ChainConfig) Validate(providers map[string]struct{}) error {
	if c.Name == "" {
		return fmt.Errorf("chain name cannot be empty")
	}
	if len(c.Providers) == 0 {
		return fmt.Errorf("chain %q must list at least one provider", c.Name)
	}
	seen := make(map[string]struct{}, len(c.Providers))
	for _, name := range c.Providers {
		if _, ok := providers[name]; !ok {
			return fmt.Errorf("chain %q references undefined provider %q", c.Name, name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("chain %q lists provider %q twice", c.Name, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// RuleConfig is one routing policy rule; zero-valued match fields are
// wildcards and the first matching rule wins.
type RuleConfig struct {
	Capability   string `yaml:"capability"`
	Provider     string `yaml:"provider"` // matches the request's explicit provider hint
	MinPromptLen int    `yaml:"min_prompt_len"`
	MaxPromptLen int    `yaml:"max_prompt_len"`
	Chain        string `yaml:"chain"`
}

// RoutingConfig is the routing policy table.
type RoutingConfig struct {
	Rules        []RuleConfig `yaml:"rules"`
	DefaultChain string       `yaml:"default_chain"`
}

// Validate checks that every rule and the default refer to a defined chain.
func (c *RoutingConfig) Validate(chains map[string]struct{}) error {
	if c.DefaultChain == "" {
		return fmt.Errorf("routing needs a default_chain")
	}
	if _, ok := chains[c.DefaultChain]; !ok {
		return fmt.Errorf("routing default_chain %q is not defined", c.DefaultChain)
	}
	for i, rule := range c.Rules {
		if rule.Chain == "" {
			return fmt.Errorf("routing rule %d needs a chain", i)
		}
		if _, ok := chains[rule.Chain]; !ok {
			return fmt.Errorf("routing rule %d references undefined chain %q", i, rule.Chain)
		}
	}
	return nil
}

// RedisConfig points the response cache at a shared Redis. An empty Addr
// selects the process-local in-memory store instead.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// CacheConfig configures the response cache.
type CacheConfig struct {
	Enabled *bool       `yaml:"enabled"` // nil defaults to true
	TTL     int         `yaml:"ttl"`     // entry time-to-live in seconds, 0 = no expiry
	Redis   RedisConfig `yaml:"redis"`
}

// SetDefaults applies defaults to unset cache fields.
func (c *CacheConfig) SetDefaults() {
	if c.Enabled == nil {
		enabled := true
		c.Enabled = &enabled
	}
	if c.TTL == 0 {
		c.TTL = 300
	}
}

// IsEnabled reports whether caching is turned on.
func (c *CacheConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// WorkflowConfig bounds and parameterizes workflow runs.
type WorkflowConfig struct {
	MaxGradeLoops     int     `yaml:"max_grade_loops"`
	TopK              int     `yaml:"top_k"`
	MaxMessages       int     `yaml:"max_messages"`
	MaxConcurrentRuns int     `yaml:"max_concurrent_runs"` // 0 = unlimited
	Capability        string  `yaml:"capability"`
	Temperature       float64 `yaml:"temperature"`
	MaxTokens         int     `yaml:"max_tokens"`
	PromptTemplate    string  `yaml:"prompt_template"`
}

// SetDefaults applies defaults to unset workflow fields.
func (c *WorkflowConfig) SetDefaults() {
	if c.MaxGradeLoops == 0 {
		c.MaxGradeLoops = 2
	}
	if c.TopK == 0 {
		c.TopK = 5
	}
	if c.MaxMessages == 0 {
		c.MaxMessages = 50
	}
	if c.Capability == "" {
		c.Capability = "chat"
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 1024
	}
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

// SetDefaults applies defaults to unset logging fields.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "json"
	}
}

// SetDefaults applies defaults across the whole document.
func (c *Config) SetDefaults() {
	for i := range c.Providers {
		c.Providers[i].SetDefaults()
	}
	c.Cache.SetDefaults()
	c.Workflow.SetDefaults()
	c.Logging.SetDefaults()
}

// Validate checks the whole document for consistency.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("at least one provider must be configured")
	}

	providers := make(map[string]struct{}, len(c.Providers))
	for i := range c.Providers {
		p := &c.Providers[i]
		if err := p.Validate(); err != nil {
			return err
		}
		if _, dup := providers[p.Name]; dup {
			return fmt.Errorf("duplicate provider name %q", p.Name)
		}
		providers[p.Name] = struct{}{}
	}

	if len(c.Chains) == 0 {
		return fmt.Errorf("at least one chain must be configured")
	}

	chains := make(map[string]struct{}, len(c.Chains))
	for i := range c.Chains {
		ch := &c.Chains[i]
		if err := ch.Validate(providers); err != nil {
			return err
		}
		if _, dup := chains[ch.Name]; dup {
			return fmt.Errorf("duplicate chain name %q", ch.Name)
		}
		chains[ch.Name] = struct{}{}
	}

	return c.Routing.Validate(chains)
}

// Parse decodes a configuration document, expanding ${ENV_VAR} references
// before unmarshalling. Defaults are applied and the result validated.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Load reads and parses a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}
