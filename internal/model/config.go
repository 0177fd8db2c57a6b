package model

import (
	"runtime"
	"time"
)

// Config holds the full runtime configuration.
type Config struct {
	Rules       RulesConfig       `yaml:"rules" mapstructure:"rules"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
}

// RulesConfig locates the rule file.
type RulesConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// OutputConfig controls result rendering.
type OutputConfig struct {
	Format  string `yaml:"format" mapstructure:"format"` // "csv" or "json"
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
}

// ConcurrencyConfig controls batch parallelism. Documents are independent,
// so batch mode runs one worker per input file; sentences within a
// document always run sequentially.
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// CacheConfig controls the LLM summary cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir     string        `yaml:"dir" mapstructure:"dir"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// LLMConfig configures the optional report summarizer. Detection never
// depends on it.
type LLMConfig struct {
	Provider  string  `yaml:"provider" mapstructure:"provider"` // "openai", "ollama", ""
	Model     string  `yaml:"model" mapstructure:"model"`
	APIKey    string  `yaml:"-" mapstructure:"-"` // from environment only
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	Timeout   int     `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"` // requests/second in batch mode
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Rules: RulesConfig{
			Path: "rules.yaml",
		},
		Output: OutputConfig{
			Format: "csv",
		},
		Concurrency: ConcurrencyConfig{
			Workers: runtime.NumCPU(),
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     7 * 24 * time.Hour,
		},
		LLM: LLMConfig{
			Provider:  "", // disabled by default
			Timeout:   30,
			MaxTokens: 1000,
			RateLimit: 1,
		},
	}
}
