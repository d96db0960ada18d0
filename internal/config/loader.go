package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// LogConfig controls logger output.
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	FilePath   string `yaml:"file_path"`
	TimeFormat string `yaml:"time_format"`
}

// CompletionConfig selects and tunes the completion provider.
type CompletionConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	RefineModel string  `yaml:"refine_model"`
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	APIKey      string  `yaml:"-"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	TimeoutMS   int     `yaml:"timeout_ms"`
}

// EngineConfig tunes the conversation pipeline.
type EngineConfig struct {
	EnableLearning     bool `yaml:"enable_learning"`
	IdleTimeoutMinutes int  `yaml:"idle_timeout_minutes"`
	MemoryMaxAgeHours  int  `yaml:"memory_max_age_hours"`
}

// RedisConfig configures the optional transcript cache.
type RedisConfig struct {
	Enabled    bool   `yaml:"enabled"`
	URL        string `yaml:"url"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// BusinessConfig carries retail context injected into directives.
type BusinessConfig struct {
	DefaultPointOfSale string   `yaml:"default_point_of_sale"`
	SpecialOffers      []string `yaml:"special_offers"`
}

// Config is the structure of config.yaml.
type Config struct {
	Log        LogConfig         `yaml:"log"`
	Completion CompletionConfig  `yaml:"completion"`
	Engine     EngineConfig      `yaml:"engine"`
	Redis      RedisConfig       `yaml:"redis"`
	Business   BusinessConfig    `yaml:"business"`
	Lexicon    map[string]string `yaml:"lexicon"`
}

// LoadConfig loads configuration from a YAML file and resolves the
// completion API key from the environment.
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("error parsing YAML: %v", err)
	}

	applyDefaults(&config)

	if config.Completion.APIKeyEnv != "" {
		config.Completion.APIKey = os.Getenv(config.Completion.APIKeyEnv)
	}

	return &config, nil
}

func applyDefaults(c *Config) {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
	if c.Completion.Provider == "" {
		c.Completion.Provider = "openai"
	}
	if c.Completion.Temperature == 0 {
		c.Completion.Temperature = 0.7
	}
	if c.Completion.MaxTokens == 0 {
		c.Completion.MaxTokens = 1500
	}
	if c.Completion.TimeoutMS == 0 {
		c.Completion.TimeoutMS = 30000
	}
	if c.Engine.IdleTimeoutMinutes == 0 {
		c.Engine.IdleTimeoutMinutes = 60
	}
	if c.Engine.MemoryMaxAgeHours == 0 {
		c.Engine.MemoryMaxAgeHours = 24
	}
	if c.Redis.TTLSeconds == 0 {
		c.Redis.TTLSeconds = 3600
	}
}

// CompletionTimeout returns the configured completion deadline.
func (c *Config) CompletionTimeout() time.Duration {
	return time.Duration(c.Completion.TimeoutMS) * time.Millisecond
}
