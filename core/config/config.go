package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/brightpath/assistant/core/providers"
)

// Config is the top-level service configuration.
type Config struct {
	Provider     string                    `yaml:"provider"`
	OpenAI       providers.OpenAIConfig    `yaml:"openai"`
	Anthropic    providers.AnthropicConfig `yaml:"anthropic"`
	Retrieval    RetrievalConfig           `yaml:"retrieval"`
	Cache        CacheConfig               `yaml:"cache"`
	Memory       MemoryConfig              `yaml:"memory"`
	Orchestrator OrchestratorConfig        `yaml:"orchestrator"`
}

type RetrievalConfig struct {
	Dimension int     `yaml:"dimension"`
	DBPath    string  `yaml:"db_path"`
	BatchSize int     `yaml:"batch_size"`
	TopK      int     `yaml:"top_k"`
	Threshold float64 `yaml:"threshold"`
}

type CacheConfig struct {
	MaxEntries       int           `yaml:"max_entries"`
	TTL              time.Duration `yaml:"ttl"`
	SweepInterval    time.Duration `yaml:"sweep_interval"`
	MinContentLength int           `yaml:"min_content_length"`
}

type MemoryConfig struct {
	MaxMessagesPerSession int           `yaml:"max_messages_per_session"`
	CompressionThreshold  int           `yaml:"compression_threshold"`
	SessionTimeout        time.Duration `yaml:"session_timeout"`
}

type OrchestratorConfig struct {
	MaxHistoryTurns   int           `yaml:"max_history_turns"`
	MaxAnswerTokens   int           `yaml:"max_answer_tokens"`
	Temperature       float64       `yaml:"temperature"`
	CompletionTimeout time.Duration `yaml:"completion_timeout"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Provider:  string(providers.ProviderTypeOpenAI),
		OpenAI:    providers.DefaultOpenAIConfig(),
		Anthropic: providers.DefaultAnthropicConfig(),
		Retrieval: RetrievalConfig{
			Dimension: 512,
			DBPath:    "embeddings.db",
			BatchSize: 50,
			TopK:      4,
			Threshold: 0.35,
		},
		Cache: CacheConfig{
			MaxEntries:       1000,
			TTL:              time.Hour,
			SweepInterval:    time.Minute,
			MinContentLength: 20,
		},
		Memory: MemoryConfig{
			MaxMessagesPerSession: 50,
			CompressionThreshold:  30,
			SessionTimeout:        24 * time.Hour,
		},
		Orchestrator: OrchestratorConfig{
			MaxHistoryTurns:   6,
			MaxAnswerTokens:   1024,
			Temperature:       0.7,
			CompletionTimeout: 30 * time.Second,
		},
	}
}

// Load reads configuration from a YAML file, falling back to defaults
// for anything unset. API keys come from the environment when not in
// the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Anthropic.APIKey == "" {
		cfg.Anthropic.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	return cfg, nil
}
