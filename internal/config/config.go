package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// LLMConfig holds connection details for one provider-backed model.
type LLMConfig struct {
	Provider string `yaml:"provider"` // "ollama" or "openai"
	BaseURL  string `yaml:"base_url"`
	Key      string `yaml:"key"`
	Model    string `yaml:"model"`
}

// RecognizerConfig configures the fallback page recognition model.
type RecognizerConfig struct {
	Enabled bool      `yaml:"enabled"`
	LLM     LLMConfig `yaml:"llm"`
}

// SearchConfig holds chunking, retrieval and highlight defaults.
// HighlightMinScore is a pointer so an explicit zero threshold is
// distinguishable from an unset one.
type SearchConfig struct {
	ChunkWindow       int      `yaml:"chunk_window"`
	DefaultTopK       int      `yaml:"default_top_k"`
	HighlightTopK     int      `yaml:"highlight_top_k"`
	HighlightMinScore *float64 `yaml:"highlight_min_score"`
}

type Config struct {
	EmbedLLM            LLMConfig        `yaml:"embed_llm"`
	Recognizer          RecognizerConfig `yaml:"recognizer"`
	Search              SearchConfig     `yaml:"search"`
	ProviderTimeoutSecs int              `yaml:"provider_timeout_secs"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.EmbedLLM.Provider == "" {
		cfg.EmbedLLM.Provider = "ollama"
	}
	if cfg.EmbedLLM.Provider == "ollama" && cfg.EmbedLLM.BaseURL == "" {
		cfg.EmbedLLM.BaseURL = "http://localhost:11434"
	}
	if cfg.EmbedLLM.Model == "" {
		cfg.EmbedLLM.Model = "nomic-embed-text"
	}
	if cfg.Recognizer.LLM.Provider == "" {
		cfg.Recognizer.LLM.Provider = "ollama"
	}
	if cfg.Recognizer.LLM.Provider == "ollama" && cfg.Recognizer.LLM.BaseURL == "" {
		cfg.Recognizer.LLM.BaseURL = "http://localhost:11434"
	}
	if cfg.Search.ChunkWindow == 0 {
		cfg.Search.ChunkWindow = 500
	}
	if cfg.Search.DefaultTopK == 0 {
		cfg.Search.DefaultTopK = 10
	}
	if cfg.Search.HighlightTopK == 0 {
		cfg.Search.HighlightTopK = 8
	}
	if cfg.Search.HighlightMinScore == nil {
		minScore := 0.25
		cfg.Search.HighlightMinScore = &minScore
	}
	if cfg.ProviderTimeoutSecs == 0 {
		cfg.ProviderTimeoutSecs = 60
	}
}
