// Package config holds the application configuration loaded from YAML.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EmbedderConfig selects and configures the embedding backend.
type EmbedderConfig struct {
	Type    string `yaml:"type"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
	Dim     int    `yaml:"dim"`
}

// LLMConfig configures the generative model used for extraction and
// adjudication, in "provider:model" form.
type LLMConfig struct {
	Provider string `yaml:"provider"`
}

// RetrievalConfig configures candidate retrieval.
type RetrievalConfig struct {
	TopK       int  `yaml:"top_k"`
	AllMatches bool `yaml:"all_matches"`
}

// ExtractionConfig selects the requirement extraction strategy.
type ExtractionConfig struct {
	Strategy string `yaml:"strategy"`
}

// Config is the root application configuration.
type Config struct {
	DB         string           `yaml:"db"`
	Addr       string           `yaml:"addr"`
	Embedder   EmbedderConfig   `yaml:"embedder"`
	LLM        LLMConfig        `yaml:"llm"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Extraction ExtractionConfig `yaml:"extraction"`
}

// Load reads a config from path. A missing file yields defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.DB == "" {
		cfg.DB = "policyaudit.db"
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "gemini"
	}
	if cfg.Embedder.Model == "" {
		switch cfg.Embedder.Type {
		case "ollama":
			cfg.Embedder.Model = "nomic-embed-text"
		default:
			cfg.Embedder.Model = "gemini-embedding-001"
		}
	}
	if cfg.Embedder.Dim == 0 {
		cfg.Embedder.Dim = 768
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "gemini:gemini-2.0-flash"
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Extraction.Strategy == "" {
		cfg.Extraction.Strategy = "model"
	}
}
