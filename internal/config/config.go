// Package config handles loading and validating the config.toml configuration file.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the top-level configuration.
type Config struct {
	LLM       LLMConfig       `toml:"llm"`
	Vector    VectorConfig    `toml:"vector"`
	Knowledge KnowledgeConfig `toml:"knowledge"`
	Store     StoreConfig     `toml:"store"`
	Analysis  AnalysisConfig  `toml:"analysis"`
	Output    OutputConfig    `toml:"output"`
}

// LLMConfig configures the text-generation provider.
type LLMConfig struct {
	Provider    string  `toml:"provider"`
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Endpoint    string  `toml:"endpoint"`
	Timeout     int     `toml:"timeout"` // HTTP timeout in seconds (0 = provider default)
	Temperature float64 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`
}

// VectorConfig configures the Qdrant similarity-search collaborator.
type VectorConfig struct {
	URL        string `toml:"url"`
	APIKey     string `toml:"api_key"`
	Collection string `toml:"collection"`
	Timeout    int    `toml:"timeout"` // seconds (0 = default)
	TopK       int    `toml:"top_k"`
}

// KnowledgeConfig locates the knowledge base and optional local embedding
// model. When ModelPath is empty a deterministic hashing embedder is used.
type KnowledgeConfig struct {
	Path      string `toml:"path"`       // MITRE ATT&CK STIX bundle JSON
	ModelPath string `toml:"model_path"` // ONNX sentence-embedding model
	VocabPath string `toml:"vocab_path"` // WordPiece vocab.txt for the model
}

// StoreConfig configures feedback/audit persistence.
type StoreConfig struct {
	Dir string `toml:"dir"`
}

// AnalysisConfig tunes the pipeline.
type AnalysisConfig struct {
	// SafeMode redacts IPs, usernames, and file paths before any text
	// leaves the process.
	SafeMode bool `toml:"safe_mode"`
}

// OutputConfig configures report artifact output.
type OutputConfig struct {
	Dir string `toml:"dir"`
}

// Load reads a config.toml file and returns a validated Config.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Vector: VectorConfig{
			Collection: "mitre_attack",
		},
		Store:  StoreConfig{Dir: "data"},
		Output: OutputConfig{Dir: "output"},
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s\n  Create one with: cp config.example.toml config.toml", path)
		}
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	// Environment variable overrides for sensitive values
	if key := os.Getenv("FORENSIQ_API_KEY"); key != "" {
		cfg.LLM.APIKey = key
	}
	if key := os.Getenv("FORENSIQ_QDRANT_API_KEY"); key != "" {
		cfg.Vector.APIKey = key
	}
	if url := os.Getenv("FORENSIQ_QDRANT_URL"); url != "" {
		cfg.Vector.URL = url
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	c.LLM.Provider = strings.ToLower(c.LLM.Provider)

	switch c.LLM.Provider {
	case "anthropic", "openai", "groq", "ollama":
		// valid
	case "":
		return fmt.Errorf("llm.provider is required (anthropic, openai, groq, ollama)")
	default:
		return fmt.Errorf("unsupported llm.provider: %q", c.LLM.Provider)
	}

	// API key required for cloud providers
	if c.LLM.Provider != "ollama" && c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required for provider %q", c.LLM.Provider)
	}

	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}

	// The vector index and the persistence layer are required
	// collaborators; starting without them would silently disable
	// retrieval and feedback.
	if c.Vector.URL == "" {
		return fmt.Errorf("vector.url is required (or set FORENSIQ_QDRANT_URL)")
	}
	if c.Vector.Collection == "" {
		return fmt.Errorf("vector.collection is required")
	}
	if c.Store.Dir == "" {
		return fmt.Errorf("store.dir is required")
	}

	if c.Knowledge.ModelPath != "" && c.Knowledge.VocabPath == "" {
		return fmt.Errorf("knowledge.vocab_path is required when knowledge.model_path is set")
	}

	if c.Output.Dir == "" {
		c.Output.Dir = "output"
	}

	return nil
}
