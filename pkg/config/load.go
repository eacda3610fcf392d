package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfig returns a configuration suitable for local development:
// mock store, mock dialogue, text logging.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Store.Type = "mock"
	cfg.Dialogue.Provider = "mock"
	cfg.Relationship.Provider = "memory"
	applyDefaults(cfg)
	return cfg
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from a byte slice.
func LoadFromBytes(data []byte) (*Config, error) {
	var config Config

	err := yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvironmentOverrides(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func applyEnvironmentOverrides(config *Config) {
	if dsn := os.Getenv("NPCMEM_SQLITE_DSN"); dsn != "" {
		config.Store.SQLite.DSN = dsn
	}

	if path := os.Getenv("NPCMEM_BOLTDB_PATH"); path != "" {
		config.Relationship.BoltDB.Path = path
	}

	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.Dialogue.OpenAI.APIKey = apiKey
	}

	if level := os.Getenv("NPCMEM_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// validateConfig validates the configuration and fills in defaults for
// tuning parameters left at their zero values.
func validateConfig(config *Config) error {
	switch strings.ToLower(config.Store.Type) {
	case "chromem":
		if config.Store.Chromem.Dimensions < 0 {
			return fmt.Errorf("chromem dimensions must be positive")
		}
	case "sqlite":
		if config.Store.SQLite.DSN == "" {
			return fmt.Errorf("sqlite DSN is required for sqlite store type")
		}
	case "mock":
		// Mock store doesn't require additional validation
	default:
		return fmt.Errorf("unsupported store type: %s", config.Store.Type)
	}

	switch strings.ToLower(config.Relationship.Provider) {
	case "", "memory":
		// In-memory state store needs nothing further
	case "boltdb":
		if config.Relationship.BoltDB.Path == "" {
			return fmt.Errorf("boltdb path is required for boltdb relationship provider")
		}
	default:
		return fmt.Errorf("unsupported relationship provider: %s", config.Relationship.Provider)
	}

	switch strings.ToLower(config.Dialogue.Provider) {
	case "openai":
		// API key may arrive via environment variable, so only model
		// settings get defaulted here
		if config.Dialogue.OpenAI.Model == "" {
			config.Dialogue.OpenAI.Model = "gpt-4o-mini"
		}
		if config.Dialogue.OpenAI.EmbeddingModel == "" {
			config.Dialogue.OpenAI.EmbeddingModel = "text-embedding-3-small"
		}
	case "mock":
		// Mock engine doesn't require additional validation
	default:
		return fmt.Errorf("unsupported dialogue provider: %s", config.Dialogue.Provider)
	}

	applyDefaults(config)

	return nil
}

// applyDefaults fills zero-valued tuning parameters with their defaults.
func applyDefaults(config *Config) {
	if config.Scoring.HalfLifeDays <= 0 {
		config.Scoring.HalfLifeDays = 7.0
	}
	if config.Scoring.RecencyFloor <= 0 {
		config.Scoring.RecencyFloor = 0.3
	}
	if config.Scoring.RelevanceFloor <= 0 {
		config.Scoring.RelevanceFloor = 0.3
	}
	if config.Scoring.SupersededMultiplier <= 0 {
		config.Scoring.SupersededMultiplier = 0.1
	}
	if config.Scoring.PinnedWeight <= 0 {
		config.Scoring.PinnedWeight = 3.0
	}
	if config.Scoring.ImportantWeight <= 0 {
		config.Scoring.ImportantWeight = 2.0
	}
	if config.Scoring.RegularWeight <= 0 {
		config.Scoring.RegularWeight = 1.0
	}

	if config.Collector.RecencyWindowDays <= 0 {
		config.Collector.RecencyWindowDays = 7
	}
	if config.Collector.HighSignalLimitPerType <= 0 {
		config.Collector.HighSignalLimitPerType = 10
	}
	if config.Collector.SemanticTopK <= 0 {
		config.Collector.SemanticTopK = 15
	}
	if config.Collector.MinImportanceFloor <= 0 {
		config.Collector.MinImportanceFloor = 4
	}
	if config.Collector.SourceTimeoutMs <= 0 {
		config.Collector.SourceTimeoutMs = 2000
	}

	if config.Allocator.HighRelevanceThreshold <= 0 {
		config.Allocator.HighRelevanceThreshold = 0.85
	}
	if config.Allocator.CharsPerToken <= 0 {
		config.Allocator.CharsPerToken = 3.0
	}

	if config.Relationship.MaxDeltaPerTurn <= 0 {
		config.Relationship.MaxDeltaPerTurn = 15.0
	}

	if config.Header.WaryMin <= 0 {
		config.Header.WaryMin = 20
	}
	if config.Header.NeutralMin <= 0 {
		config.Header.NeutralMin = 40
	}
	if config.Header.FriendlyMin <= 0 {
		config.Header.FriendlyMin = 60
	}
	if config.Header.TrustedMin <= 0 {
		config.Header.TrustedMin = 80
	}
	if config.Header.AllyAffectionMin <= 0 {
		config.Header.AllyAffectionMin = 50
	}

	if config.Store.Chromem.Dimensions == 0 {
		config.Store.Chromem.Dimensions = 1536
	}
}
