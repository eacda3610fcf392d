package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "mock", cfg.Store.Type)
	assert.Equal(t, "mock", cfg.Dialogue.Provider)
	assert.Equal(t, "memory", cfg.Relationship.Provider)

	assert.Equal(t, 7.0, cfg.Scoring.HalfLifeDays)
	assert.Equal(t, 0.3, cfg.Scoring.RecencyFloor)
	assert.Equal(t, 0.3, cfg.Scoring.RelevanceFloor)
	assert.Equal(t, 0.1, cfg.Scoring.SupersededMultiplier)
	assert.Equal(t, 3.0, cfg.Scoring.PinnedWeight)
	assert.Equal(t, 2.0, cfg.Scoring.ImportantWeight)
	assert.Equal(t, 1.0, cfg.Scoring.RegularWeight)

	assert.Equal(t, 7, cfg.Collector.RecencyWindowDays)
	assert.Equal(t, 10, cfg.Collector.HighSignalLimitPerType)
	assert.Equal(t, 15, cfg.Collector.SemanticTopK)
	assert.Equal(t, 4, cfg.Collector.MinImportanceFloor)
	assert.Equal(t, 2000, cfg.Collector.SourceTimeoutMs)

	assert.Equal(t, 0.85, cfg.Allocator.HighRelevanceThreshold)
	assert.Equal(t, 3.0, cfg.Allocator.CharsPerToken)
	assert.Equal(t, 15.0, cfg.Relationship.MaxDeltaPerTurn)
	assert.Equal(t, 1536, cfg.Store.Chromem.Dimensions)

	assert.Equal(t, 20.0, cfg.Header.WaryMin)
	assert.Equal(t, 40.0, cfg.Header.NeutralMin)
	assert.Equal(t, 60.0, cfg.Header.FriendlyMin)
	assert.Equal(t, 80.0, cfg.Header.TrustedMin)
	assert.Equal(t, 50.0, cfg.Header.AllyAffectionMin)
	assert.Empty(t, cfg.Conflict.Chains)
}

func TestLoadFromBytes(t *testing.T) {
	t.Setenv("NPCMEM_SQLITE_DSN", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("NPCMEM_LOG_LEVEL", "")

	yaml := `
store:
  type: sqlite
  sqlite:
    dsn: /tmp/npcmem.db
dialogue:
  provider: openai
  openai:
    api_key: test-key
relationship:
  provider: boltdb
  boltdb:
    path: /tmp/npcmem-rel.db
scoring:
  half_life_days: 14
logging:
  level: debug
  format: json
`
	cfg, err := LoadFromBytes([]byte(yaml))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Type)
	assert.Equal(t, "/tmp/npcmem.db", cfg.Store.SQLite.DSN)
	assert.Equal(t, "openai", cfg.Dialogue.Provider)
	assert.Equal(t, "test-key", cfg.Dialogue.OpenAI.APIKey)
	assert.Equal(t, "boltdb", cfg.Relationship.Provider)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	// Explicit values stay, untouched tunables get defaults.
	assert.Equal(t, 14.0, cfg.Scoring.HalfLifeDays)
	assert.Equal(t, 0.3, cfg.Scoring.RecencyFloor)
	assert.Equal(t, 0.85, cfg.Allocator.HighRelevanceThreshold)
}

func TestLoadFromBytes_OpenAIModelDefaults(t *testing.T) {
	cfg, err := LoadFromBytes([]byte("dialogue:\n  provider: openai\n"))
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", cfg.Dialogue.OpenAI.Model)
	assert.Equal(t, "text-embedding-3-small", cfg.Dialogue.OpenAI.EmbeddingModel)
}

func TestLoadFromBytes_Invalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"unknown store type", "store:\n  type: cassandra\n"},
		{"sqlite without dsn", "store:\n  type: sqlite\n"},
		{"unknown relationship provider", "relationship:\n  provider: redis\n"},
		{"boltdb without path", "relationship:\n  provider: boltdb\n"},
		{"unknown dialogue provider", "dialogue:\n  provider: gemini\n"},
		{"malformed yaml", "store: [unclosed\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadFromBytes([]byte(tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("NPCMEM_SQLITE_DSN", "/env/override.db")
	t.Setenv("NPCMEM_BOLTDB_PATH", "/env/rel.db")
	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("NPCMEM_LOG_LEVEL", "warn")

	yaml := `
store:
  type: sqlite
  sqlite:
    dsn: /file/value.db
dialogue:
  provider: openai
logging:
  level: info
`
	cfg, err := LoadFromBytes([]byte(yaml))
	require.NoError(t, err)

	assert.Equal(t, "/env/override.db", cfg.Store.SQLite.DSN)
	assert.Equal(t, "/env/rel.db", cfg.Relationship.BoltDB.Path)
	assert.Equal(t, "env-key", cfg.Dialogue.OpenAI.APIKey)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  type: mock\n"), 0o600))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "mock", cfg.Store.Type)

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
