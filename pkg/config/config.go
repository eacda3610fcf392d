package config

// Config represents the top-level configuration for the npcmem library.
type Config struct {
	// Store configures the memory record storage backend
	Store StoreConfig `yaml:"store"`

	// Scoring tunes the memory scoring formula
	Scoring ScoringConfig `yaml:"scoring"`

	// Collector tunes candidate collection bounds
	Collector CollectorConfig `yaml:"collector"`

	// Allocator tunes token budget allocation
	Allocator AllocatorConfig `yaml:"allocator"`

	// Conflict configures write-time supersession chains
	Conflict ConflictConfig `yaml:"conflict"`

	// Relationship configures relationship state storage and clamping
	Relationship RelationshipConfig `yaml:"relationship"`

	// Header tunes the relationship status label bands
	Header HeaderConfig `yaml:"header"`

	// Dialogue configures the dialogue engine (LLM)
	Dialogue DialogueConfig `yaml:"dialogue"`

	// Scripting configures the Lua scripting engine
	Scripting ScriptingConfig `yaml:"scripting"`

	// Logging configures the logging behavior
	Logging LoggingConfig `yaml:"logging"`
}

// StoreConfig configures the memory record storage backend.
type StoreConfig struct {
	// Type specifies the store backend ("chromem", "sqlite", "mock")
	Type string `yaml:"type"`

	// Chromem configures the chromem-go vector store
	Chromem ChromemConfig `yaml:"chromem"`

	// SQLite configures the SQLite store
	SQLite SQLiteConfig `yaml:"sqlite"`
}

// ChromemConfig configures the chromem-go vector store.
type ChromemConfig struct {
	// Dimensions is the embedding vector width
	Dimensions int `yaml:"dimensions"`
}

// SQLiteConfig configures the SQLite store.
type SQLiteConfig struct {
	// DSN is the data source name (file path or :memory:)
	DSN string `yaml:"dsn"`
}

// ScoringConfig tunes the memory scoring formula.
type ScoringConfig struct {
	// HalfLifeDays is the recency decay half-life in days
	HalfLifeDays float64 `yaml:"half_life_days"`

	// RecencyFloor is the minimum recency factor
	RecencyFloor float64 `yaml:"recency_floor"`

	// RelevanceFloor is the relevance factor for non-semantic candidates
	RelevanceFloor float64 `yaml:"relevance_floor"`

	// SupersededMultiplier is the penalty applied to superseded records
	SupersededMultiplier float64 `yaml:"superseded_multiplier"`

	// PinnedWeight, ImportantWeight, and RegularWeight are the tier weights
	PinnedWeight    float64 `yaml:"pinned_weight"`
	ImportantWeight float64 `yaml:"important_weight"`
	RegularWeight   float64 `yaml:"regular_weight"`
}

// CollectorConfig tunes candidate collection bounds.
type CollectorConfig struct {
	// RecencyWindowDays is the lookback window for high-signal events
	RecencyWindowDays int `yaml:"recency_window_days"`

	// HighSignalLimitPerType caps recent events fetched per event type
	HighSignalLimitPerType int `yaml:"high_signal_limit_per_type"`

	// SemanticTopK caps semantic search results
	SemanticTopK int `yaml:"semantic_top_k"`

	// MinImportanceFloor filters semantic results below this importance
	MinImportanceFloor int `yaml:"min_importance_floor"`

	// SourceTimeoutMs bounds each collection source in milliseconds
	SourceTimeoutMs int `yaml:"source_timeout_ms"`
}

// AllocatorConfig tunes token budget allocation.
type AllocatorConfig struct {
	// HighRelevanceThreshold is the similarity above which full text is preferred
	HighRelevanceThreshold float64 `yaml:"high_relevance_threshold"`

	// CharsPerToken is the character-to-token estimation divisor
	CharsPerToken float64 `yaml:"chars_per_token"`
}

// ConflictConfig configures write-time supersession chains.
type ConflictConfig struct {
	// Chains maps a narrative event type to the event type that
	// supersedes it. Empty means the built-in default chains.
	Chains map[string]string `yaml:"chains"`
}

// HeaderConfig tunes the relationship status label bands. The four
// *Min values are the lower trust edges of the successive bands.
type HeaderConfig struct {
	WaryMin     float64 `yaml:"wary_min"`
	NeutralMin  float64 `yaml:"neutral_min"`
	FriendlyMin float64 `yaml:"friendly_min"`
	TrustedMin  float64 `yaml:"trusted_min"`

	// AllyAffectionMin is the affection needed on top of TrustedMin
	// trust for the warmest label
	AllyAffectionMin float64 `yaml:"ally_affection_min"`
}

// RelationshipConfig configures relationship state storage and clamping.
type RelationshipConfig struct {
	// Provider is the state store backend ("memory", "boltdb")
	Provider string `yaml:"provider"`

	// BoltDB configures BoltDB state storage
	BoltDB BoltDBConfig `yaml:"boltdb"`

	// MaxDeltaPerTurn caps per-dimension change from one interaction
	MaxDeltaPerTurn float64 `yaml:"max_delta_per_turn"`
}

// BoltDBConfig configures BoltDB state storage.
type BoltDBConfig struct {
	// Path is the BoltDB database file path
	Path string `yaml:"path"`
}

// DialogueConfig configures the dialogue engine (LLM).
type DialogueConfig struct {
	// Provider is the LLM provider ("openai", "mock")
	Provider string `yaml:"provider"`

	// OpenAI configures OpenAI integration
	OpenAI OpenAIConfig `yaml:"openai"`
}

// OpenAIConfig configures OpenAI integration.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key
	APIKey string `yaml:"api_key"`

	// Model is the chat model
	Model string `yaml:"model"`

	// EmbeddingModel is the model used for embeddings
	EmbeddingModel string `yaml:"embedding_model"`

	// MaxTokens is the maximum number of tokens to generate
	MaxTokens int `yaml:"max_tokens"`

	// Temperature controls randomness in generation (0.0-1.0)
	Temperature float64 `yaml:"temperature"`
}

// ScriptingConfig configures the Lua scripting engine.
type ScriptingConfig struct {
	// Enabled turns the Lua importance hook on
	Enabled bool `yaml:"enabled"`

	// Paths is a list of Lua script files to load
	Paths []string `yaml:"paths"`

	// Sandbox restricts Lua access to safe libraries only
	Sandbox bool `yaml:"sandbox"`
}

// LoggingConfig configures the logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error")
	Level string `yaml:"level"`

	// Format is the output format ("json", "text")
	Format string `yaml:"format"`
}
