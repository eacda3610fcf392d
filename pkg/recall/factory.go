package recall

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	chromemgo "github.com/philippgille/chromem-go"
	bolt "go.etcd.io/bbolt"

	"github.com/veilbrook/npcmem/pkg/budget"
	"github.com/veilbrook/npcmem/pkg/collect"
	"github.com/veilbrook/npcmem/pkg/config"
	"github.com/veilbrook/npcmem/pkg/conflict"
	"github.com/veilbrook/npcmem/pkg/dialogue"
	dialogueMock "github.com/veilbrook/npcmem/pkg/dialogue/adapters/mock"
	dialogueOpenAI "github.com/veilbrook/npcmem/pkg/dialogue/adapters/openai"
	"github.com/veilbrook/npcmem/pkg/log"
	"github.com/veilbrook/npcmem/pkg/mem/store"
	"github.com/veilbrook/npcmem/pkg/mem/store/adapters/chromem"
	storeMock "github.com/veilbrook/npcmem/pkg/mem/store/adapters/mock"
	"github.com/veilbrook/npcmem/pkg/mem/store/adapters/sqlite"
	"github.com/veilbrook/npcmem/pkg/record"
	"github.com/veilbrook/npcmem/pkg/relationship"
	"github.com/veilbrook/npcmem/pkg/relationship/boltstore"
	"github.com/veilbrook/npcmem/pkg/scoring"
	"github.com/veilbrook/npcmem/pkg/scripting"
)

// NewEngineFromConfigFile creates a fully wired Engine from a YAML
// configuration file. This is the convenience entry point for
// applications; libraries embedding individual components should use
// NewEngine directly.
func NewEngineFromConfigFile(configPath string) (*Engine, error) {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return NewEngineFromConfig(cfg)
}

// NewEngineFromConfig creates a fully wired Engine from a parsed
// configuration.
func NewEngineFromConfig(cfg *config.Config) (*Engine, error) {
	log.Setup(log.Config{
		Level:  log.Level(cfg.Logging.Level),
		Format: log.Format(cfg.Logging.Format),
	})

	dialogueEngine, err := initDialogueEngine(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize dialogue engine: %w", err)
	}

	memStore, err := initStore(cfg, dialogueEngine)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory store: %w", err)
	}

	relStore, err := initRelationshipStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize relationship store: %w", err)
	}

	scriptEngine, err := initScriptEngine(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize scripting engine: %w", err)
	}

	clamp := relationship.DefaultClampConfig()
	clamp.MaxDeltaPerTurn = cfg.Relationship.MaxDeltaPerTurn

	deps := Deps{
		Store:         memStore,
		Relationships: relStore,
		Dialogue:      dialogueEngine,
		Scripting:     scriptEngine,
		Scoring: scoring.Config{
			HalfLifeDays:         cfg.Scoring.HalfLifeDays,
			RecencyFloor:         cfg.Scoring.RecencyFloor,
			RelevanceFloor:       cfg.Scoring.RelevanceFloor,
			SupersededMultiplier: cfg.Scoring.SupersededMultiplier,
			PinnedWeight:         cfg.Scoring.PinnedWeight,
			ImportantWeight:      cfg.Scoring.ImportantWeight,
			RegularWeight:        cfg.Scoring.RegularWeight,
		},
		Collector: collect.Config{
			ProtectedSlots:         collect.DefaultConfig().ProtectedSlots,
			HighSignalEvents:       collect.DefaultConfig().HighSignalEvents,
			RecencyWindowDays:      float64(cfg.Collector.RecencyWindowDays),
			HighSignalLimitPerType: cfg.Collector.HighSignalLimitPerType,
			SemanticTopK:           cfg.Collector.SemanticTopK,
			MinImportanceFloor:     cfg.Collector.MinImportanceFloor,
			SourceTimeout:          time.Duration(cfg.Collector.SourceTimeoutMs) * time.Millisecond,
		},
		Allocator: budget.Config{
			HighRelevanceThreshold: cfg.Allocator.HighRelevanceThreshold,
			CharsPerToken:          cfg.Allocator.CharsPerToken,
		},
		Conflict: conflictConfig(cfg),
		Clamp:    clamp,
		Header: relationship.HeaderConfig{
			Bands: relationship.Bands{
				WaryMin:          cfg.Header.WaryMin,
				NeutralMin:       cfg.Header.NeutralMin,
				FriendlyMin:      cfg.Header.FriendlyMin,
				TrustedMin:       cfg.Header.TrustedMin,
				AllyAffectionMin: cfg.Header.AllyAffectionMin,
			},
		},
	}

	engine := NewEngine(deps, DefaultConfig())

	log.Info("Recall engine initialized from config",
		"store_type", cfg.Store.Type,
		"dialogue_provider", cfg.Dialogue.Provider,
		"scripting_enabled", cfg.Scripting.Enabled,
	)
	return engine, nil
}

// conflictConfig builds the supersession chains from configuration.
// Pairs with unrecognized event types are dropped with a warning; an
// empty map falls back to the built-in chains.
func conflictConfig(cfg *config.Config) conflict.Config {
	if len(cfg.Conflict.Chains) == 0 {
		return conflict.DefaultConfig()
	}

	chains := make(map[record.EventType]record.EventType, len(cfg.Conflict.Chains))
	for old, by := range cfg.Conflict.Chains {
		if !record.KnownEventType(old) || !record.KnownEventType(by) {
			log.Warn("Ignoring supersession chain with unknown event type",
				"superseded", old, "superseded_by", by)
			continue
		}
		chains[record.EventType(old)] = record.EventType(by)
	}
	if len(chains) == 0 {
		return conflict.DefaultConfig()
	}
	return conflict.Config{Chains: chains}
}

// initStore initializes the memory store backend from configuration.
func initStore(cfg *config.Config, engine dialogue.Engine) (store.Store, error) {
	storeType := strings.ToLower(cfg.Store.Type)
	log.Info("Initializing memory store", "type", storeType)

	switch storeType {
	case "mock", "":
		return storeMock.NewMockStore(), nil

	case "sqlite":
		dsn := cfg.Store.SQLite.DSN
		if dir := filepath.Dir(dsn); dsn != ":memory:" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create directory for sqlite db: %w", err)
			}
		}
		return sqlite.Open(dsn)

	case "chromem":
		db := chromemgo.NewDB()
		return chromem.NewChromemStore(db,
			chromem.EmbeddingFuncFromEngine(engine),
			chromem.Config{Dimensions: cfg.Store.Chromem.Dimensions})

	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Store.Type)
	}
}

// initRelationshipStore initializes the relationship state backend.
func initRelationshipStore(cfg *config.Config) (relationship.StateStore, error) {
	switch strings.ToLower(cfg.Relationship.Provider) {
	case "", "memory":
		return relationship.NewMemoryStateStore(), nil

	case "boltdb":
		path := cfg.Relationship.BoltDB.Path
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create directory for boltdb: %w", err)
			}
		}
		db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
		if err != nil {
			return nil, fmt.Errorf("failed to open boltdb: %w", err)
		}
		st := boltstore.NewBoltStateStore(db)
		if err := st.Initialize(context.Background()); err != nil {
			return nil, err
		}
		return st, nil

	default:
		return nil, fmt.Errorf("unsupported relationship provider: %s", cfg.Relationship.Provider)
	}
}

// initDialogueEngine initializes the dialogue engine from configuration.
func initDialogueEngine(cfg *config.Config) (dialogue.Engine, error) {
	switch strings.ToLower(cfg.Dialogue.Provider) {
	case "mock", "":
		return dialogueMock.NewMockEngine(), nil

	case "openai":
		if cfg.Dialogue.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key not provided")
		}
		return dialogueOpenAI.NewOpenAIAdapter(dialogueOpenAI.Config{
			APIKey:         cfg.Dialogue.OpenAI.APIKey,
			ChatModel:      cfg.Dialogue.OpenAI.Model,
			EmbeddingModel: cfg.Dialogue.OpenAI.EmbeddingModel,
		})

	default:
		return nil, fmt.Errorf("unsupported dialogue provider: %s", cfg.Dialogue.Provider)
	}
}

// initScriptEngine initializes the Lua scripting engine. Returns nil
// when scripting is disabled; the facade treats a nil engine as
// hooks-off.
func initScriptEngine(cfg *config.Config) (scripting.Engine, error) {
	if !cfg.Scripting.Enabled {
		return nil, nil
	}

	scriptCfg := scripting.DefaultConfig()
	scriptCfg.EnableSandboxing = cfg.Scripting.Sandbox

	engine, err := scripting.NewLuaEngine(scriptCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Lua engine: %w", err)
	}
	for _, path := range cfg.Scripting.Paths {
		if err := engine.LoadScriptFile(path); err != nil {
			return nil, err
		}
	}
	return engine, nil
}
