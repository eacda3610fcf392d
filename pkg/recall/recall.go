package recall

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/veilbrook/npcmem/pkg/budget"
	"github.com/veilbrook/npcmem/pkg/collect"
	"github.com/veilbrook/npcmem/pkg/conflict"
	"github.com/veilbrook/npcmem/pkg/dialogue"
	"github.com/veilbrook/npcmem/pkg/errors"
	"github.com/veilbrook/npcmem/pkg/log"
	"github.com/veilbrook/npcmem/pkg/mem/store"
	"github.com/veilbrook/npcmem/pkg/npc"
	"github.com/veilbrook/npcmem/pkg/record"
	"github.com/veilbrook/npcmem/pkg/relationship"
	"github.com/veilbrook/npcmem/pkg/scoring"
	"github.com/veilbrook/npcmem/pkg/scripting"
)

// Config contains facade-level options.
type Config struct {
	// SelectTimeout bounds one whole Select call
	SelectTimeout time.Duration
}

// DefaultConfig returns the default facade options.
func DefaultConfig() Config {
	return Config{
		SelectTimeout: 5 * time.Second,
	}
}

// Interaction is one player-facing event to remember. Zero-valued
// fields fall back to derived values: TextShort from Text, Importance
// from the event type table, Timestamp from the wall clock.
type Interaction struct {
	Text       string
	TextShort  string
	EventType  record.EventType
	SlotType   record.SlotType
	Importance int
	Timestamp  time.Time
}

// Selection is the context package Select hands to prompt composition.
// Entries are ordered protected-first, then by descending score.
type Selection struct {
	// Header is the synthesized relationship summary line
	Header string

	// Entries are the selected memory lines, header included
	Entries []budget.Entry

	// TokensUsed is the estimated token total of all entries
	TokensUsed int

	// State is the relationship state the header was built from
	State relationship.State
}

// Engine is the main facade. It owns memory selection and interaction
// recording for any number of NPCs; reads are lock-free and writes
// serialize per NPC.
type Engine struct {
	store         store.Store
	relationships relationship.StateStore
	dialogue      dialogue.Engine
	scripting     scripting.Engine

	collector *collect.Collector
	scorer    *scoring.Scorer
	allocator *budget.Allocator
	resolver  *conflict.Resolver

	clamp     relationship.ClampConfig
	headerCfg relationship.HeaderConfig
	config    Config

	mu      sync.Mutex
	writeMu map[npc.ID]*sync.Mutex
}

// Deps bundles the collaborators NewEngine wires together. Dialogue and
// Scripting are optional; everything else is required.
type Deps struct {
	Store         store.Store
	Relationships relationship.StateStore
	Dialogue      dialogue.Engine
	Scripting     scripting.Engine

	Scoring   scoring.Config
	Collector collect.Config
	Allocator budget.Config
	Conflict  conflict.Config
	Clamp     relationship.ClampConfig
	Header    relationship.HeaderConfig
}

// NewEngine creates an Engine from its collaborators.
func NewEngine(deps Deps, cfg Config) *Engine {
	if cfg.SelectTimeout <= 0 {
		cfg.SelectTimeout = DefaultConfig().SelectTimeout
	}
	e := &Engine{
		store:         deps.Store,
		relationships: deps.Relationships,
		dialogue:      deps.Dialogue,
		scripting:     deps.Scripting,
		collector:     collect.NewCollector(deps.Store, deps.Collector),
		scorer:        scoring.NewScorer(deps.Scoring),
		allocator:     budget.NewAllocator(deps.Allocator),
		resolver:      conflict.NewResolver(deps.Store, deps.Conflict),
		clamp:         deps.Clamp,
		headerCfg:     deps.Header,
		config:        cfg,
		writeMu:       make(map[npc.ID]*sync.Mutex),
	}

	log.Debug("Recall engine initialized",
		"select_timeout", cfg.SelectTimeout,
		"has_dialogue", deps.Dialogue != nil,
		"has_scripting", deps.Scripting != nil,
	)
	return e
}

// Select assembles the memory context for one dialogue turn. The
// relationship header always leads the selection; a dead or slow store
// degrades to a header-only result rather than failing the turn.
func (e *Engine) Select(ctx context.Context, npcID npc.ID, queryText string, tokenBudget int) (Selection, error) {
	if npcID == "" {
		return Selection{}, errors.Wrap(errors.ErrInvalidInput, "npc ID is required")
	}
	if tokenBudget < 0 {
		return Selection{}, errors.Wrap(errors.ErrInvalidInput, "token budget must be non-negative")
	}

	if _, ok := npc.FromContext(ctx); !ok {
		ctx = npc.ContextWithID(ctx, npcID)
	}
	ctx, cancel := context.WithTimeout(ctx, e.config.SelectTimeout)
	defer cancel()

	now := time.Now().UTC()

	state, err := e.relationships.Get(ctx, npcID)
	if err != nil {
		log.WarnContext(ctx, "Relationship state unavailable, using zero state",
			"npc_id", npcID, "error", err)
		state = relationship.State{}
	}
	header := relationship.Header(state, e.headerCfg, now)

	embedding := e.embedQuery(ctx, queryText)

	candidates := e.collector.Collect(ctx, queryText, embedding, now)

	protected := []budget.Entry{{
		Text:      header,
		Tokens:    e.allocator.TokenCost(header),
		Protected: true,
	}}
	scored := make([]budget.Scored, 0, len(candidates))
	for _, cand := range candidates {
		if cand.Protected {
			rec := cand.Record
			protected = append(protected, budget.Entry{
				Record:    &rec,
				Text:      rec.TextShort,
				Tokens:    e.allocator.TokenCost(rec.TextShort),
				Protected: true,
			})
			continue
		}
		scored = append(scored, budget.Scored{
			Candidate: cand,
			Score:     e.scorer.Score(cand.Record, cand.Similarity, now),
		})
	}

	entries := e.allocator.Allocate(ctx, protected, scored, tokenBudget)

	used := 0
	for _, entry := range entries {
		used += entry.Tokens
	}

	log.DebugContext(ctx, "Selection assembled",
		"npc_id", npcID,
		"candidates", len(candidates),
		"entries", len(entries),
		"tokens_used", used,
		"token_budget", tokenBudget,
	)

	return Selection{
		Header:     header,
		Entries:    entries,
		TokensUsed: used,
		State:      state,
	}, nil
}

// RecordInteraction validates, resolves, and persists one interaction
// as a memory record, running conflict resolution first so slot
// replacement and supersession marks land before the new record does.
// Unlike Select, a store failure here surfaces as an error: silently
// dropping a write would corrupt the NPC's history.
func (e *Engine) RecordInteraction(ctx context.Context, npcID npc.ID, in Interaction) (string, error) {
	if npcID == "" {
		return "", errors.Wrap(errors.ErrInvalidInput, "npc ID is required")
	}
	if in.Text == "" {
		return "", errors.Wrap(errors.ErrInvalidInput, "interaction text is required")
	}

	if _, ok := npc.FromContext(ctx); !ok {
		ctx = npc.ContextWithID(ctx, npcID)
	}

	rec, err := e.buildRecord(ctx, npcID, in)
	if err != nil {
		return "", err
	}

	mu := e.npcWriteMu(npcID)
	mu.Lock()
	defer mu.Unlock()

	if err := e.resolver.Apply(ctx, rec, rec.Timestamp); err != nil {
		return "", err
	}

	id, err := e.store.Add(ctx, rec)
	if err != nil {
		log.ErrorContext(ctx, "Failed to persist interaction",
			"npc_id", npcID, "event_type", rec.EventType, "error", err)
		return "", err
	}

	log.DebugContext(ctx, "Interaction recorded",
		"npc_id", npcID,
		"memory_id", id,
		"event_type", rec.EventType,
		"importance", rec.Importance,
		"tier", rec.Tier,
	)
	return id, nil
}

// ApplyDelta applies a clamped relationship change and persists the new
// state.
func (e *Engine) ApplyDelta(ctx context.Context, npcID npc.ID, delta relationship.Delta) (relationship.State, error) {
	if npcID == "" {
		return relationship.State{}, errors.Wrap(errors.ErrInvalidInput, "npc ID is required")
	}

	mu := e.npcWriteMu(npcID)
	mu.Lock()
	defer mu.Unlock()

	state, err := e.relationships.Get(ctx, npcID)
	if err != nil {
		return relationship.State{}, err
	}

	now := time.Now().UTC()
	if !state.HasMet() {
		state.FirstMet = &now
	}
	state.InteractionCount++
	state = state.Apply(delta, e.clamp)

	if err := e.relationships.Put(ctx, npcID, state); err != nil {
		return relationship.State{}, err
	}
	return state, nil
}

// buildRecord resolves an Interaction's derived fields into a complete
// MemoryRecord with a fresh id.
func (e *Engine) buildRecord(ctx context.Context, npcID npc.ID, in Interaction) (record.MemoryRecord, error) {
	et := record.Normalize(string(in.EventType))

	if in.SlotType != "" && !record.KnownSlotType(string(in.SlotType)) {
		return record.MemoryRecord{}, errors.Wrap(errors.ErrInvalidInput,
			"unknown slot type: %s", in.SlotType)
	}

	importance := in.Importance
	if importance == 0 {
		importance = record.DefaultImportance(et)
	}
	importance = e.resolveImportance(ctx, et, importance)

	tier := record.DefaultTier(et)
	if in.SlotType != "" {
		// Slot facts carry identity state and never age out of reach
		tier = record.TierPinned
	}

	ts := in.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	short := in.TextShort
	if short == "" {
		short = record.ShortText(in.Text)
	}

	return record.MemoryRecord{
		ID:         uuid.NewString(),
		NPCID:      npcID,
		TextFull:   in.Text,
		TextShort:  short,
		EventType:  et,
		SlotType:   in.SlotType,
		Importance: record.ClampImportance(importance),
		Tier:       tier,
		Timestamp:  ts,
	}, nil
}

// embedQuery asks the dialogue engine for a query embedding. Missing
// engine, empty query, or embedding failure all degrade to nil, which
// the collector treats as text-only search.
func (e *Engine) embedQuery(ctx context.Context, queryText string) []float32 {
	if e.dialogue == nil || queryText == "" {
		return nil
	}
	embeddings, err := e.dialogue.GenerateEmbeddings(ctx, []string{queryText})
	if err != nil || len(embeddings) == 0 {
		log.WarnContext(ctx, "Query embedding failed, degrading to text search", "error", err)
		return nil
	}
	return embeddings[0]
}

func (e *Engine) npcWriteMu(npcID npc.ID) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	mu, ok := e.writeMu[npcID]
	if !ok {
		mu = &sync.Mutex{}
		e.writeMu[npcID] = mu
	}
	return mu
}
