package collect

import (
	"context"
	"sync"
	"time"

	"github.com/veilbrook/npcmem/pkg/log"
	"github.com/veilbrook/npcmem/pkg/mem/store"
	"github.com/veilbrook/npcmem/pkg/record"
)

// Config holds the candidate collection tunables. All three sources are
// bounded; corpus growth never changes the number or size of queries.
type Config struct {
	// ProtectedSlots is the slot allow-list fetched directly on every call
	ProtectedSlots []record.SlotType `yaml:"protected_slots"`

	// HighSignalEvents are the event types worth surfacing while recent
	HighSignalEvents []record.EventType `yaml:"high_signal_events"`

	// RecencyWindowDays bounds how far back the high-signal source looks
	RecencyWindowDays float64 `yaml:"recency_window_days"`

	// HighSignalLimitPerType caps each high-signal event type query
	HighSignalLimitPerType int `yaml:"high_signal_limit_per_type"`

	// SemanticTopK caps the similarity query
	SemanticTopK int `yaml:"semantic_top_k"`

	// MinImportanceFloor drops low-importance records from the semantic
	// source
	MinImportanceFloor int `yaml:"min_importance_floor"`

	// SourceTimeout bounds each source query independently; a slow
	// source degrades to empty instead of stalling the turn
	SourceTimeout time.Duration `yaml:"source_timeout"`
}

// DefaultConfig returns the default collection tunables.
func DefaultConfig() Config {
	return Config{
		ProtectedSlots: record.ProtectedSlots(),
		HighSignalEvents: []record.EventType{
			record.EventBetrayal,
			record.EventLifeSaved,
			record.EventSecretRevealed,
			record.EventPromiseMade,
			record.EventPromiseBroken,
		},
		RecencyWindowDays:      7,
		HighSignalLimitPerType: 10,
		SemanticTopK:           15,
		MinImportanceFloor:     4,
		SourceTimeout:          2 * time.Second,
	}
}

// Candidate pairs a collected record with its transient similarity and
// protection flag. Candidates live only for the duration of one
// selection call.
type Candidate struct {
	Record record.MemoryRecord

	// Similarity is nil when the source gave no similarity measurement
	Similarity *float64

	// Protected candidates bypass scoring and always appear in output
	Protected bool
}

// Collector gathers the three bounded candidate sets and deduplicates
// them. It is the only read-side I/O in the engine.
type Collector struct {
	store store.Store
	cfg   Config
}

// NewCollector creates a Collector over the given store.
func NewCollector(st store.Store, cfg Config) *Collector {
	return &Collector{store: st, cfg: cfg}
}

// Collect runs the protected, high-signal-recent, and semantic sources
// concurrently and merges their results, deduplicated by record id with
// protected membership winning. A failing or slow source degrades to
// empty; Collect itself never fails, so a dead store still yields a
// usable (if empty) candidate set and the conversation goes on.
func (c *Collector) Collect(ctx context.Context, queryText string, embedding []float32, now time.Time) []Candidate {
	var (
		wg         sync.WaitGroup
		protected  []store.Result
		highSignal []store.Result
		semantic   []store.Result
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		protected = c.protectedSource(ctx)
	}()
	go func() {
		defer wg.Done()
		highSignal = c.highSignalSource(ctx, now)
	}()
	go func() {
		defer wg.Done()
		semantic = c.semanticSource(ctx, queryText, embedding)
	}()
	wg.Wait()

	merged := make([]Candidate, 0, len(protected)+len(highSignal)+len(semantic))
	seen := make(map[string]int)

	add := func(results []store.Result, isProtected bool) {
		for _, res := range results {
			rec := res.Record
			if rec.Timestamp.IsZero() {
				log.WarnContext(ctx, "Record missing timestamp, scoring as new",
					"record_id", rec.ID,
					"event_type", rec.EventType,
				)
			}
			var sim *float64
			if s, ok := res.Similarity(); ok {
				sim = &s
			}
			if i, dup := seen[rec.ID]; dup {
				// Keep the first occurrence; protected membership and a
				// measured similarity both win over their absence.
				if isProtected {
					merged[i].Protected = true
				}
				if merged[i].Similarity == nil && sim != nil {
					merged[i].Similarity = sim
				}
				continue
			}
			seen[rec.ID] = len(merged)
			merged = append(merged, Candidate{
				Record:     rec,
				Similarity: sim,
				Protected:  isProtected,
			})
		}
	}

	add(protected, true)
	add(highSignal, false)
	add(semantic, false)

	log.DebugContext(ctx, "Collected candidates",
		"protected", len(protected),
		"high_signal", len(highSignal),
		"semantic", len(semantic),
		"merged", len(merged),
	)

	return merged
}

// protectedSource fetches the slot allow-list. One small query per slot.
func (c *Collector) protectedSource(ctx context.Context) []store.Result {
	var out []store.Result
	for _, slot := range c.cfg.ProtectedSlots {
		results, err := c.query(ctx, store.Query{
			SlotType: slot,
			Limit:    1,
		})
		if err != nil {
			log.WarnContext(ctx, "Protected slot fetch degraded to empty",
				"slot_type", slot,
				"error", err,
			)
			continue
		}
		out = append(out, results...)
	}
	return out
}

// highSignalSource fetches recent records of the configured event types,
// capped per type.
func (c *Collector) highSignalSource(ctx context.Context, now time.Time) []store.Result {
	since := now.Add(-time.Duration(c.cfg.RecencyWindowDays * 24 * float64(time.Hour)))

	var out []store.Result
	for _, et := range c.cfg.HighSignalEvents {
		results, err := c.query(ctx, store.Query{
			EventTypes: []record.EventType{et},
			Since:      since,
			Limit:      c.cfg.HighSignalLimitPerType,
		})
		if err != nil {
			log.WarnContext(ctx, "High-signal fetch degraded to empty",
				"event_type", et,
				"error", err,
			)
			continue
		}
		out = append(out, results...)
	}
	return out
}

// semanticSource runs the single top-K similarity query.
func (c *Collector) semanticSource(ctx context.Context, queryText string, embedding []float32) []store.Result {
	if queryText == "" && len(embedding) == 0 {
		return nil
	}
	results, err := c.query(ctx, store.Query{
		Text:          queryText,
		Embedding:     embedding,
		MinImportance: c.cfg.MinImportanceFloor,
		Limit:         c.cfg.SemanticTopK,
	})
	if err != nil {
		log.WarnContext(ctx, "Semantic fetch degraded to empty", "error", err)
		return nil
	}
	return results
}

func (c *Collector) query(ctx context.Context, q store.Query) ([]store.Result, error) {
	if c.cfg.SourceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.SourceTimeout)
		defer cancel()
	}
	return c.store.Query(ctx, q)
}
