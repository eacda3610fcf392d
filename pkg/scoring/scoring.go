package scoring

import (
	"math"
	"time"

	"github.com/veilbrook/npcmem/pkg/record"
)

// Config holds the scoring tunables. It is immutable after construction
// and injected wherever scores are computed; there is no shared mutable
// scoring state anywhere in the engine.
type Config struct {
	// HalfLifeDays controls the exponential recency decay
	HalfLifeDays float64 `yaml:"half_life_days"`

	// RecencyFloor is the minimum recency factor an arbitrarily old
	// record keeps
	RecencyFloor float64 `yaml:"recency_floor"`

	// RelevanceFloor is the minimum relevance factor a completely
	// off-topic record keeps
	RelevanceFloor float64 `yaml:"relevance_floor"`

	// SupersededMultiplier is applied once to records that a later
	// record narratively overrides
	SupersededMultiplier float64 `yaml:"superseded_multiplier"`

	// PinnedWeight, ImportantWeight, RegularWeight are the tier
	// advantage multipliers. Tier is an advantage, not a gate: a
	// relevant recent regular record can outrank a stale pinned one.
	PinnedWeight    float64 `yaml:"pinned_weight"`
	ImportantWeight float64 `yaml:"important_weight"`
	RegularWeight   float64 `yaml:"regular_weight"`
}

// DefaultConfig returns the default scoring tunables.
func DefaultConfig() Config {
	return Config{
		HalfLifeDays:         7.0,
		RecencyFloor:         0.3,
		RelevanceFloor:       0.3,
		SupersededMultiplier: 0.1,
		PinnedWeight:         3.0,
		ImportantWeight:      2.0,
		RegularWeight:        1.0,
	}
}

// TierWeight returns the advantage multiplier for a tier.
func (c Config) TierWeight(t record.Tier) float64 {
	switch t {
	case record.TierPinned:
		return c.PinnedWeight
	case record.TierImportant:
		return c.ImportantWeight
	default:
		return c.RegularWeight
	}
}

// Scorer computes selection scores. It is a pure computation: no I/O,
// no suspension, deterministic for fixed inputs.
type Scorer struct {
	cfg Config
}

// NewScorer creates a Scorer with the given tunables.
func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score maps a (record, query similarity, current time) triple to a
// scalar selection score.
//
//	score = tier_weight * importance * recency * relevance * supersession
//
// similarity is nil when the candidate came from a non-semantic source;
// it then contributes only the relevance floor. A zero timestamp means
// the record is malformed and is scored as if written now.
func (s *Scorer) Score(rec record.MemoryRecord, similarity *float64, now time.Time) float64 {
	tierWeight := s.cfg.TierWeight(rec.Tier)
	importance := float64(record.ClampImportance(rec.Importance)) / 10.0

	recency := 1.0
	if !rec.Timestamp.IsZero() {
		ageDays := now.Sub(rec.Timestamp).Hours() / 24.0
		if ageDays < 0 {
			// Clock skew; never reward the future.
			ageDays = 0
		}
		decay := math.Exp(-ageDays * math.Ln2 / s.cfg.HalfLifeDays)
		recency = s.cfg.RecencyFloor + (1-s.cfg.RecencyFloor)*decay
	}

	sim := 0.0
	if similarity != nil {
		sim = clamp01(*similarity)
	}
	relevance := s.cfg.RelevanceFloor + (1-s.cfg.RelevanceFloor)*sim

	supersession := 1.0
	if rec.Superseded() {
		supersession = s.cfg.SupersededMultiplier
	}

	return tierWeight * importance * recency * relevance * supersession
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
