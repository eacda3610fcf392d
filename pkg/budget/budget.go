package budget

import (
	"context"
	"math"
	"sort"

	"github.com/veilbrook/npcmem/pkg/collect"
	"github.com/veilbrook/npcmem/pkg/log"
	"github.com/veilbrook/npcmem/pkg/record"
)

// Config holds the allocation tunables.
type Config struct {
	// HighRelevanceThreshold is the similarity at which a candidate earns
	// its full-form text. The gate is relevance, not remaining budget:
	// budget-gated selection makes the same memory render differently
	// across turns as unrelated context fluctuates, which surfaces as
	// tone inconsistency in the dialogue.
	HighRelevanceThreshold float64 `yaml:"high_relevance_threshold"`

	// CharsPerToken is the token cost estimator divisor. Deliberately
	// low: memory text is denser than prose, overestimating is safe.
	CharsPerToken float64 `yaml:"chars_per_token"`
}

// DefaultConfig returns the default allocation tunables.
func DefaultConfig() Config {
	return Config{
		HighRelevanceThreshold: 0.85,
		CharsPerToken:          3.0,
	}
}

// Entry is one render-ready line of the final selection. Record is nil
// for the synthesized relationship header.
type Entry struct {
	Record    *record.MemoryRecord
	Text      string
	Tokens    int
	Protected bool
	Score     float64
}

// Scored pairs a candidate with its computed score for allocation.
type Scored struct {
	Candidate collect.Candidate
	Score     float64
}

// Allocator greedily fills a token budget from scored candidates,
// choosing the per-record representation. Deterministic given its
// inputs.
type Allocator struct {
	cfg Config
}

// NewAllocator creates an Allocator with the given tunables.
func NewAllocator(cfg Config) *Allocator {
	return &Allocator{cfg: cfg}
}

// TokenCost estimates the token cost of a text.
func (a *Allocator) TokenCost(text string) int {
	return int(math.Ceil(float64(len(text)) / a.cfg.CharsPerToken))
}

// Allocate builds the final ordered selection. Protected entries are
// included first and are never dropped, even when they alone exceed the
// budget; that case is logged as a budget misconfiguration signal.
// Remaining candidates are taken by score (ties to the newer record)
// while they fit: full text only above the relevance threshold and
// within budget, short text otherwise, skipped entirely when even the
// short form does not fit. Texts are never truncated.
func (a *Allocator) Allocate(ctx context.Context, protected []Entry, scored []Scored, tokenBudget int) []Entry {
	out := make([]Entry, 0, len(protected)+len(scored))

	remaining := tokenBudget
	for _, p := range protected {
		p.Protected = true
		if p.Tokens == 0 {
			p.Tokens = a.TokenCost(p.Text)
		}
		out = append(out, p)
		remaining -= p.Tokens
	}
	if remaining < 0 {
		log.WarnContext(ctx, "budget_exceeded_by_protected",
			"token_budget", tokenBudget,
			"protected_overshoot", -remaining,
			"protected_entries", len(protected),
		)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Candidate.Record.Timestamp.After(scored[j].Candidate.Record.Timestamp)
	})

	for _, s := range scored {
		if remaining <= 0 {
			break
		}
		rec := s.Candidate.Record

		sim := 0.0
		if s.Candidate.Similarity != nil {
			sim = *s.Candidate.Similarity
		}

		fullCost := a.TokenCost(rec.TextFull)
		if sim >= a.cfg.HighRelevanceThreshold && fullCost <= remaining {
			out = append(out, Entry{
				Record: &rec,
				Text:   rec.TextFull,
				Tokens: fullCost,
				Score:  s.Score,
			})
			remaining -= fullCost
			continue
		}

		shortCost := a.TokenCost(rec.TextShort)
		if shortCost <= remaining {
			out = append(out, Entry{
				Record: &rec,
				Text:   rec.TextShort,
				Tokens: shortCost,
				Score:  s.Score,
			})
			remaining -= shortCost
		}
		// Doesn't fit even in short form: skip, never truncate.
	}

	return out
}
