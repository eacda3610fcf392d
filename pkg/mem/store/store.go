package store

import (
	"context"
	"time"

	"github.com/veilbrook/npcmem/pkg/record"
)

// Query describes a single bounded read against an NPC's collection.
// Filters are typed and closed; adapters translate them into whatever
// their backend supports and filter the rest client-side.
type Query struct {
	// Text is the semantic (or substring, for SQL backends) search text
	Text string

	// Embedding is an optional precomputed query embedding. When set,
	// vector backends use it instead of embedding Text themselves.
	Embedding []float32

	// Limit caps the number of results; adapters must apply it
	Limit int

	// MinImportance drops records below the floor when > 0
	MinImportance int

	// EventTypes restricts results to the given types (OR) when non-empty
	EventTypes []record.EventType

	// SlotType restricts results to one slot when non-empty
	SlotType record.SlotType

	// Since drops records older than the given time when non-zero
	Since time.Time
}

// Result pairs a record with the transient query distance. Distance is
// nil when the backend cannot measure similarity (exact-match and SQL
// text search); otherwise it is in [0,1] with similarity = 1 - distance.
type Result struct {
	Record   record.MemoryRecord
	Distance *float64
}

// Similarity returns 1 - distance clamped to [0,1], and false when the
// backend reported no distance.
func (r Result) Similarity() (float64, bool) {
	if r.Distance == nil {
		return 0, false
	}
	s := 1 - *r.Distance
	if s < 0 {
		s = 0
	}
	if s > 1 {
		s = 1
	}
	return s, true
}

// MetadataPatch is the closed set of metadata mutations the engine may
// apply to an existing record. Only supersession marks are patchable;
// everything else on a record is immutable after write.
type MetadataPatch struct {
	SupersededBy string
	SupersededAt time.Time
}

// Store is the interface every memory store adapter implements. The NPC
// collection is resolved from the npc.Context carried on ctx; adapters
// must return errors.ErrMissingNPCContext when it is absent.
type Store interface {
	// Add persists a record to the NPC's collection.
	Add(ctx context.Context, rec record.MemoryRecord) (string, error)

	// Query fetches records matching the query from the NPC's collection.
	Query(ctx context.Context, q Query) ([]Result, error)

	// Delete removes a record. Used only by slot replacement.
	Delete(ctx context.Context, id string) error

	// UpdateMetadata applies a supersession patch to an existing record.
	UpdateMetadata(ctx context.Context, id string, patch MetadataPatch) error

	// ListCollections returns the known NPC collections. Admin tooling
	// only; the engine itself never calls it.
	ListCollections(ctx context.Context) ([]string, error)
}

// SemanticStore marks adapters that can rank results by similarity to
// the query text or embedding.
type SemanticStore interface {
	Store

	// SupportsSemanticSearch indicates that Query results carry distances.
	SupportsSemanticSearch() bool
}
