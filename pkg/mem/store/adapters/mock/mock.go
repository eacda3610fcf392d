package mock

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/veilbrook/npcmem/pkg/errors"
	"github.com/veilbrook/npcmem/pkg/log"
	"github.com/veilbrook/npcmem/pkg/mem/store"
	"github.com/veilbrook/npcmem/pkg/npc"
	"github.com/veilbrook/npcmem/pkg/record"
)

// MockStore is an in-memory implementation of the store.Store interface
// used for testing and development. Tests can inject failures and
// per-record similarities to drive the engine deterministically.
type MockStore struct {
	// records[NPCID][RecordID] = MemoryRecord
	records map[npc.ID]map[string]record.MemoryRecord

	// similarities holds injected per-record similarity values returned
	// for text queries
	similarities map[string]float64

	// failing simulates a down backend when set
	failing bool

	mutex sync.RWMutex
}

// NewMockStore creates a new instance of the MockStore.
func NewMockStore() *MockStore {
	s := &MockStore{
		records:      make(map[npc.ID]map[string]record.MemoryRecord),
		similarities: make(map[string]float64),
	}

	log.Debug("Initialized mock memory store adapter")
	return s
}

// SetFailing toggles simulated backend unavailability. While failing,
// every operation returns errors.ErrStoreUnavailable.
func (m *MockStore) SetFailing(failing bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.failing = failing
}

// SetSimilarity injects the similarity reported for a record on text
// queries.
func (m *MockStore) SetSimilarity(id string, similarity float64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.similarities[id] = similarity
}

// SupportsSemanticSearch implements store.SemanticStore.
func (m *MockStore) SupportsSemanticSearch() bool { return true }

// Add implements the store.Store interface.
func (m *MockStore) Add(ctx context.Context, rec record.MemoryRecord) (string, error) {
	npcCtx, ok := npc.FromContext(ctx)
	if !ok {
		return "", errors.ErrMissingNPCContext
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.failing {
		return "", errors.ErrStoreUnavailable
	}

	if rec.NPCID == "" {
		rec.NPCID = npcCtx.NPCID
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	if _, exists := m.records[rec.NPCID]; !exists {
		m.records[rec.NPCID] = make(map[string]record.MemoryRecord)
	}
	m.records[rec.NPCID][rec.ID] = rec

	log.DebugContext(ctx, "Stored record in mock store",
		"record_id", rec.ID,
		"npc_id", rec.NPCID,
		"event_type", rec.EventType,
	)

	return rec.ID, nil
}

// Query implements the store.Store interface.
func (m *MockStore) Query(ctx context.Context, q store.Query) ([]store.Result, error) {
	npcCtx, ok := npc.FromContext(ctx)
	if !ok {
		return nil, errors.ErrMissingNPCContext
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if m.failing {
		return nil, errors.ErrStoreUnavailable
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	var results []store.Result
	for _, rec := range m.records[npcCtx.NPCID] {
		if !m.matches(rec, q) {
			continue
		}
		res := store.Result{Record: rec}
		if q.Text != "" {
			if sim, ok := m.similarities[rec.ID]; ok {
				d := 1 - sim
				res.Distance = &d
			}
		}
		results = append(results, res)
	}

	// Closest first, then newest; keeps test expectations stable.
	sort.Slice(results, func(i, j int) bool {
		si, iok := results[i].Similarity()
		sj, jok := results[j].Similarity()
		if iok != jok {
			return iok
		}
		if iok && si != sj {
			return si > sj
		}
		return results[i].Record.Timestamp.After(results[j].Record.Timestamp)
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Delete implements the store.Store interface.
func (m *MockStore) Delete(ctx context.Context, id string) error {
	npcCtx, ok := npc.FromContext(ctx)
	if !ok {
		return errors.ErrMissingNPCContext
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.failing {
		return errors.ErrStoreUnavailable
	}

	recs, exists := m.records[npcCtx.NPCID]
	if !exists {
		return errors.ErrNotFound
	}
	if _, exists := recs[id]; !exists {
		return errors.ErrNotFound
	}
	delete(recs, id)
	return nil
}

// UpdateMetadata implements the store.Store interface.
func (m *MockStore) UpdateMetadata(ctx context.Context, id string, patch store.MetadataPatch) error {
	npcCtx, ok := npc.FromContext(ctx)
	if !ok {
		return errors.ErrMissingNPCContext
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.failing {
		return errors.ErrStoreUnavailable
	}

	rec, exists := m.records[npcCtx.NPCID][id]
	if !exists {
		return errors.ErrNotFound
	}
	if patch.SupersededBy != "" {
		rec.SupersededBy = patch.SupersededBy
		rec.SupersededAt = patch.SupersededAt
	}
	m.records[npcCtx.NPCID][id] = rec
	return nil
}

// ListCollections implements the store.Store interface.
func (m *MockStore) ListCollections(ctx context.Context) ([]string, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if m.failing {
		return nil, errors.ErrStoreUnavailable
	}

	names := make([]string, 0, len(m.records))
	for id := range m.records {
		names = append(names, npc.Context{NPCID: id}.Collection())
	}
	sort.Strings(names)
	return names, nil
}

// matches checks a record against the typed query filters.
func (m *MockStore) matches(rec record.MemoryRecord, q store.Query) bool {
	if q.SlotType != "" && rec.SlotType != q.SlotType {
		return false
	}
	if len(q.EventTypes) > 0 {
		found := false
		for _, et := range q.EventTypes {
			if rec.EventType == et {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q.MinImportance > 0 && rec.Importance < q.MinImportance {
		return false
	}
	if !q.Since.IsZero() && rec.Timestamp.Before(q.Since) {
		return false
	}
	if q.Text != "" && len(q.Embedding) == 0 {
		// Substring match stands in for semantic search, except for
		// records with an injected similarity, which always match.
		if _, injected := m.similarities[rec.ID]; !injected {
			if !strings.Contains(strings.ToLower(rec.TextFull), strings.ToLower(q.Text)) {
				return false
			}
		}
	}
	return true
}
