package chromem

import (
	"context"
	"sort"
	"strconv"
	"time"

	chromemgo "github.com/philippgille/chromem-go"

	"github.com/veilbrook/npcmem/pkg/errors"
	"github.com/veilbrook/npcmem/pkg/log"
	"github.com/veilbrook/npcmem/pkg/mem/store"
	"github.com/veilbrook/npcmem/pkg/npc"
	"github.com/veilbrook/npcmem/pkg/record"
)

// overFetchFactor bounds the client-side filtering window for the
// predicates chromem's equality-only where filters cannot express
// (importance floor, recency window).
const overFetchFactor = 4

// Config holds the configuration for the chromem adapter.
type Config struct {
	// Dimensions is the embedding dimensionality. Filter-only queries
	// probe the index with a constant unit vector of this size.
	Dimensions int
}

// ChromemStore implements the store.Store interface on top of a
// chromem-go database. Each NPC gets its own collection; the full text
// is the embedded document and everything else lives in metadata.
type ChromemStore struct {
	db        *chromemgo.DB
	embedding chromemgo.EmbeddingFunc
	dims      int
}

// NewChromemStore creates a new adapter over the given chromem database.
// embedding is used both to embed documents at Add time and to embed
// query texts when the caller supplies no precomputed embedding.
func NewChromemStore(db *chromemgo.DB, embedding chromemgo.EmbeddingFunc, cfg Config) (*ChromemStore, error) {
	if db == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "chromem db is nil")
	}
	dims := cfg.Dimensions
	if dims <= 0 {
		dims = 1536
	}

	log.Debug("Initialized chromem memory store adapter", "dimensions", dims)

	return &ChromemStore{
		db:        db,
		embedding: embedding,
		dims:      dims,
	}, nil
}

// SupportsSemanticSearch implements store.SemanticStore.
func (s *ChromemStore) SupportsSemanticSearch() bool { return true }

func (s *ChromemStore) collection(ctx context.Context) (*chromemgo.Collection, npc.Context, error) {
	npcCtx, ok := npc.FromContext(ctx)
	if !ok {
		return nil, npc.Context{}, errors.ErrMissingNPCContext
	}
	col, err := s.db.GetOrCreateCollection(npcCtx.Collection(), nil, s.embedding)
	if err != nil {
		return nil, npcCtx, errors.Wrap(errors.ErrStoreUnavailable, "%v", err)
	}
	return col, npcCtx, nil
}

// Add implements the store.Store interface.
func (s *ChromemStore) Add(ctx context.Context, rec record.MemoryRecord) (string, error) {
	col, npcCtx, err := s.collection(ctx)
	if err != nil {
		return "", err
	}
	if rec.ID == "" {
		return "", errors.Wrap(errors.ErrInvalidInput, "record ID is required")
	}
	if rec.NPCID == "" {
		rec.NPCID = npcCtx.NPCID
	}

	doc := chromemgo.Document{
		ID:       rec.ID,
		Metadata: record.EncodeMetadata(rec),
		Content:  rec.TextFull,
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return "", errors.Wrap(errors.ErrStoreUnavailable, "failed to add document: %v", err)
	}

	log.DebugContext(ctx, "Stored record in chromem",
		"record_id", rec.ID,
		"collection", npcCtx.Collection(),
		"event_type", rec.EventType,
	)
	return rec.ID, nil
}

// Query implements the store.Store interface. Semantic queries rank by
// embedding similarity; filter-only queries probe with a constant unit
// vector and report no distance. Importance and recency predicates are
// applied client-side over a bounded over-fetch.
func (s *ChromemStore) Query(ctx context.Context, q store.Query) ([]store.Result, error) {
	col, npcCtx, err := s.collection(ctx)
	if err != nil {
		return nil, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}

	count := col.Count()
	if count == 0 {
		return []store.Result{}, nil
	}

	fetch := limit * overFetchFactor
	if q.MinImportance <= 0 && q.Since.IsZero() {
		fetch = limit
	}
	if fetch > count {
		fetch = count
	}

	semantic := q.Text != "" || len(q.Embedding) > 0

	// One where-filtered pass per event type; a single pass otherwise.
	wheres := []map[string]string{nil}
	if len(q.EventTypes) > 0 {
		wheres = wheres[:0]
		for _, et := range q.EventTypes {
			wheres = append(wheres, map[string]string{record.MetaEventType: string(et)})
		}
	} else if q.SlotType != "" {
		wheres = []map[string]string{{record.MetaSlotType: string(q.SlotType)}}
	}

	var results []store.Result
	for _, where := range wheres {
		raw, err := s.queryOnce(ctx, col, q, where, fetch, semantic)
		if err != nil {
			return nil, err
		}
		for _, cr := range raw {
			res := s.toResult(cr, npcCtx.NPCID, semantic)
			if q.MinImportance > 0 && res.Record.Importance < q.MinImportance {
				continue
			}
			if !q.Since.IsZero() && res.Record.Timestamp.Before(q.Since) {
				continue
			}
			results = append(results, res)
		}
	}

	if semantic {
		sort.SliceStable(results, func(i, j int) bool {
			si, _ := results[i].Similarity()
			sj, _ := results[j].Similarity()
			return si > sj
		})
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *ChromemStore) queryOnce(ctx context.Context, col *chromemgo.Collection, q store.Query, where map[string]string, fetch int, semantic bool) ([]chromemgo.Result, error) {
	switch {
	case len(q.Embedding) > 0:
		raw, err := col.QueryEmbedding(ctx, q.Embedding, fetch, where, nil)
		if err != nil {
			return nil, errors.Wrap(errors.ErrStoreUnavailable, "embedding query failed: %v", err)
		}
		return raw, nil
	case semantic:
		raw, err := col.Query(ctx, q.Text, fetch, where, nil)
		if err != nil {
			return nil, errors.Wrap(errors.ErrStoreUnavailable, "text query failed: %v", err)
		}
		return raw, nil
	default:
		// Filter-only fetch: probe with a constant unit vector and let
		// the where filter do the work. The resulting order is
		// meaningless, which is fine for exact-match lookups.
		raw, err := col.QueryEmbedding(ctx, s.probeVector(), fetch, where, nil)
		if err != nil {
			return nil, errors.Wrap(errors.ErrStoreUnavailable, "filter query failed: %v", err)
		}
		return raw, nil
	}
}

func (s *ChromemStore) toResult(cr chromemgo.Result, npcID npc.ID, semantic bool) store.Result {
	rec := record.DecodeMetadata(cr.ID, npcID, cr.Content, cr.Metadata)
	res := store.Result{Record: rec}
	if semantic {
		sim := float64(cr.Similarity)
		if sim < 0 {
			sim = 0
		}
		if sim > 1 {
			sim = 1
		}
		d := 1 - sim
		res.Distance = &d
	}
	return res
}

func (s *ChromemStore) probeVector() []float32 {
	v := make([]float32, s.dims)
	v[0] = 1
	return v
}

// Delete implements the store.Store interface.
func (s *ChromemStore) Delete(ctx context.Context, id string) error {
	col, _, err := s.collection(ctx)
	if err != nil {
		return err
	}
	if err := col.Delete(ctx, nil, nil, id); err != nil {
		return errors.Wrap(errors.ErrStoreUnavailable, "failed to delete %s: %v", id, err)
	}
	return nil
}

// UpdateMetadata implements the store.Store interface. chromem has no
// in-place metadata update, so this is a read, delete, re-add of the
// same document with its stored embedding, which avoids re-embedding.
func (s *ChromemStore) UpdateMetadata(ctx context.Context, id string, patch store.MetadataPatch) error {
	col, _, err := s.collection(ctx)
	if err != nil {
		return err
	}

	doc, err := col.GetByID(ctx, id)
	if err != nil {
		return errors.Wrap(errors.ErrNotFound, "record %s: %v", id, err)
	}

	meta := make(map[string]string, len(doc.Metadata)+2)
	for k, v := range doc.Metadata {
		meta[k] = v
	}
	if patch.SupersededBy != "" {
		meta[record.MetaSupersededBy] = patch.SupersededBy
		if !patch.SupersededAt.IsZero() {
			meta[record.MetaSupersededAt] = formatUnix(patch.SupersededAt)
		}
	}

	if err := col.Delete(ctx, nil, nil, id); err != nil {
		return errors.Wrap(errors.ErrStoreUnavailable, "failed to replace %s: %v", id, err)
	}
	err = col.AddDocument(ctx, chromemgo.Document{
		ID:        id,
		Metadata:  meta,
		Embedding: doc.Embedding,
		Content:   doc.Content,
	})
	if err != nil {
		return errors.Wrap(errors.ErrStoreUnavailable, "failed to re-add %s: %v", id, err)
	}
	return nil
}

func formatUnix(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}

// ListCollections implements the store.Store interface.
func (s *ChromemStore) ListCollections(ctx context.Context) ([]string, error) {
	cols := s.db.ListCollections()
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
