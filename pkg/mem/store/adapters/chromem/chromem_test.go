package chromem

import (
	"context"
	"strings"
	"testing"
	"time"

	chromemgo "github.com/philippgille/chromem-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veilbrook/npcmem/pkg/errors"
	"github.com/veilbrook/npcmem/pkg/mem/store"
	"github.com/veilbrook/npcmem/pkg/npc"
	"github.com/veilbrook/npcmem/pkg/record"
)

// keywordEmbedding maps texts onto fixed unit vectors so similarity
// ordering in tests is deterministic: texts sharing a keyword embed
// identically, unrelated texts embed orthogonally.
func keywordEmbedding(_ context.Context, text string) ([]float32, error) {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "dragon"):
		return []float32{1, 0, 0, 0}, nil
	case strings.Contains(lower, "fishing"):
		return []float32{0, 1, 0, 0}, nil
	case strings.Contains(lower, "weather"):
		return []float32{0, 0, 1, 0}, nil
	}
	return []float32{0.5, 0.5, 0.5, 0.5}, nil
}

func newTestStore(t *testing.T) *ChromemStore {
	t.Helper()

	s, err := NewChromemStore(chromemgo.NewDB(), keywordEmbedding, Config{Dimensions: 4})
	require.NoError(t, err)
	return s
}

func testContext(id npc.ID) context.Context {
	return npc.ContextWithID(context.Background(), id)
}

func testRecord(id, text string, et record.EventType, importance int, ts time.Time) record.MemoryRecord {
	return record.MemoryRecord{
		ID:         id,
		TextFull:   text,
		TextShort:  text,
		EventType:  et,
		Importance: importance,
		Tier:       record.DefaultTier(et),
		Timestamp:  ts,
	}
}

func TestChromemStore_RequiresNPCContext(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Add(context.Background(), testRecord("r1", "text", record.EventCasual, 2, time.Now()))
	assert.True(t, errors.Is(err, errors.ErrMissingNPCContext))

	_, err = s.Query(context.Background(), store.Query{Text: "text"})
	assert.True(t, errors.Is(err, errors.ErrMissingNPCContext))
}

func TestChromemStore_AddRequiresID(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Add(testContext("innkeeper"), testRecord("", "text", record.EventCasual, 2, time.Now()))
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestChromemStore_SupportsSemanticSearch(t *testing.T) {
	assert.True(t, newTestStore(t).SupportsSemanticSearch())
}

func TestChromemStore_EmptyCollection(t *testing.T) {
	s := newTestStore(t)

	results, err := s.Query(testContext("innkeeper"), store.Query{Text: "dragon"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestChromemStore_SemanticOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := testContext("innkeeper")
	now := time.Now().UTC().Truncate(time.Second)

	_, err := s.Add(ctx, testRecord("dragon", "the dragon burned the mill", record.EventLifeSaved, 9, now))
	require.NoError(t, err)
	_, err = s.Add(ctx, testRecord("fishing", "a quiet day of fishing", record.EventCasual, 2, now))
	require.NoError(t, err)
	_, err = s.Add(ctx, testRecord("weather", "talked about the weather", record.EventCasual, 1, now))
	require.NoError(t, err)

	results, err := s.Query(ctx, store.Query{Text: "dragon sighting", Limit: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "dragon", results[0].Record.ID)
	sim, ok := results[0].Similarity()
	require.True(t, ok)
	assert.InDelta(t, 1.0, sim, 1e-4)

	sim, ok = results[1].Similarity()
	require.True(t, ok)
	assert.Less(t, sim, 0.5)
}

func TestChromemStore_QueryByEmbedding(t *testing.T) {
	s := newTestStore(t)
	ctx := testContext("innkeeper")
	now := time.Now().UTC()

	_, err := s.Add(ctx, testRecord("dragon", "the dragon burned the mill", record.EventLifeSaved, 9, now))
	require.NoError(t, err)
	_, err = s.Add(ctx, testRecord("fishing", "a quiet day of fishing", record.EventCasual, 2, now))
	require.NoError(t, err)

	results, err := s.Query(ctx, store.Query{Embedding: []float32{1, 0, 0, 0}, Limit: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "dragon", results[0].Record.ID)
	assert.NotNil(t, results[0].Distance)
}

func TestChromemStore_FilterOnlyQuery(t *testing.T) {
	s := newTestStore(t)
	ctx := testContext("innkeeper")
	now := time.Now().UTC().Truncate(time.Second)

	_, err := s.Add(ctx, testRecord("dragon", "the dragon burned the mill", record.EventLifeSaved, 9, now))
	require.NoError(t, err)
	_, err = s.Add(ctx, testRecord("fishing", "a quiet day of fishing", record.EventCasual, 2, now))
	require.NoError(t, err)

	slot := testRecord("name", "the player is called Edda", record.EventCasual, 5, now)
	slot.SlotType = record.SlotPlayerName
	_, err = s.Add(ctx, slot)
	require.NoError(t, err)

	t.Run("event type", func(t *testing.T) {
		results, err := s.Query(ctx, store.Query{
			EventTypes: []record.EventType{record.EventLifeSaved},
			Limit:      10,
		})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "dragon", results[0].Record.ID)
		assert.Nil(t, results[0].Distance, "exact-match lookups carry no similarity")
	})

	t.Run("slot type", func(t *testing.T) {
		results, err := s.Query(ctx, store.Query{SlotType: record.SlotPlayerName, Limit: 10})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "name", results[0].Record.ID)
	})
}

func TestChromemStore_ClientSidePredicates(t *testing.T) {
	s := newTestStore(t)
	ctx := testContext("innkeeper")
	now := time.Now().UTC().Truncate(time.Second)

	_, err := s.Add(ctx, testRecord("recent-major", "the dragon burned the mill", record.EventLifeSaved, 9, now.Add(-time.Hour)))
	require.NoError(t, err)
	_, err = s.Add(ctx, testRecord("recent-minor", "saw a small dragon kite", record.EventCasual, 2, now.Add(-time.Hour)))
	require.NoError(t, err)
	_, err = s.Add(ctx, testRecord("old-major", "an old dragon story", record.EventLifeSaved, 9, now.Add(-60*24*time.Hour)))
	require.NoError(t, err)

	results, err := s.Query(ctx, store.Query{
		Text:          "dragon",
		MinImportance: 5,
		Since:         now.Add(-7 * 24 * time.Hour),
		Limit:         10,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "recent-major", results[0].Record.ID)
}

func TestChromemStore_MetadataRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := testContext("innkeeper")
	ts := time.Date(2026, 5, 12, 9, 30, 0, 0, time.UTC)

	in := testRecord("promise", "promised to guard the cellar", record.EventPromiseMade, 7, ts)
	_, err := s.Add(ctx, in)
	require.NoError(t, err)

	results, err := s.Query(ctx, store.Query{
		EventTypes: []record.EventType{record.EventPromiseMade},
		Limit:      10,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)

	out := results[0].Record
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, npc.ID("innkeeper"), out.NPCID)
	assert.Equal(t, in.TextFull, out.TextFull)
	assert.Equal(t, in.TextShort, out.TextShort)
	assert.Equal(t, in.EventType, out.EventType)
	assert.Equal(t, in.Importance, out.Importance)
	assert.Equal(t, in.Tier, out.Tier)
	assert.Equal(t, ts, out.Timestamp)
}

func TestChromemStore_UpdateMetadata(t *testing.T) {
	s := newTestStore(t)
	ctx := testContext("innkeeper")
	now := time.Now().UTC().Truncate(time.Second)

	_, err := s.Add(ctx, testRecord("promise", "promised to guard the cellar", record.EventPromiseMade, 7, now.Add(-time.Hour)))
	require.NoError(t, err)

	require.NoError(t, s.UpdateMetadata(ctx, "promise", store.MetadataPatch{
		SupersededBy: "broken",
		SupersededAt: now,
	}))

	results, err := s.Query(ctx, store.Query{
		EventTypes: []record.EventType{record.EventPromiseMade},
		Limit:      10,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "broken", results[0].Record.SupersededBy)
	assert.Equal(t, now, results[0].Record.SupersededAt)
	assert.Equal(t, "promised to guard the cellar", results[0].Record.TextFull,
		"replacing the document must keep its content")

	err = s.UpdateMetadata(ctx, "ghost", store.MetadataPatch{SupersededBy: "x", SupersededAt: now})
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestChromemStore_Delete(t *testing.T) {
	s := newTestStore(t)
	ctx := testContext("innkeeper")

	_, err := s.Add(ctx, testRecord("r1", "a quiet day of fishing", record.EventCasual, 2, time.Now().UTC()))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "r1"))

	results, err := s.Query(ctx, store.Query{Text: "fishing", Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestChromemStore_ListCollections(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()

	_, err := s.Add(testContext("innkeeper"), testRecord("r1", "a quiet day of fishing", record.EventCasual, 2, now))
	require.NoError(t, err)
	_, err = s.Add(testContext("guard"), testRecord("r2", "talked about the weather", record.EventCasual, 1, now))
	require.NoError(t, err)

	names, err := s.ListCollections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"npc-guard", "npc-innkeeper"}, names)
}
