package mock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veilbrook/npcmem/pkg/errors"
	"github.com/veilbrook/npcmem/pkg/mem/store"
	"github.com/veilbrook/npcmem/pkg/npc"
	"github.com/veilbrook/npcmem/pkg/record"
)

func testContext(id npc.ID) context.Context {
	return npc.ContextWithID(context.Background(), id)
}

func testRecord(id string, et record.EventType, importance int, ts time.Time) record.MemoryRecord {
	return record.MemoryRecord{
		ID:         id,
		TextFull:   "full text of " + id,
		TextShort:  "short " + id,
		EventType:  et,
		Importance: importance,
		Timestamp:  ts,
	}
}

func TestMockStore_RequiresNPCContext(t *testing.T) {
	st := NewMockStore()

	_, err := st.Add(context.Background(), testRecord("r1", record.EventCasual, 3, time.Now()))
	assert.True(t, errors.Is(err, errors.ErrMissingNPCContext))

	_, err = st.Query(context.Background(), store.Query{})
	assert.True(t, errors.Is(err, errors.ErrMissingNPCContext))
}

func TestMockStore_AddGeneratesID(t *testing.T) {
	st := NewMockStore()

	rec := testRecord("", record.EventCasual, 3, time.Now())
	id, err := st.Add(testContext("npc-1"), rec)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestMockStore_NPCIsolation(t *testing.T) {
	st := NewMockStore()
	now := time.Now().UTC()

	_, err := st.Add(testContext("npc-1"), testRecord("r1", record.EventCasual, 3, now))
	require.NoError(t, err)

	results, err := st.Query(testContext("npc-2"), store.Query{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMockStore_TypedFilters(t *testing.T) {
	st := NewMockStore()
	ctx := testContext("npc-1")
	now := time.Now().UTC()

	_, err := st.Add(ctx, testRecord("casual", record.EventCasual, 2, now.Add(-time.Hour)))
	require.NoError(t, err)
	_, err = st.Add(ctx, testRecord("betrayal", record.EventBetrayal, 10, now.Add(-2*time.Hour)))
	require.NoError(t, err)
	old := testRecord("old", record.EventBetrayal, 10, now.Add(-30*24*time.Hour))
	_, err = st.Add(ctx, old)
	require.NoError(t, err)

	t.Run("event type filter", func(t *testing.T) {
		results, err := st.Query(ctx, store.Query{
			EventTypes: []record.EventType{record.EventBetrayal},
			Limit:      10,
		})
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("min importance", func(t *testing.T) {
		results, err := st.Query(ctx, store.Query{MinImportance: 5, Limit: 10})
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("since window", func(t *testing.T) {
		results, err := st.Query(ctx, store.Query{
			EventTypes: []record.EventType{record.EventBetrayal},
			Since:      now.Add(-7 * 24 * time.Hour),
			Limit:      10,
		})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "betrayal", results[0].Record.ID)
	})

	t.Run("limit", func(t *testing.T) {
		results, err := st.Query(ctx, store.Query{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})
}

func TestMockStore_SimilarityOrdering(t *testing.T) {
	st := NewMockStore()
	ctx := testContext("npc-1")
	now := time.Now().UTC()

	for _, id := range []string{"far", "near", "mid"} {
		_, err := st.Add(ctx, testRecord(id, record.EventCasual, 5, now))
		require.NoError(t, err)
	}
	st.SetSimilarity("near", 0.95)
	st.SetSimilarity("mid", 0.6)
	st.SetSimilarity("far", 0.2)

	results, err := st.Query(ctx, store.Query{Text: "anything", Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "near", results[0].Record.ID)
	assert.Equal(t, "mid", results[1].Record.ID)
	assert.Equal(t, "far", results[2].Record.ID)

	sim, ok := results[0].Similarity()
	assert.True(t, ok)
	assert.InDelta(t, 0.95, sim, 0.0001)
}

func TestMockStore_DeleteAndUpdateMetadata(t *testing.T) {
	st := NewMockStore()
	ctx := testContext("npc-1")
	now := time.Now().UTC()

	_, err := st.Add(ctx, testRecord("r1", record.EventPromiseMade, 7, now))
	require.NoError(t, err)

	require.NoError(t, st.UpdateMetadata(ctx, "r1", store.MetadataPatch{
		SupersededBy: "r2",
		SupersededAt: now,
	}))
	results, err := st.Query(ctx, store.Query{Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "r2", results[0].Record.SupersededBy)

	require.NoError(t, st.Delete(ctx, "r1"))
	assert.True(t, errors.Is(st.Delete(ctx, "r1"), errors.ErrNotFound))
	assert.True(t, errors.Is(st.UpdateMetadata(ctx, "r1", store.MetadataPatch{SupersededBy: "x"}), errors.ErrNotFound))
}

func TestMockStore_FailureInjection(t *testing.T) {
	st := NewMockStore()
	ctx := testContext("npc-1")

	st.SetFailing(true)
	_, err := st.Add(ctx, testRecord("r1", record.EventCasual, 3, time.Now()))
	assert.True(t, errors.Is(err, errors.ErrStoreUnavailable))

	st.SetFailing(false)
	_, err = st.Add(ctx, testRecord("r1", record.EventCasual, 3, time.Now()))
	assert.NoError(t, err)
}

func TestMockStore_ListCollections(t *testing.T) {
	st := NewMockStore()
	now := time.Now().UTC()

	_, err := st.Add(testContext("guard"), testRecord("r1", record.EventCasual, 3, now))
	require.NoError(t, err)
	_, err = st.Add(testContext("innkeeper"), testRecord("r2", record.EventCasual, 3, now))
	require.NoError(t, err)

	names, err := st.ListCollections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"npc-guard", "npc-innkeeper"}, names)
}
