package collect

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veilbrook/npcmem/pkg/mem/store/adapters/mock"
	"github.com/veilbrook/npcmem/pkg/npc"
	"github.com/veilbrook/npcmem/pkg/record"
)

const testNPC = npc.ID("guard-captain")

func testContext() context.Context {
	return npc.ContextWithID(context.Background(), testNPC)
}

func addRecord(t *testing.T, st *mock.MockStore, rec record.MemoryRecord) {
	t.Helper()
	_, err := st.Add(testContext(), rec)
	require.NoError(t, err)
}

func slotRecord(id string, slot record.SlotType, text string, ts time.Time) record.MemoryRecord {
	return record.MemoryRecord{
		ID:         id,
		NPCID:      testNPC,
		TextFull:   text,
		TextShort:  text,
		EventType:  record.EventCasual,
		SlotType:   slot,
		Importance: 5,
		Tier:       record.TierPinned,
		Timestamp:  ts,
	}
}

func eventRecord(id string, et record.EventType, importance int, ts time.Time) record.MemoryRecord {
	return record.MemoryRecord{
		ID:         id,
		NPCID:      testNPC,
		TextFull:   fmt.Sprintf("memory of %s (%s)", et, id),
		TextShort:  fmt.Sprintf("short %s", id),
		EventType:  et,
		Importance: importance,
		Tier:       record.DefaultTier(et),
		Timestamp:  ts,
	}
}

func TestCollect_ProtectedSlotsAlwaysFetched(t *testing.T) {
	st := mock.NewMockStore()
	now := time.Now().UTC()

	addRecord(t, st, slotRecord("name", record.SlotPlayerName, "The player is called Aldric.", now.Add(-30*24*time.Hour)))
	addRecord(t, st, slotRecord("death", record.SlotNPCDeathStatus, "You watched the player die once.", now.Add(-60*24*time.Hour)))

	c := NewCollector(st, DefaultConfig())
	candidates := c.Collect(testContext(), "", nil, now)

	require.Len(t, candidates, 2)
	for _, cand := range candidates {
		assert.True(t, cand.Protected)
		assert.Nil(t, cand.Similarity)
	}
}

func TestCollect_HighSignalWindowExcludesOldEvents(t *testing.T) {
	st := mock.NewMockStore()
	now := time.Now().UTC()

	addRecord(t, st, eventRecord("recent", record.EventBetrayal, 10, now.Add(-2*24*time.Hour)))
	addRecord(t, st, eventRecord("stale", record.EventBetrayal, 10, now.Add(-20*24*time.Hour)))

	c := NewCollector(st, DefaultConfig())
	candidates := c.Collect(testContext(), "", nil, now)

	require.Len(t, candidates, 1)
	assert.Equal(t, "recent", candidates[0].Record.ID)
	assert.False(t, candidates[0].Protected)
}

func TestCollect_HighSignalCappedPerType(t *testing.T) {
	st := mock.NewMockStore()
	now := time.Now().UTC()

	for i := 0; i < 25; i++ {
		addRecord(t, st, eventRecord(
			fmt.Sprintf("promise-%d", i), record.EventPromiseMade, 7,
			now.Add(-time.Duration(i)*time.Hour)))
	}

	cfg := DefaultConfig()
	c := NewCollector(st, cfg)
	candidates := c.Collect(testContext(), "", nil, now)

	assert.Len(t, candidates, cfg.HighSignalLimitPerType)
}

func TestCollect_SemanticSourceRespectsImportanceFloor(t *testing.T) {
	st := mock.NewMockStore()
	now := time.Now().UTC()

	addRecord(t, st, eventRecord("important", record.EventCasual, 6, now.Add(-time.Hour)))
	addRecord(t, st, eventRecord("trivial", record.EventCasual, 2, now.Add(-time.Hour)))
	st.SetSimilarity("important", 0.9)
	st.SetSimilarity("trivial", 0.95)

	c := NewCollector(st, DefaultConfig())
	candidates := c.Collect(testContext(), "the siege of the keep", nil, now)

	require.Len(t, candidates, 1)
	assert.Equal(t, "important", candidates[0].Record.ID)
	require.NotNil(t, candidates[0].Similarity)
	assert.InDelta(t, 0.9, *candidates[0].Similarity, 0.0001)
}

func TestCollect_NoQueryMeansNoSemanticSource(t *testing.T) {
	st := mock.NewMockStore()
	now := time.Now().UTC()

	addRecord(t, st, eventRecord("r1", record.EventCasual, 8, now.Add(-time.Hour)))
	st.SetSimilarity("r1", 0.99)

	c := NewCollector(st, DefaultConfig())
	candidates := c.Collect(testContext(), "", nil, now)

	assert.Empty(t, candidates)
}

func TestCollect_DedupProtectedWins(t *testing.T) {
	st := mock.NewMockStore()
	now := time.Now().UTC()

	// A protected slot record that also surfaces in the semantic source
	rec := slotRecord("name", record.SlotPlayerName, "The player is called Aldric.", now.Add(-time.Hour))
	rec.Importance = 8
	addRecord(t, st, rec)
	st.SetSimilarity("name", 0.92)

	c := NewCollector(st, DefaultConfig())
	candidates := c.Collect(testContext(), "who am I", nil, now)

	require.Len(t, candidates, 1)
	assert.True(t, candidates[0].Protected)
	require.NotNil(t, candidates[0].Similarity)
	assert.InDelta(t, 0.92, *candidates[0].Similarity, 0.0001)
}

func TestCollect_DedupAcrossEventAndSemanticSources(t *testing.T) {
	st := mock.NewMockStore()
	now := time.Now().UTC()

	addRecord(t, st, eventRecord("betrayal", record.EventBetrayal, 10, now.Add(-24*time.Hour)))
	st.SetSimilarity("betrayal", 0.88)

	c := NewCollector(st, DefaultConfig())
	candidates := c.Collect(testContext(), "that night at the bridge", nil, now)

	require.Len(t, candidates, 1)
	assert.False(t, candidates[0].Protected)
	require.NotNil(t, candidates[0].Similarity, "similarity from the semantic source should survive the merge")
}

func TestCollect_StoreFailureDegradesToEmpty(t *testing.T) {
	st := mock.NewMockStore()
	now := time.Now().UTC()

	addRecord(t, st, eventRecord("r1", record.EventBetrayal, 10, now.Add(-time.Hour)))
	st.SetFailing(true)

	c := NewCollector(st, DefaultConfig())
	candidates := c.Collect(testContext(), "anything", nil, now)

	assert.Empty(t, candidates)
}

func TestCollect_BoundedTotalFanOut(t *testing.T) {
	st := mock.NewMockStore()
	now := time.Now().UTC()
	cfg := DefaultConfig()

	// Saturate every source
	for _, slot := range cfg.ProtectedSlots {
		addRecord(t, st, slotRecord("slot-"+string(slot), slot, "slot fact", now))
	}
	for _, et := range cfg.HighSignalEvents {
		for i := 0; i < cfg.HighSignalLimitPerType+5; i++ {
			addRecord(t, st, eventRecord(fmt.Sprintf("%s-%d", et, i), et, 9, now.Add(-time.Duration(i)*time.Minute)))
		}
	}
	for i := 0; i < cfg.SemanticTopK+10; i++ {
		id := fmt.Sprintf("sem-%d", i)
		addRecord(t, st, eventRecord(id, record.EventCasual, 8, now.Add(-time.Duration(i)*time.Minute)))
		st.SetSimilarity(id, 0.9)
	}

	c := NewCollector(st, cfg)
	candidates := c.Collect(testContext(), "busy day in town", nil, now)

	bound := len(cfg.ProtectedSlots) +
		len(cfg.HighSignalEvents)*cfg.HighSignalLimitPerType +
		cfg.SemanticTopK
	assert.LessOrEqual(t, len(candidates), bound)
	assert.NotEmpty(t, candidates)
}
