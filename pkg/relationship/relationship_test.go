package relationship

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelta_ClampPerTurn(t *testing.T) {
	cfg := DefaultClampConfig()

	d := Delta{Trust: 40, Affection: -99, Fear: 15, Respect: -15, Familiarity: 3}
	clamped := d.Clamp(cfg)

	assert.Equal(t, 15.0, clamped.Trust)
	assert.Equal(t, -15.0, clamped.Affection)
	assert.Equal(t, 15.0, clamped.Fear)
	assert.Equal(t, -15.0, clamped.Respect)
	assert.Equal(t, 3.0, clamped.Familiarity)
}

func TestState_ApplyBoundsDimensions(t *testing.T) {
	cfg := DefaultClampConfig()

	s := State{Trust: 95, Affection: -95}
	s = s.Apply(Delta{Trust: 15, Affection: -15}, cfg)

	assert.Equal(t, 100.0, s.Trust)
	assert.Equal(t, -100.0, s.Affection)
}

func TestState_ApplyClampsBeforeAdding(t *testing.T) {
	cfg := DefaultClampConfig()

	s := State{}.Apply(Delta{Trust: 500}, cfg)
	assert.Equal(t, 15.0, s.Trust)
}

func TestState_DaysKnown(t *testing.T) {
	now := time.Now().UTC()

	var s State
	assert.False(t, s.HasMet())
	assert.Equal(t, 0, s.DaysKnown(now))

	met := now.Add(-10*24*time.Hour - time.Hour)
	s.FirstMet = &met
	assert.True(t, s.HasMet())
	assert.Equal(t, 10, s.DaysKnown(now))

	future := now.Add(24 * time.Hour)
	s.FirstMet = &future
	assert.Equal(t, 0, s.DaysKnown(now))
}

func TestStatusLabel(t *testing.T) {
	b := DefaultBands()

	tests := []struct {
		trust     float64
		affection float64
		expected  string
	}{
		{5, -30, StatusHostile},
		{5, 0, StatusDistrustful},
		{19, 10, StatusDistrustful},
		{20, 0, StatusWary},
		{39, 0, StatusWary},
		{40, 0, StatusNeutral},
		{59, 0, StatusNeutral},
		{60, 0, StatusFriendly},
		{79, 0, StatusFriendly},
		{80, 0, StatusTrusted},
		{100, 50, StatusTrusted},
		{80, 51, StatusTrustedAlly},
		{100, 100, StatusTrustedAlly},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("trust=%.0f affection=%.0f", tt.trust, tt.affection), func(t *testing.T) {
			s := State{Trust: tt.trust, Affection: tt.affection}
			assert.Equal(t, tt.expected, StatusLabel(s, b))
		})
	}
}

func TestHeader_NeverMet(t *testing.T) {
	now := time.Now().UTC()
	h := Header(State{}, DefaultHeaderConfig(), now)

	assert.Equal(t,
		"[relationship] met=no days_known=0 trust=0 affection=0 fear=0 respect=0 familiarity=0 status=distrustful",
		h)
}

func TestHeader_EstablishedRelationship(t *testing.T) {
	now := time.Now().UTC()
	met := now.Add(-3 * 24 * time.Hour)
	s := State{
		Trust:       72,
		Affection:   31,
		Fear:        4,
		Respect:     55,
		Familiarity: 40,
		FirstMet:    &met,
	}

	h := Header(s, DefaultHeaderConfig(), now)

	assert.Equal(t,
		"[relationship] met=yes days_known=3 trust=72 affection=31 fear=4 respect=55 familiarity=40 status=friendly",
		h)
}

func TestMemoryStateStore_ZeroStateForUnknownNPC(t *testing.T) {
	st := NewMemoryStateStore()

	s, err := st.Get(context.Background(), "stranger")
	require.NoError(t, err)
	assert.Equal(t, State{}, s)
}

func TestMemoryStateStore_RoundTrip(t *testing.T) {
	st := NewMemoryStateStore()
	ctx := context.Background()
	now := time.Now().UTC()

	in := State{Trust: 30, Fear: 10, FirstMet: &now, InteractionCount: 4}
	require.NoError(t, st.Put(ctx, "innkeeper", in))

	out, err := st.Get(ctx, "innkeeper")
	require.NoError(t, err)
	assert.Equal(t, in, out)

	// Other NPCs stay isolated
	other, err := st.Get(ctx, "guard")
	require.NoError(t, err)
	assert.Equal(t, State{}, other)
}
