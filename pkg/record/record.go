package record

import (
	"time"

	"github.com/veilbrook/npcmem/pkg/npc"
)

// Tier is a coarse classification of a memory's narrative weight.
// It influences scoring but never guarantees inclusion.
type Tier int

const (
	// TierPinned marks near-mandatory memories (identity facts, pivotal events)
	TierPinned Tier = iota

	// TierImportant marks significant but replaceable memories
	TierImportant

	// TierRegular marks everyday memories
	TierRegular
)

// String returns the canonical name of the tier.
func (t Tier) String() string {
	switch t {
	case TierPinned:
		return "pinned"
	case TierImportant:
		return "important"
	case TierRegular:
		return "regular"
	default:
		return "regular"
	}
}

// TierFromInt maps a stored integer to a Tier, defaulting to TierRegular
// for out-of-range values.
func TierFromInt(i int) Tier {
	if i < int(TierPinned) || i > int(TierRegular) {
		return TierRegular
	}
	return Tier(i)
}

// MemoryRecord is a single stored observation, written from the NPC's
// perspective in first person.
type MemoryRecord struct {
	// ID is a stable unique identifier for the record
	ID string

	// NPCID is the NPC that owns this memory
	NPCID npc.ID

	// TextFull is the complete narrative text
	TextFull string

	// TextShort is the compact summary derived once at write time.
	// It is never regenerated; representation stability across turns
	// depends on that.
	TextShort string

	// EventType tags the record with a closed-vocabulary event kind
	EventType EventType

	// SlotType, when non-empty, marks this record as the single current
	// value of an identity fact. Mutually exclusive with supersession
	// chain participation.
	SlotType SlotType

	// Importance is 1-10, assigned at write time and never renormalized
	Importance int

	// Tier classifies narrative weight
	Tier Tier

	// Timestamp is the creation time. A zero value means the record is
	// malformed; scoring treats it as "now".
	Timestamp time.Time

	// SupersededBy holds the id of a later record that narratively
	// overrides this one. The record is retained, not deleted.
	SupersededBy string

	// SupersededAt is when the supersession was applied
	SupersededAt time.Time
}

// Superseded reports whether a later record overrides this one.
func (r MemoryRecord) Superseded() bool {
	return r.SupersededBy != ""
}

// IsSlot reports whether the record is an identity-fact slot value.
func (r MemoryRecord) IsSlot() bool {
	return r.SlotType != ""
}

// ClampImportance forces an importance value into the valid [1,10] range.
func ClampImportance(v int) int {
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}
