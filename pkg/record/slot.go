package record

// SlotType identifies an identity-fact category with exactly one current
// live value per NPC, e.g. the name the NPC knows the player by.
type SlotType string

// The closed slot vocabulary.
const (
	SlotPlayerName       SlotType = "player_name"
	SlotPlayerAllegiance SlotType = "player_allegiance"
	SlotPlayerTitle      SlotType = "player_title"
	SlotNPCDeathStatus   SlotType = "npc_death_status"
)

var knownSlotTypes = map[SlotType]bool{
	SlotPlayerName:       true,
	SlotPlayerAllegiance: true,
	SlotPlayerTitle:      true,
	SlotNPCDeathStatus:   true,
}

// KnownSlotType reports whether s is in the closed slot vocabulary.
func KnownSlotType(s string) bool {
	return knownSlotTypes[SlotType(s)]
}

// ProtectedSlots is the default allow-list of slots the collector always
// fetches directly, regardless of the query.
func ProtectedSlots() []SlotType {
	return []SlotType{SlotPlayerName, SlotNPCDeathStatus}
}
