package record

import "strings"

// EventType tags a memory with one of a closed vocabulary of event kinds.
// Free-form strings from the dialogue model never become EventTypes
// directly; Normalize maps anything unrecognized to EventCasual.
type EventType string

// The closed event vocabulary.
const (
	EventFirstMeeting     EventType = "first_meeting"
	EventCasual           EventType = "casual_conversation"
	EventQuestAccepted    EventType = "quest_accepted"
	EventQuestCompleted   EventType = "quest_completed"
	EventQuestFailed      EventType = "quest_failed"
	EventGiftReceived     EventType = "gift_received"
	EventBetrayal         EventType = "betrayal"
	EventLifeSaved        EventType = "life_saved"
	EventSecretRevealed   EventType = "secret_revealed"
	EventPromiseMade      EventType = "promise_made"
	EventPromiseBroken    EventType = "promise_broken"
	EventThreatMade       EventType = "threat_made"
	EventThreatCarriedOut EventType = "threat_carried_out"
	EventTradeCompleted   EventType = "trade_completed"
	EventInsult           EventType = "insult"
	EventCompliment       EventType = "compliment"
	EventFarewell         EventType = "farewell"
)

var knownEventTypes = map[EventType]bool{
	EventFirstMeeting:     true,
	EventCasual:           true,
	EventQuestAccepted:    true,
	EventQuestCompleted:   true,
	EventQuestFailed:      true,
	EventGiftReceived:     true,
	EventBetrayal:         true,
	EventLifeSaved:        true,
	EventSecretRevealed:   true,
	EventPromiseMade:      true,
	EventPromiseBroken:    true,
	EventThreatMade:       true,
	EventThreatCarriedOut: true,
	EventTradeCompleted:   true,
	EventInsult:           true,
	EventCompliment:       true,
	EventFarewell:         true,
}

// KnownEventType reports whether s is in the closed vocabulary.
func KnownEventType(s string) bool {
	return knownEventTypes[EventType(s)]
}

// Normalize maps an arbitrary classification string to the closed
// vocabulary. Unrecognized values become EventCasual; this is the
// validation boundary for model-proposed classifications.
func Normalize(s string) EventType {
	et := EventType(strings.ToLower(strings.TrimSpace(s)))
	if knownEventTypes[et] {
		return et
	}
	return EventCasual
}

// defaultImportance holds the static per-event-type importance table.
// Importance is resolved at write time from this table (optionally
// overridden by a scripting hook) and never renormalized afterwards.
var defaultImportance = map[EventType]int{
	EventFirstMeeting:     6,
	EventCasual:           2,
	EventQuestAccepted:    6,
	EventQuestCompleted:   8,
	EventQuestFailed:      7,
	EventGiftReceived:     5,
	EventBetrayal:         10,
	EventLifeSaved:        10,
	EventSecretRevealed:   8,
	EventPromiseMade:      7,
	EventPromiseBroken:    9,
	EventThreatMade:       7,
	EventThreatCarriedOut: 9,
	EventTradeCompleted:   3,
	EventInsult:           4,
	EventCompliment:       3,
	EventFarewell:         1,
}

// DefaultImportance returns the write-time importance for an event type.
func DefaultImportance(et EventType) int {
	if v, ok := defaultImportance[et]; ok {
		return v
	}
	return defaultImportance[EventCasual]
}

// DefaultTier classifies an event type's narrative weight. Slot records
// are always pinned regardless of this.
func DefaultTier(et EventType) Tier {
	switch et {
	case EventBetrayal, EventLifeSaved, EventFirstMeeting:
		return TierPinned
	case EventQuestAccepted, EventQuestCompleted, EventQuestFailed,
		EventSecretRevealed, EventPromiseMade, EventPromiseBroken,
		EventThreatMade, EventThreatCarriedOut:
		return TierImportant
	default:
		return TierRegular
	}
}
