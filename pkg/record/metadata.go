package record

import (
	"strconv"
	"time"

	"github.com/veilbrook/npcmem/pkg/npc"
)

// Metadata keys shared by every store adapter. The vector backend keeps
// the full text as the embedded document and everything else here.
const (
	MetaEventType    = "event_type"
	MetaSlotType     = "slot_type"
	MetaImportance   = "importance"
	MetaTier         = "memory_tier"
	MetaTimestamp    = "timestamp"
	MetaSupersededBy = "superseded_by"
	MetaSupersededAt = "superseded_at"
	MetaTextShort    = "text_short"
)

// EncodeMetadata flattens a record into the string metadata map the store
// backends persist alongside the full text.
func EncodeMetadata(r MemoryRecord) map[string]string {
	m := map[string]string{
		MetaEventType:  string(r.EventType),
		MetaImportance: strconv.Itoa(r.Importance),
		MetaTier:       strconv.Itoa(int(r.Tier)),
		MetaTextShort:  r.TextShort,
	}
	if !r.Timestamp.IsZero() {
		m[MetaTimestamp] = strconv.FormatInt(r.Timestamp.Unix(), 10)
	}
	if r.SlotType != "" {
		m[MetaSlotType] = string(r.SlotType)
	}
	if r.SupersededBy != "" {
		m[MetaSupersededBy] = r.SupersededBy
		if !r.SupersededAt.IsZero() {
			m[MetaSupersededAt] = strconv.FormatInt(r.SupersededAt.Unix(), 10)
		}
	}
	return m
}

// DecodeMetadata rebuilds a record from an id, the stored full text, and
// the persisted metadata map. Malformed fields fall back to conservative
// defaults rather than failing: a record that lost its timestamp scores
// as if it were new, and an unknown event type decodes as casual.
func DecodeMetadata(id string, npcID npc.ID, textFull string, meta map[string]string) MemoryRecord {
	r := MemoryRecord{
		ID:        id,
		NPCID:     npcID,
		TextFull:  textFull,
		TextShort: meta[MetaTextShort],
		EventType: Normalize(meta[MetaEventType]),
	}
	if r.TextShort == "" {
		// Legacy records without a stored short form keep their full text
		// as the only representation.
		r.TextShort = ShortText(textFull)
	}

	if v, err := strconv.Atoi(meta[MetaImportance]); err == nil {
		r.Importance = ClampImportance(v)
	} else {
		r.Importance = DefaultImportance(r.EventType)
	}

	if v, err := strconv.Atoi(meta[MetaTier]); err == nil {
		r.Tier = TierFromInt(v)
	} else {
		r.Tier = DefaultTier(r.EventType)
	}

	if v, err := strconv.ParseInt(meta[MetaTimestamp], 10, 64); err == nil {
		r.Timestamp = time.Unix(v, 0).UTC()
	}

	if s, ok := meta[MetaSlotType]; ok && KnownSlotType(s) {
		r.SlotType = SlotType(s)
	}

	if by, ok := meta[MetaSupersededBy]; ok && by != "" {
		r.SupersededBy = by
		if v, err := strconv.ParseInt(meta[MetaSupersededAt], 10, 64); err == nil {
			r.SupersededAt = time.Unix(v, 0).UTC()
		}
	}

	return r
}
