package conflict

import (
	"context"
	"time"

	"github.com/veilbrook/npcmem/pkg/errors"
	"github.com/veilbrook/npcmem/pkg/log"
	"github.com/veilbrook/npcmem/pkg/mem/store"
	"github.com/veilbrook/npcmem/pkg/record"
)

// Config holds the conflict resolution rules.
type Config struct {
	// Chains maps a narrative event type to the one that supersedes it.
	// When a record of the value type is stored, every live record of
	// the key type gets its superseded_by mark. History is preserved.
	Chains map[record.EventType]record.EventType `yaml:"chains"`
}

// DefaultConfig returns the default supersession chains.
func DefaultConfig() Config {
	return Config{
		Chains: map[record.EventType]record.EventType{
			record.EventPromiseMade: record.EventPromiseBroken,
			record.EventThreatMade:  record.EventThreatCarriedOut,
		},
	}
}

// Resolver applies slot replacement and supersession chains at write
// time. Reads consult the result only through the superseded_by field,
// which the scoring function penalizes.
type Resolver struct {
	store store.Store
	cfg   Config

	// triggers is the inverted chain map: superseding type -> types it
	// supersedes
	triggers map[record.EventType][]record.EventType

	// participants is every event type appearing on either side of a
	// chain; such records may never carry a slot type
	participants map[record.EventType]bool
}

// NewResolver creates a Resolver over the given store.
func NewResolver(st store.Store, cfg Config) *Resolver {
	triggers := make(map[record.EventType][]record.EventType)
	participants := make(map[record.EventType]bool)
	for from, to := range cfg.Chains {
		triggers[to] = append(triggers[to], from)
		participants[from] = true
		participants[to] = true
	}
	return &Resolver{
		store:        st,
		cfg:          cfg,
		triggers:     triggers,
		participants: participants,
	}
}

// Validate rejects ambiguous records before any store side effect. A
// record is either a slot fact or a supersession-chain participant,
// never both; guessing the caller's intent is worse than refusing.
func (r *Resolver) Validate(rec record.MemoryRecord) error {
	if rec.IsSlot() && r.participants[rec.EventType] {
		return errors.Wrap(errors.ErrConflictingWrite,
			"slot %q with chained event type %q", rec.SlotType, rec.EventType)
	}
	return nil
}

// Apply runs both write-time mechanisms for a new record whose ID is
// already assigned. It must be called before the record itself is added,
// so slot replacement removes the old value first and supersession marks
// point at the incoming record.
func (r *Resolver) Apply(ctx context.Context, rec record.MemoryRecord, now time.Time) error {
	if err := r.Validate(rec); err != nil {
		return err
	}

	if rec.IsSlot() {
		return r.replaceSlot(ctx, rec)
	}
	return r.supersede(ctx, rec, now)
}

// replaceSlot deletes any existing live record holding the same slot.
// No history is retained for identity facts.
func (r *Resolver) replaceSlot(ctx context.Context, rec record.MemoryRecord) error {
	existing, err := r.store.Query(ctx, store.Query{
		SlotType: rec.SlotType,
		Limit:    8,
	})
	if err != nil {
		return errors.Wrap(err, "slot lookup for %q failed", rec.SlotType)
	}

	for _, res := range existing {
		if res.Record.ID == rec.ID {
			continue
		}
		if err := r.store.Delete(ctx, res.Record.ID); err != nil {
			return errors.Wrap(err, "failed to replace slot %q", rec.SlotType)
		}
		log.DebugContext(ctx, "Replaced slot record",
			"slot_type", rec.SlotType,
			"old_id", res.Record.ID,
			"new_id", rec.ID,
		)
	}
	return nil
}

// supersedeBatch is the starting fetch size for the supersession
// lookup. The write path must see every live record of the chained-from
// types, so the query grows until the store returns fewer rows than
// asked for.
const supersedeBatch = 32

// supersede marks every live record of a chained-from type as overridden
// by the incoming record. Finding nothing is the common first-occurrence
// case, not an error.
func (r *Resolver) supersede(ctx context.Context, rec record.MemoryRecord, now time.Time) error {
	from, ok := r.triggers[rec.EventType]
	if !ok {
		return nil
	}

	var existing []store.Result
	for limit := supersedeBatch; ; limit *= 2 {
		var err error
		existing, err = r.store.Query(ctx, store.Query{
			EventTypes: from,
			Limit:      limit,
		})
		if err != nil {
			return errors.Wrap(err, "supersession lookup for %q failed", rec.EventType)
		}
		if len(existing) < limit {
			break
		}
	}

	for _, res := range existing {
		if res.Record.Superseded() {
			continue
		}
		err := r.store.UpdateMetadata(ctx, res.Record.ID, store.MetadataPatch{
			SupersededBy: rec.ID,
			SupersededAt: now,
		})
		if err != nil {
			return errors.Wrap(err, "failed to supersede record %s", res.Record.ID)
		}
		log.DebugContext(ctx, "Superseded record",
			"old_id", res.Record.ID,
			"old_event_type", res.Record.EventType,
			"new_id", rec.ID,
			"new_event_type", rec.EventType,
		)
	}
	return nil
}
