package boltstore

import (
	"context"
	"encoding/json"

	bolt "go.etcd.io/bbolt"

	"github.com/veilbrook/npcmem/pkg/errors"
	"github.com/veilbrook/npcmem/pkg/log"
	"github.com/veilbrook/npcmem/pkg/npc"
	"github.com/veilbrook/npcmem/pkg/relationship"
)

var relationshipsBucket = []byte("relationships")

// BoltStateStore implements relationship.StateStore using a BoltDB
// database. One bucket, one key per NPC, JSON-encoded state.
type BoltStateStore struct {
	db *bolt.DB
}

// NewBoltStateStore creates a new BoltStateStore with the given database
// connection.
func NewBoltStateStore(db *bolt.DB) *BoltStateStore {
	s := &BoltStateStore{db: db}

	log.Debug("Initialized BoltDB relationship state store",
		"db_path", db.Path(),
		"read_only", db.IsReadOnly(),
	)

	return s
}

// Initialize creates the required bucket if it doesn't exist. Called
// internally by Put, but can be called explicitly at startup.
func (s *BoltStateStore) Initialize(ctx context.Context) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(relationshipsBucket)
		return err
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize relationship bucket", "error", err)
		return errors.Wrap(errors.ErrStoreUnavailable, "%v", err)
	}
	return nil
}

// Get implements relationship.StateStore. An NPC with no stored state
// yields the zero state.
func (s *BoltStateStore) Get(ctx context.Context, id npc.ID) (relationship.State, error) {
	var state relationship.State

	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(relationshipsBucket)
		if bucket == nil {
			return nil
		}
		data := bucket.Get([]byte(id))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &state)
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to read relationship state",
			"npc_id", id,
			"error", err,
		)
		return relationship.State{}, errors.Wrap(err, "failed to read relationship state for %s", id)
	}

	return state, nil
}

// Put implements relationship.StateStore.
func (s *BoltStateStore) Put(ctx context.Context, id npc.ID, state relationship.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return errors.Wrap(err, "failed to marshal relationship state")
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(relationshipsBucket)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(id), data)
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to write relationship state",
			"npc_id", id,
			"error", err,
		)
		return errors.Wrap(err, "failed to write relationship state for %s", id)
	}

	log.DebugContext(ctx, "Stored relationship state", "npc_id", id)
	return nil
}
