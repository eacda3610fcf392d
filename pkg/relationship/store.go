package relationship

import (
	"context"
	"sync"

	"github.com/veilbrook/npcmem/pkg/npc"
)

// StateStore persists relationship state per NPC. The engine reads it to
// synthesize the protected header and writes back clamped post-turn
// state.
type StateStore interface {
	// Get returns the state for an NPC. An NPC that has never been met
	// yields the zero state, not an error.
	Get(ctx context.Context, id npc.ID) (State, error)

	// Put stores the state for an NPC.
	Put(ctx context.Context, id npc.ID, s State) error
}

// MemoryStateStore is an in-memory StateStore for tests and demos.
type MemoryStateStore struct {
	states map[npc.ID]State
	mutex  sync.RWMutex
}

// NewMemoryStateStore creates an empty in-memory state store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[npc.ID]State)}
}

// Get implements StateStore.
func (m *MemoryStateStore) Get(ctx context.Context, id npc.ID) (State, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.states[id], nil
}

// Put implements StateStore.
func (m *MemoryStateStore) Put(ctx context.Context, id npc.ID, s State) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.states[id] = s
	return nil
}
