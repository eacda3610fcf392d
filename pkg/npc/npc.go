package npc

// ID represents a unique identifier for an NPC.
// Each NPC has its own isolated memory collection.
type ID string

// Context holds information about the current conversation scope.
type Context struct {
	// NPCID is mandatory and determines the memory isolation boundary
	NPCID ID

	// PlayerID is optional and identifies the player the NPC is talking to
	PlayerID string
}

// NewContext creates a new Context with the specified NPC ID and optional player ID.
func NewContext(npcID ID, playerID string) Context {
	return Context{
		NPCID:    npcID,
		PlayerID: playerID,
	}
}

// Collection returns the logical store collection name for this NPC.
// Every store adapter derives its namespace from this.
func (c Context) Collection() string {
	return "npc-" + string(c.NPCID)
}
