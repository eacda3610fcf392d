package recall

import (
	"context"
	"fmt"
	"strings"

	"github.com/veilbrook/npcmem/pkg/dialogue"
	"github.com/veilbrook/npcmem/pkg/errors"
	"github.com/veilbrook/npcmem/pkg/log"
	"github.com/veilbrook/npcmem/pkg/npc"
)

// Converse runs one full dialogue turn: select memories, compose the
// prompt, call the dialogue engine, then fold the returned analysis
// back into memory and relationship state. Memory write failures after
// a successful model call are logged, not returned; the player already
// heard the line.
func (e *Engine) Converse(ctx context.Context, npcID npc.ID, playerLine string, tokenBudget int, opts ...dialogue.Option) (dialogue.Reply, error) {
	if e.dialogue == nil {
		return dialogue.Reply{}, errors.Wrap(errors.ErrInvalidInput, "no dialogue engine configured")
	}
	if playerLine == "" {
		return dialogue.Reply{}, errors.Wrap(errors.ErrInvalidInput, "player line is required")
	}

	if _, ok := npc.FromContext(ctx); !ok {
		ctx = npc.ContextWithID(ctx, npcID)
	}

	selection, err := e.Select(ctx, npcID, playerLine, tokenBudget)
	if err != nil {
		return dialogue.Reply{}, err
	}

	prompt := composePrompt(selection, playerLine)

	reply, err := e.dialogue.Converse(ctx, prompt, opts...)
	if err != nil {
		log.ErrorContext(ctx, "Dialogue engine failed", "npc_id", npcID, "error", err)
		return dialogue.Reply{}, err
	}

	eventType, delta := dialogue.Ingest(reply.Analysis, e.clamp)

	if _, err := e.RecordInteraction(ctx, npcID, Interaction{
		Text:      fmt.Sprintf("Player said: %q. You replied: %q.", playerLine, reply.Text),
		EventType: eventType,
	}); err != nil {
		log.ErrorContext(ctx, "Failed to record interaction after reply",
			"npc_id", npcID, "error", err)
	}

	if _, err := e.ApplyDelta(ctx, npcID, delta); err != nil {
		log.ErrorContext(ctx, "Failed to apply relationship delta",
			"npc_id", npcID, "error", err)
	}

	return reply, nil
}

// composePrompt renders a selection into the model prompt for one turn.
func composePrompt(sel Selection, playerLine string) string {
	var b strings.Builder
	b.WriteString("You are an NPC in conversation with a player. ")
	b.WriteString("What follows is everything you remember about them, most important first.\n\n")
	for _, entry := range sel.Entries {
		b.WriteString("- ")
		b.WriteString(entry.Text)
		b.WriteString("\n")
	}
	b.WriteString("\nThe player says: ")
	b.WriteString(playerLine)
	b.WriteString("\nRespond in character.")
	return b.String()
}
