package recall

import (
	"context"
	stderrors "errors"

	"github.com/veilbrook/npcmem/pkg/log"
	"github.com/veilbrook/npcmem/pkg/record"
	"github.com/veilbrook/npcmem/pkg/scripting"
)

// resolveImportanceFuncName is the name of the Lua hook consulted when
// an interaction's importance is resolved.
const resolveImportanceFuncName = "resolve_importance"

// resolveImportance gives a loaded Lua script the chance to override
// the importance of an event. The hook receives the event type and the
// table default and returns the importance to use; a missing hook or a
// hook error keeps the default so scripting problems never block a
// write.
func (e *Engine) resolveImportance(ctx context.Context, et record.EventType, def int) int {
	if e.scripting == nil {
		return def
	}

	result, err := e.scripting.ExecuteFunction(ctx, resolveImportanceFuncName, string(et), def)
	if err != nil {
		if stderrors.Is(err, scripting.ErrFunctionNotFound) {
			return def
		}
		log.WarnContext(ctx, "Error calling Lua hook",
			"hook", resolveImportanceFuncName,
			"event_type", et,
			"error", err)
		return def
	}

	value, ok := result.(float64)
	if !ok {
		return def
	}
	return record.ClampImportance(int(value))
}
