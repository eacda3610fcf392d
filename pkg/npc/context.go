package npc

import (
	"context"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey int

const (
	// npcContextKey is the key for storing an npc.Context in a context.Context
	npcContextKey contextKey = iota
)

// ContextWithID adds an NPC ID to a context.Context.
func ContextWithID(ctx context.Context, npcID ID) context.Context {
	return context.WithValue(ctx, npcContextKey, Context{NPCID: npcID})
}

// ContextWith adds a full npc.Context to a context.Context.
func ContextWith(ctx context.Context, npcCtx Context) context.Context {
	return context.WithValue(ctx, npcContextKey, npcCtx)
}

// FromContext retrieves the npc.Context from a context.Context.
// If no npc.Context is found, it returns a zero-valued npc.Context and false.
func FromContext(ctx context.Context) (Context, bool) {
	npcCtx, ok := ctx.Value(npcContextKey).(Context)
	return npcCtx, ok
}

// MustFromContext retrieves the npc.Context from a context.Context.
// Panics if no npc.Context is found, so only use when you are sure one exists.
func MustFromContext(ctx context.Context) Context {
	npcCtx, ok := FromContext(ctx)
	if !ok {
		panic("npc.Context not found in context.Context")
	}
	return npcCtx
}
