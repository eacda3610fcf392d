package errors

import (
	"errors"
	"fmt"
)

// Standard errors
var (
	// ErrNotFound is returned when a requested record is not found
	ErrNotFound = errors.New("record not found")

	// ErrInvalidInput is returned when the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrStoreUnavailable is returned when the memory store cannot be reached
	ErrStoreUnavailable = errors.New("memory store unavailable")

	// ErrConflictingWrite is returned when a record carries both a slot type
	// and a supersession-participating event type
	ErrConflictingWrite = errors.New("record mixes slot fact and supersession chain")

	// ErrMissingNPCContext is returned when an operation requires an NPC
	// context and none is present on the context.Context
	ErrMissingNPCContext = errors.New("missing NPC context")

	// ErrLuaExecution is returned when there's an error executing a Lua hook
	ErrLuaExecution = errors.New("lua script execution error")
)

// Wrap wraps an error with additional context
func Wrap(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's tree matches target.
// This is a convenience function that wraps errors.Is
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target, and if so, sets
// target to that error value and returns true. Otherwise, it returns false.
// This is a convenience function that wraps errors.As
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
