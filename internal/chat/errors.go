package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrToolCallLoopExceeded is matched by every *LoopExceededError.
	ErrToolCallLoopExceeded = errors.New("tool call loop exceeded")
	// ErrRateLimited is returned by Ask when the conversation sends faster
	// than the configured rate.
	ErrRateLimited = errors.New("rate limited")
)

// LoopExceededError aborts a chain whose backend kept requesting tools for
// MaxRounds rounds.
type LoopExceededError struct {
	MaxRounds int
}

func (e *LoopExceededError) Error() string {
	return fmt.Sprintf("tool call loop exceeded: still calling tools after %d rounds", e.MaxRounds)
}

func (e *LoopExceededError) Is(target error) bool { return target == ErrToolCallLoopExceeded }
