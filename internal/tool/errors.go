package tool

import (
	"errors"
	"fmt"
)

// ErrDuplicateTool is matched by every *DuplicateToolError.
var ErrDuplicateTool = errors.New("tool already registered")

// DuplicateToolError is returned by Register when the name is taken.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool %q already registered", e.Name)
}

func (e *DuplicateToolError) Is(target error) bool { return target == ErrDuplicateTool }

// UnknownToolError is returned by Invoke for a name nobody registered.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

// InvalidArgumentsError reports arguments that do not satisfy the descriptor.
type InvalidArgumentsError struct {
	Tool   string
	Reason string
}

func (e *InvalidArgumentsError) Error() string {
	if e.Tool == "" {
		return "invalid arguments: " + e.Reason
	}
	return fmt.Sprintf("invalid arguments for %q: %s", e.Tool, e.Reason)
}

// ExecutionError wraps a failure raised by the handler itself.
type ExecutionError struct {
	Tool string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tool %q failed: %v", e.Tool, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
