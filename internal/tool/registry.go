// Package tool maps tool names to handlers and their declared parameters.
package tool

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

type entry struct {
	desc    Descriptor
	handler Handler
}

// Registry stores tools in registration order. It is safe for concurrent
// use; tools are expected to be registered once at startup.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]entry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds a tool. It fails with a *DuplicateToolError when the name is
// already in use.
func (r *Registry) Register(d Descriptor, h Handler) error {
	if d.Name == "" {
		return errors.New("tool name is empty")
	}
	if h == nil {
		return fmt.Errorf("tool %q: handler is nil", d.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[d.Name]; exists {
		return &DuplicateToolError{Name: d.Name}
	}
	r.entries[d.Name] = entry{desc: d.clone(), handler: h}
	r.order = append(r.order, d.Name)
	return nil
}

// MustRegister is Register for static wiring; it panics on error.
func (r *Registry) MustRegister(d Descriptor, h Handler) {
	if err := r.Register(d, h); err != nil {
		panic(err)
	}
}

// DescribeAll returns the descriptors in registration order.
func (r *Registry) DescribeAll() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].desc.clone())
	}
	return out
}

// Len reports how many tools are registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Invoke validates args against the tool's descriptor and calls its handler.
// Failures come back as *UnknownToolError, *InvalidArgumentsError or
// *ExecutionError; a panicking handler is reported as an *ExecutionError.
func (r *Registry) Invoke(ctx context.Context, name string, args Args) (result any, err error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, &UnknownToolError{Name: name}
	}
	if args == nil {
		args = Args{}
	}
	if err := validate(e.desc, args); err != nil {
		return nil, err
	}

	defer func() {
		if p := recover(); p != nil {
			result = nil
			err = &ExecutionError{Tool: name, Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	out, err := e.handler(ctx, args)
	if err != nil {
		var invalid *InvalidArgumentsError
		if errors.As(err, &invalid) {
			if invalid.Tool == "" {
				invalid.Tool = name
			}
			return nil, invalid
		}
		return nil, &ExecutionError{Tool: name, Err: err}
	}
	return out, nil
}
