package brain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrBackendUnavailable is matched by every *UnavailableError.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrBackendProtocol is matched by every *ProtocolError.
	ErrBackendProtocol = errors.New("backend protocol error")
	// ErrNoProvider is returned by New when no API key is configured.
	ErrNoProvider = errors.New("no generation provider configured")
)

// UnavailableError reports a transport, API or timeout failure.
type UnavailableError struct {
	Provider string
	Err      error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: backend unavailable: %v", e.Provider, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool { return target == ErrBackendUnavailable }

// ProtocolError reports a reply that could not be understood.
type ProtocolError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: malformed reply: %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: malformed reply: %s", e.Provider, e.Reason)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

func (e *ProtocolError) Is(target error) bool { return target == ErrBackendProtocol }

// callContext bounds one backend call by timeout.
func callContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// sendError classifies a failed call. Cancellation by the caller is passed
// through untouched; everything else, including the per-call timeout, is an
// *UnavailableError.
func sendError(parent context.Context, provider string, err error) error {
	if ctxErr := parent.Err(); ctxErr != nil {
		return ctxErr
	}
	return &UnavailableError{Provider: provider, Err: err}
}
