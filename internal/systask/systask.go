// Package systask guards the process-wide system task: a one-shot handle
// that must be activated before any scheduling work starts. Double
// activation is a programming error and fails loudly.
package systask

import (
	"errors"
	"log/slog"
	"sync"
)

// ErrAlreadyActivated is returned by Activate when the system task handle is
// already held somewhere in the process.
var ErrAlreadyActivated = errors.New("systask: already activated")

// Handle represents the activated system task. It is valid until Finalize.
type Handle struct {
	name string
}

// Name returns the label the handle was activated under.
func (h *Handle) Name() string { return h.name }

var (
	mu      sync.Mutex
	current *Handle
)

// Activate claims the process-wide system task. Exactly one activation may
// be live at a time; a second call fails with ErrAlreadyActivated until
// Finalize releases the first.
func Activate(name string) (*Handle, error) {
	mu.Lock()
	defer mu.Unlock()
	if current != nil {
		slog.Warn("[SYSTASK] double activation rejected", "held_by", current.name, "requested_by", name)
		return nil, ErrAlreadyActivated
	}
	current = &Handle{name: name}
	slog.Debug("[SYSTASK] activated", "name", name)
	return current, nil
}

// Finalize releases the handle and resets the one-shot flag, permitting a
// clean reactivation. Finalizing a stale handle is a no-op.
func Finalize(h *Handle) {
	if h == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	if current != h {
		return
	}
	current = nil
	slog.Debug("[SYSTASK] finalized", "name", h.name)
}
