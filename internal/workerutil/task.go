// Package workerutil spawns background tasks with panic recovery and exposes
// a handle the scheduling side can poll for completion.
package workerutil

import (
	"log/slog"
	"runtime/debug"
	"sync/atomic"
)

// Handle tracks one spawned task. The zero value is not useful; obtain
// handles from Spawn.
type Handle struct {
	name     string
	done     chan struct{}
	panicked atomic.Bool
}

// Finished reports whether the task has returned. Non-blocking: the
// scheduling side polls this during its synchronous passes.
func (h *Handle) Finished() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when the task finishes. For callers that
// want to block (tests, CLI drains) rather than poll.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Panicked reports whether the task terminated by panic rather than return.
func (h *Handle) Panicked() bool { return h.panicked.Load() }

// Spawn runs fn in a new goroutine. A panic in fn is recovered and logged
// with its stack; the task is never restarted. The handle is marked finished
// in either case.
//
// fn must report its own failures through its result channel or proxy; Spawn
// only guarantees that a panicking task cannot take the process down.
func Spawn(name string, fn func()) *Handle {
	h := &Handle{name: name, done: make(chan struct{})}
	go func() {
		defer close(h.done)
		defer func() {
			if r := recover(); r != nil {
				h.panicked.Store(true)
				slog.Error("[WORKER] task panicked",
					"task", name,
					"panic", r,
					"stack", string(debug.Stack()),
				)
			}
		}()
		slog.Debug("[WORKER] task started", "task", name)
		fn()
	}()
	return h
}
