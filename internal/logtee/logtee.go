// Package logtee wraps an slog.Handler so that records at or above a
// threshold are also captured into a bounded diagnostics ring. The CLI
// prints the ring next to the progress stream after a failed build.
package logtee

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"sync"
	"time"
)

// Entry is one captured log record.
type Entry struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Group   string
}

// Ring is a fixed-capacity buffer of the most recent captured entries.
// Safe for concurrent use.
type Ring struct {
	mu      sync.Mutex
	entries []Entry
	cap     int
}

// NewRing returns a ring holding at most capacity entries; older entries are
// evicted first.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 64
	}
	return &Ring{cap: capacity}
}

// Add appends an entry, evicting the oldest when full.
func (r *Ring) Add(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == r.cap {
		copy(r.entries, r.entries[1:])
		r.entries[len(r.entries)-1] = e
		return
	}
	r.entries = append(r.entries, e)
}

// Entries returns a copy of the captured entries, oldest first.
func (r *Ring) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Handler tees records to a Ring. All records flow to the base handler
// regardless of level; only the capture is gated by minLevel.
type Handler struct {
	base     slog.Handler
	ring     *Ring
	minLevel slog.Level
	group    string
}

// NewHandler wraps base, capturing records at or above minLevel into ring.
// A nil ring disables capture; the handler then only delegates.
func NewHandler(base slog.Handler, minLevel slog.Level, ring *Ring) *Handler {
	return &Handler{base: base, ring: ring, minLevel: minLevel}
}

// Enabled defers to the base handler; the capture threshold never hides a
// record from the base.
func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

// Handle forwards the record and then captures it when it meets the
// threshold. Capture happens even when the base handler fails: diagnostics
// must not depend on the sink being healthy.
func (h *Handler) Handle(ctx context.Context, record slog.Record) error {
	err := h.base.Handle(ctx, record)

	if h.ring != nil && record.Level >= h.minLevel {
		func() {
			defer func() {
				if r := recover(); r != nil {
					// Stderr, not slog: logging here would recurse into
					// this handler.
					fmt.Fprintf(os.Stderr, "[logtee] capture panicked: %v\n%s\n", r, debug.Stack())
				}
			}()
			h.ring.Add(Entry{
				Time:    record.Time,
				Level:   record.Level,
				Message: record.Message,
				Group:   h.group,
			})
		}()
	}
	return err
}

// WithAttrs applies attrs to the base handler, preserving ring, threshold
// and accumulated group.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	return &Handler{
		base:     h.base.WithAttrs(attrs),
		ring:     h.ring,
		minLevel: h.minLevel,
		group:    h.group,
	}
}

// WithGroup wraps the base with the group and appends it to the accumulated
// dot-separated group name captured with each entry.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	newGroup := name
	if h.group != "" {
		newGroup = h.group + "." + name
	}
	return &Handler{
		base:     h.base.WithGroup(name),
		ring:     h.ring,
		minLevel: h.minLevel,
		group:    newGroup,
	}
}
