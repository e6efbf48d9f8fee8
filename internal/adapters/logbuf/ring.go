// Package logbuf keeps the most recent log records in memory so the dashboard can
// show them. A Ring is created once by the process and handed to whoever needs it.
package logbuf

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultSize is used when NewRing gets a non-positive size.
const DefaultSize = 500

// Entry is one captured record.
type Entry struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

// Ring is a fixed-capacity buffer of log entries. The oldest entry is overwritten
// once the buffer is full.
type Ring struct {
	mu      sync.RWMutex
	entries []Entry
	next    int
	full    bool
}

// NewRing creates a ring holding at most size entries.
func NewRing(size int) *Ring {
	if size <= 0 {
		size = DefaultSize
	}
	return &Ring{entries: make([]Entry, size)}
}

// Cap returns the ring capacity.
func (r *Ring) Cap() int { return len(r.entries) }

// Len returns the number of entries held.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.full {
		return len(r.entries)
	}
	return r.next
}

func (r *Ring) add(e Entry) {
	r.mu.Lock()
	r.entries[r.next] = e
	r.next = (r.next + 1) % len(r.entries)
	if r.next == 0 {
		r.full = true
	}
	r.mu.Unlock()
}

// Entries returns a copy of the held entries, oldest first.
func (r *Ring) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.full {
		out := make([]Entry, r.next)
		copy(out, r.entries[:r.next])
		return out
	}
	out := make([]Entry, 0, len(r.entries))
	out = append(out, r.entries[r.next:]...)
	out = append(out, r.entries[:r.next]...)
	return out
}

// Tail returns at most the n newest entries, oldest first.
func (r *Ring) Tail(n int) []Entry {
	all := r.Entries()
	if n <= 0 || n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}

// Handler wraps next so that every record it accepts is also captured in r.
func (r *Ring) Handler(next slog.Handler) slog.Handler {
	return &handler{ring: r, next: next}
}

type handler struct {
	ring   *Ring
	next   slog.Handler
	attrs  []slog.Attr
	groups []string
}

func (h *handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *handler) Handle(ctx context.Context, rec slog.Record) error {
	e := Entry{
		Time:    rec.Time,
		Level:   rec.Level.String(),
		Message: rec.Message,
	}
	if len(h.attrs) > 0 || rec.NumAttrs() > 0 {
		e.Attrs = make(map[string]any, len(h.attrs)+rec.NumAttrs())
		for _, a := range h.attrs {
			addAttr(e.Attrs, "", a)
		}
		rec.Attrs(func(a slog.Attr) bool {
			addAttr(e.Attrs, h.prefix(), a)
			return true
		})
	}
	h.ring.add(e)
	return h.next.Handle(ctx, rec)
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	// los attrs previos ya llevan su prefijo de grupo aplicado al guardarlos
	prefixed := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	prefixed = append(prefixed, h.attrs...)
	for _, a := range attrs {
		a.Key = h.prefix() + a.Key
		prefixed = append(prefixed, a)
	}
	return &handler{ring: h.ring, next: h.next.WithAttrs(attrs), attrs: prefixed, groups: h.groups}
}

func (h *handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	groups := append(append([]string(nil), h.groups...), name)
	return &handler{ring: h.ring, next: h.next.WithGroup(name), attrs: h.attrs, groups: groups}
}

func (h *handler) prefix() string {
	p := ""
	for _, g := range h.groups {
		p += g + "."
	}
	return p
}

func addAttr(dst map[string]any, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, ga := range v.Group() {
			addAttr(dst, prefix+a.Key+".", ga)
		}
		return
	}
	if a.Key == "" {
		return
	}
	switch v.Kind() {
	case slog.KindDuration:
		dst[prefix+a.Key] = v.Duration().String()
	case slog.KindTime:
		dst[prefix+a.Key] = v.Time()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			dst[prefix+a.Key] = err.Error()
			return
		}
		dst[prefix+a.Key] = v.Any()
	default:
		dst[prefix+a.Key] = v.Any()
	}
}
