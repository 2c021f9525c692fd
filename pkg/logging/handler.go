// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"context"
	"log/slog"
	"sync"
)

// fanoutHandler dispatches each record to every enabled child handler.
type fanoutHandler struct {
	handlers []slog.Handler
}

func (h *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, r.Level) {
			continue
		}
		if err := handler.Handle(ctx, r.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: next}
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithGroup(name)
	}
	return &fanoutHandler{handlers: next}
}

// =============================================================================
// Capture
// =============================================================================

// Entry is one record seen by a Capture handler.
type Entry struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// Capture is a slog.Handler that keeps every record in memory.
//
// Tests hand Capture.Logger() to a component and then assert on the
// warnings it produced.
//
// Thread Safety: safe for concurrent use.
type Capture struct {
	mu      *sync.Mutex
	entries *[]Entry
	attrs   []slog.Attr
}

// NewCapture creates an empty Capture.
func NewCapture() *Capture {
	return &Capture{mu: &sync.Mutex{}, entries: &[]Entry{}}
}

// Logger returns a *slog.Logger writing into c.
func (c *Capture) Logger() *slog.Logger {
	return slog.New(c)
}

// Enabled reports true for every level.
func (c *Capture) Enabled(context.Context, slog.Level) bool { return true }

// Handle records r.
func (c *Capture) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(c.attrs)+r.NumAttrs())
	for _, a := range c.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	c.mu.Lock()
	*c.entries = append(*c.entries, Entry{Level: r.Level, Message: r.Message, Attrs: attrs})
	c.mu.Unlock()
	return nil
}

// WithAttrs returns a handler sharing the same buffer.
func (c *Capture) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := append(append([]slog.Attr{}, c.attrs...), attrs...)
	return &Capture{mu: c.mu, entries: c.entries, attrs: merged}
}

// WithGroup ignores grouping; captured keys stay flat.
func (c *Capture) WithGroup(string) slog.Handler { return c }

// Entries returns a copy of everything recorded so far.
func (c *Capture) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(*c.entries))
	copy(out, *c.entries)
	return out
}

// Count returns how many records at level have the given message.
func (c *Capture) Count(level slog.Level, msg string) int {
	n := 0
	for _, e := range c.Entries() {
		if e.Level == level && e.Message == msg {
			n++
		}
	}
	return n
}
