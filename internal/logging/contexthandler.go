package logging

import (
	"context"
	"log/slog"
)

// ContextProvider returns the attributes describing the recorder's current
// state (active session, tick, wave). It is called once per record.
type ContextProvider func() []slog.Attr

// ContextHandler stamps every record with the provider's attributes. Keys
// that a logger already bound with With, or that the record itself carries,
// win over the provider: a save worker logging a finished session keeps its
// own session_id even after the next session has started.
type ContextHandler struct {
	inner    slog.Handler
	provider ContextProvider
	bound    map[string]struct{}
	grouped  bool
}

// NewContextHandler wraps inner with provider. A nil provider makes the
// handler a pass-through.
func NewContextHandler(inner slog.Handler, provider ContextProvider) *ContextHandler {
	return &ContextHandler{inner: inner, provider: provider}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	// inside a group the provider keys would be nested and meaningless
	if h.provider == nil || h.grouped {
		return h.inner.Handle(ctx, r)
	}

	attrs := h.provider()
	if len(attrs) == 0 {
		return h.inner.Handle(ctx, r)
	}

	present := make(map[string]struct{}, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		present[a.Key] = struct{}{}
		return true
	})

	out := r.Clone()
	for _, a := range attrs {
		if _, ok := h.bound[a.Key]; ok {
			continue
		}
		if _, ok := present[a.Key]; ok {
			continue
		}
		out.AddAttrs(a)
	}
	return h.inner.Handle(ctx, out)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	bound := make(map[string]struct{}, len(h.bound)+len(attrs))
	for k := range h.bound {
		bound[k] = struct{}{}
	}
	if !h.grouped {
		for _, a := range attrs {
			bound[a.Key] = struct{}{}
		}
	}
	return &ContextHandler{
		inner:    h.inner.WithAttrs(attrs),
		provider: h.provider,
		bound:    bound,
		grouped:  h.grouped,
	}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{
		inner:    h.inner.WithGroup(name),
		provider: h.provider,
		bound:    h.bound,
		grouped:  true,
	}
}
