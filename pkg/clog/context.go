package clog

import (
	"context"
	"sync"
)

const (
	ErrorAttributeKey = "error.message"
	StackAttributeKey = "error.stack"
)

// attrBag is a mutable attribute set shared by everything holding the
// same context. Handlers read it at log time, so attributes added after
// a request started still show up on its access log line.
type attrBag struct {
	mu    sync.RWMutex
	attrs map[string]any
}

type attrBagKey struct{}

func (b *attrBag) set(key string, value any) {
	b.mu.Lock()
	b.attrs[key] = value
	b.mu.Unlock()
}

func (b *attrBag) merge(src map[string]any) {
	b.mu.Lock()
	deepMerge(b.attrs, src)
	b.mu.Unlock()
}

func (b *attrBag) snapshot() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]any, len(b.attrs))
	for k, v := range b.attrs {
		out[k] = v
	}
	return out
}

func bagFrom(ctx context.Context) (*attrBag, bool) {
	b, ok := ctx.Value(attrBagKey{}).(*attrBag)
	return b, ok
}

// ContextWithSlog attaches an empty attribute bag to ctx.
func ContextWithSlog(ctx context.Context) context.Context {
	return context.WithValue(ctx, attrBagKey{}, &attrBag{attrs: map[string]any{}})
}

// AddAttribute records a single attribute. No-op when the context has no bag.
func AddAttribute(ctx context.Context, key string, value any) {
	if b, ok := bagFrom(ctx); ok {
		b.set(key, value)
	}
}

// AddAttributes merges a map of attributes into the bag, recursing into
// nested maps so repeated calls extend rather than replace groups.
func AddAttributes(ctx context.Context, attributes map[string]any) {
	if b, ok := bagFrom(ctx); ok {
		b.merge(attributes)
	}
}

// GetAttribute returns the attribute under key as T, or T's zero value.
func GetAttribute[T any](ctx context.Context, key string) T {
	var zero T
	b, ok := bagFrom(ctx)
	if !ok {
		return zero
	}
	b.mu.RLock()
	v, ok := b.attrs[key]
	b.mu.RUnlock()
	if !ok {
		return zero
	}
	typed, ok := v.(T)
	if !ok {
		return zero
	}
	return typed
}

// GetAttributes returns a copy of every attribute in the bag.
func GetAttributes(ctx context.Context) map[string]any {
	b, ok := bagFrom(ctx)
	if !ok {
		return nil
	}
	return b.snapshot()
}

func AddError(ctx context.Context, err error) {
	AddAttribute(ctx, ErrorAttributeKey, err)
}

func GetError(ctx context.Context) error {
	return GetAttribute[error](ctx, ErrorAttributeKey)
}

func AddStack(ctx context.Context, stack string) {
	AddAttribute(ctx, StackAttributeKey, stack)
}

func GetStack(ctx context.Context) string {
	return GetAttribute[string](ctx, StackAttributeKey)
}

func deepMerge(dst, src map[string]any) {
	for k, v := range src {
		srcMap, srcIsMap := v.(map[string]any)
		if !srcIsMap {
			dst[k] = v
			continue
		}
		if dstMap, ok := dst[k].(map[string]any); ok {
			deepMerge(dstMap, srcMap)
			continue
		}
		dst[k] = srcMap
	}
}
