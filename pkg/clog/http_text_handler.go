package clog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

type TextHandlerConfig struct {
	Color bool
	Level *slog.Level
}

type TextHandlerOption func(*TextHandlerConfig)

func WithColor(c bool) TextHandlerOption {
	return func(cfg *TextHandlerConfig) {
		cfg.Color = c
	}
}

func WithLevel(level slog.Level) TextHandlerOption {
	return func(cfg *TextHandlerConfig) {
		cfg.Level = &level
	}
}

// HTTPTextHandler renders records as single human-readable lines for
// local development: timestamp, level, then the request columns (proto,
// method, path, status) pulled out of the attributes, the message, and
// finally the remaining attributes indented one per line.
type HTTPTextHandler struct {
	cfg    TextHandlerConfig
	attrs  []slog.Attr
	groups []string

	mu sync.Mutex
	w  io.Writer
}

func NewHTTPTextHandler(w io.Writer, opts ...TextHandlerOption) *HTTPTextHandler {
	cfg := TextHandlerConfig{Color: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &HTTPTextHandler{cfg: cfg, w: w}
}

func (h *HTTPTextHandler) Enabled(_ context.Context, l slog.Level) bool {
	min := slog.LevelInfo
	if h.cfg.Level != nil {
		min = h.cfg.Level.Level()
	}
	return l >= min
}

func (h *HTTPTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := h.shallow()
	nh.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return nh
}

func (h *HTTPTextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := h.shallow()
	nh.groups = append(append([]string{}, h.groups...), name)
	return nh
}

func (h *HTTPTextHandler) shallow() *HTTPTextHandler {
	return &HTTPTextHandler{cfg: h.cfg, attrs: h.attrs, groups: h.groups, w: h.w}
}

// requestColumns are printed in fixed order before the message and
// removed from the trailing attribute dump.
var requestColumns = [...]string{"proto", "method", "path", "status"}

func (h *HTTPTextHandler) Handle(_ context.Context, record slog.Record) error {
	kv := map[string]slog.Value{}
	for _, attr := range h.attrs {
		kv[attr.Key] = attr.Value
	}
	record.Attrs(func(attr slog.Attr) bool {
		kv[attr.Key] = attr.Value
		return true
	})

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s ", record.Time.Format(time.RFC3339), h.paint(levelColor(record.Level), record.Level.String()))
	for _, key := range requestColumns {
		if v, ok := kv[key]; ok {
			fmt.Fprintf(&b, "%s ", v)
			delete(kv, key)
		}
	}
	b.WriteString(h.paint(color.FgGreen, record.Message))
	if e, ok := kv[ErrorAttributeKey]; ok {
		delete(kv, ErrorAttributeKey)
		fmt.Fprintf(&b, " %s", h.paint(color.FgRed, e.String()))
	}
	b.WriteByte('\n')

	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "    %s=%s\n", k, kv[k])
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *HTTPTextHandler) paint(attr color.Attribute, s string) string {
	if !h.cfg.Color {
		return s
	}
	return color.New(attr).Sprint(s)
}

func levelColor(l slog.Level) color.Attribute {
	switch {
	case l >= slog.LevelError:
		return color.FgRed
	case l >= slog.LevelWarn:
		return color.FgYellow
	case l >= slog.LevelInfo:
		return color.FgBlue
	default:
		return color.FgCyan
	}
}
