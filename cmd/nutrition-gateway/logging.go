// ABOUTME: slog setup for the server: colorized text for terminals or JSON
// ABOUTME: Level and format come from the logging section of the config

package main

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/2389/nutrition-gateway/internal/config"
)

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func setupLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	level := parseLevel(cfg.Level)

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	} else {
		handler = &colorHandler{
			out:   &lockedWriter{w: w},
			level: level,
		}
	}
	return slog.New(handler)
}

// lockedWriter serializes writes from every handler derived via WithAttrs.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// colorHandler writes one colorized line per record. Attrs added through
// WithAttrs are rendered once, qualified by the groups open at that point.
type colorHandler struct {
	out    *lockedWriter
	level  slog.Level
	pre    string
	prefix string
}

var (
	keyStyle   = color.New(color.FgHiBlack)
	debugStyle = color.New(color.FgMagenta)
)

var levelLabels = []struct {
	min   slog.Level
	label string
	style *color.Color
}{
	{slog.LevelError, "ERR", color.New(color.FgRed, color.Bold)},
	{slog.LevelWarn, "WRN", color.New(color.FgYellow)},
	{slog.LevelInfo, "INF", color.New(color.FgCyan)},
}

func levelLabel(l slog.Level) string {
	for _, ll := range levelLabels {
		if l >= ll.min {
			return ll.style.Sprint(ll.label)
		}
	}
	return debugStyle.Sprint("DBG")
}

// appendAttr writes " key=value", flattening group values into dotted keys.
func appendAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			appendAttr(b, prefix, ga)
		}
		return
	}
	b.WriteString(keyStyle.Sprint(" " + prefix + a.Key + "="))
	b.WriteString(a.Value.String())
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(keyStyle.Sprint(r.Time.Format("15:04:05")))
	b.WriteByte(' ')
	b.WriteString(levelLabel(r.Level))
	b.WriteByte(' ')
	b.WriteString(r.Message)
	b.WriteString(h.pre)
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&b, h.prefix, a)
		return true
	})
	b.WriteByte('\n')

	_, err := io.WriteString(h.out, b.String())
	return err
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	var b strings.Builder
	b.WriteString(h.pre)
	for _, a := range attrs {
		appendAttr(&b, h.prefix, a)
	}
	next := *h
	next.pre = b.String()
	return &next
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix += name + "."
	return &next
}
