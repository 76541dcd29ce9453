// ABOUTME: slog setup for the registry node
// ABOUTME: JSON handler or a colorized text handler chosen by config

package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/2389/mythic-metadata/internal/config"
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

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	return newLogger(cfg, os.Stdout)
}

func newLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	level := parseLevel(cfg.Level)

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	} else {
		handler = &colorHandler{out: w, mu: &sync.Mutex{}, level: level}
	}
	return slog.New(handler)
}

// colorHandler renders one line per record as
//
//	15:04:05 INF [registry] instruction committed create_metadata_key @3 tx=5Hk2bQ9x key=value
//
// component becomes the bracketed tag, op and slot are pulled forward and
// transaction ids are shortened. Everything else follows as key=value.
type colorHandler struct {
	out       io.Writer
	mu        *sync.Mutex // shared by handlers derived via WithAttrs/WithGroup
	level     slog.Level
	component string
	attrs     []slog.Attr
	groups    []string
}

// txIDWidth is how much of a base58 transaction id the text log shows.
const txIDWidth = 8

func levelTag(level slog.Level) string {
	switch level {
	case slog.LevelDebug:
		return color.MagentaString("DBG")
	case slog.LevelInfo:
		return color.CyanString("INF")
	case slog.LevelWarn:
		return color.YellowString("WRN")
	case slog.LevelError:
		return color.New(color.FgRed, color.Bold).Sprint("ERR")
	default:
		return level.String()
	}
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) qualify(key string) string {
	if len(h.groups) == 0 {
		return key
	}
	return strings.Join(h.groups, ".") + "." + key
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	component := h.component
	var op, slot string
	rest := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	rest = append(rest, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		key := h.qualify(a.Key)
		switch key {
		case "component":
			component = a.Value.String()
		case "op":
			op = a.Value.String()
		case "slot":
			slot = a.Value.String()
		default:
			rest = append(rest, slog.Attr{Key: key, Value: a.Value})
		}
		return true
	})

	var buf strings.Builder
	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05")))
	buf.WriteByte(' ')
	buf.WriteString(levelTag(r.Level))
	if component != "" {
		buf.WriteString(color.BlueString(" [" + component + "]"))
	}
	buf.WriteByte(' ')
	buf.WriteString(r.Message)
	if op != "" {
		buf.WriteString(" " + color.New(color.Bold).Sprint(op))
	}
	if slot != "" {
		buf.WriteString(color.GreenString(" @" + slot))
	}
	for _, a := range rest {
		value := a.Value.String()
		if a.Key == "tx" && len(value) > txIDWidth {
			value = value[:txIDWidth]
		}
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(value)
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, buf.String())
	return err
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = slices.Clone(h.attrs)
	for _, a := range attrs {
		key := h.qualify(a.Key)
		if key == "component" {
			next.component = a.Value.String()
			continue
		}
		next.attrs = append(next.attrs, slog.Attr{Key: key, Value: a.Value})
	}
	return &next
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.groups = append(slices.Clone(h.groups), name)
	return &next
}
