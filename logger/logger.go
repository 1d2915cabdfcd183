// Package logger builds the process logger: slog call sites backed by a
// zerolog writer.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

type Config struct {
	Level string
	// human readable output instead of JSON lines
	Console bool
	RunID   string
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func zerologLevel(l slog.Level) zerolog.Level {
	switch {
	case l <= slog.LevelDebug:
		return zerolog.DebugLevel
	case l >= slog.LevelError:
		return zerolog.ErrorLevel
	case l >= slog.LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

// IsTerminal reports whether out is attached to a terminal.
func IsTerminal(out *os.File) bool {
	return isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd())
}

func Build(cfg Config, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.TimestampFieldName = "timestamp"
	zerolog.LevelFieldName = "level"
	zerolog.MessageFieldName = "msg"

	if cfg.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}

	ctx := zerolog.New(out).Level(zerologLevel(ParseLevel(cfg.Level))).With().Timestamp()
	if cfg.RunID != "" {
		ctx = ctx.Str("run_id", cfg.RunID)
	}

	return ctx.Logger()
}

// New builds the slog logger used by every package through slog.Default.
func New(cfg Config, out io.Writer) *slog.Logger {
	zl := Build(cfg, out)
	return NewSlog(&zl, ParseLevel(cfg.Level))
}

type zlHandler struct {
	zl    *zerolog.Logger
	level slog.Level
	attr  []slog.Attr
	group string
}

func NewSlog(zl *zerolog.Logger, level slog.Level) *slog.Logger {
	return slog.New(&zlHandler{zl: zl, level: level})
}

func (h *zlHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level
}

func (h *zlHandler) Handle(_ context.Context, r slog.Record) error {

	var ev *zerolog.Event
	switch {
	case r.Level <= slog.LevelDebug:
		ev = h.zl.Debug()
	case r.Level >= slog.LevelError:
		ev = h.zl.Error()
	case r.Level >= slog.LevelWarn:
		ev = h.zl.Warn()
	default:
		ev = h.zl.Info()
	}

	for _, a := range h.attr {
		ev = addAttr(ev, a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		ev = addAttr(ev, h.key(a.Key), a.Value)
		return true
	})

	ev.Msg(r.Message)
	return nil
}

// WithAttrs stores attrs under the group open at the time of the call.
func (h *zlHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cp := *h
	cp.attr = append([]slog.Attr{}, h.attr...)
	for _, a := range attrs {
		cp.attr = append(cp.attr, slog.Attr{Key: h.key(a.Key), Value: a.Value})
	}
	return &cp
}

func (h *zlHandler) WithGroup(name string) slog.Handler {
	cp := *h
	if cp.group != "" {
		name = cp.group + "." + name
	}
	cp.group = name
	return &cp
}

func (h *zlHandler) key(k string) string {
	if h.group == "" {
		return k
	}
	return h.group + "." + k
}

func addAttr(ev *zerolog.Event, key string, v slog.Value) *zerolog.Event {
	v = v.Resolve()

	switch v.Kind() {
	case slog.KindString:
		return ev.Str(key, v.String())
	case slog.KindInt64:
		return ev.Int64(key, v.Int64())
	case slog.KindUint64:
		return ev.Uint64(key, v.Uint64())
	case slog.KindFloat64:
		return ev.Float64(key, v.Float64())
	case slog.KindBool:
		return ev.Bool(key, v.Bool())
	case slog.KindDuration:
		return ev.Dur(key, v.Duration())
	case slog.KindTime:
		return ev.Time(key, v.Time())
	default:
		if err, ok := v.Any().(error); ok {
			return ev.AnErr(key, err)
		}
		return ev.Interface(key, v.Any())
	}
}
