package logs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Alijeyrad/mindcare_backend/config"
	"github.com/Alijeyrad/mindcare_backend/pkg/constants"
	"gopkg.in/natefinch/lumberjack.v2"
)

const redacted = "[REDACTED]"

// sensitiveKeys never reach a log sink in clear text.
var sensitiveKeys = map[string]struct{}{
	"password":      {},
	"password_hash": {},
	"token":         {},
	"join_token":    {},
	"access_token":  {},
	"refresh_token": {},
	"api_key":       {},
	"notes":         {},
}

// New builds a logger from config, supporting multi-output fan-out.
func New(cfg *config.Config) *slog.Logger {
	level := parseLevel(cfg.Logging.Level)
	isDev := strings.EqualFold(cfg.Server.Environment, "development")

	var writers []io.Writer

	// Always write to stdout if enabled or nothing else is configured
	if cfg.Logging.Output.Stdout || (!cfg.Logging.Output.File.Enabled && !cfg.Logging.Output.Loki.Enabled) {
		writers = append(writers, os.Stdout)
	}

	// File output with rotation via lumberjack
	if cfg.Logging.Output.File.Enabled {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.Logging.Output.File.Path,
			MaxSize:    cfg.Logging.Output.File.MaxSizeMB,
			MaxBackups: cfg.Logging.Output.File.MaxBackups,
			MaxAge:     cfg.Logging.Output.File.MaxAgeDays,
			Compress:   cfg.Logging.Output.File.Compress,
		})
	}

	opts := &slog.HandlerOptions{
		Level:       level,
		AddSource:   isDev,
		ReplaceAttr: redact,
	}

	var handlers []slog.Handler
	if len(writers) > 0 {
		w := io.MultiWriter(writers...)
		if strings.EqualFold(cfg.Logging.Format, "json") || !isDev {
			handlers = append(handlers, slog.NewJSONHandler(w, opts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(w, opts))
		}
	}

	if cfg.Logging.Output.Loki.Enabled {
		handlers = append(handlers, slog.NewJSONHandler(newLokiWriter(cfg), opts))
	}

	var h slog.Handler
	if len(handlers) == 1 {
		h = handlers[0]
	} else {
		h = &multiHandler{handlers: handlers}
	}

	service := cfg.Observability.ServiceName
	if service == "" {
		service = constants.AppName
	}

	return slog.New(h).With(
		slog.String("service", service),
		slog.String("version", cfg.Observability.ServiceVersion),
		slog.String("env", cfg.Server.Environment),
	)
}

func Default() *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       slog.LevelInfo,
		ReplaceAttr: redact,
	})
	return slog.New(h).With(slog.String("service", constants.AppName))
}

func redact(_ []string, a slog.Attr) slog.Attr {
	if _, ok := sensitiveKeys[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, redacted)
	}
	return a
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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

// multiHandler fans a record out to every handler that accepts its level.
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: next}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		next[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: next}
}
