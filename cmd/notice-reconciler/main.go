// Package main is the entry point for the notice reconciler.
package main

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/trace"

	"github.com/ehving/noticesystem-sub000/cmd/notice-reconciler/app"
	"github.com/ehving/noticesystem-sub000/internal/config"
	"github.com/ehving/noticesystem-sub000/internal/versions"
)

// logLevel reads NOTICE_RECONCILER_LOG_LEVEL, then LOG_LEVEL. Unset or
// unparsable values give info.
func logLevel() slog.Level {
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.AutomaticEnv()

	raw := v.GetString("log_level")
	if raw == "" {
		raw = os.Getenv("LOG_LEVEL")
	}
	if strings.EqualFold(raw, "warning") {
		raw = "warn"
	}

	var level slog.Level
	if raw == "" {
		return slog.LevelInfo
	}
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		slog.Warn("Invalid log level, using INFO", "value", raw)
		return slog.LevelInfo
	}
	return level
}

// traceHandler adds trace_id and span_id to records logged under a span.
type traceHandler struct {
	slog.Handler
}

func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(slog.String("trace_id", sc.TraceID().String()), slog.String("span_id", sc.SpanID().String()))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithGroup(name)}
}

func main() {
	// A missing .env file is fine; the process environment still applies.
	_ = godotenv.Load()

	// stderr keeps stdout clean for commands that print data.
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel()})
	slog.SetDefault(slog.New(&traceHandler{Handler: handler}).With("component", versions.Component))

	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
