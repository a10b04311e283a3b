// Package tracing wires the optional observability backends: a Langfuse
// callback for oracle calls and an OTLP span exporter for transport spans.
// Both are gated on environment variables and default to no-ops.
package tracing

import (
	"log/slog"
	"os"

	"github.com/cloudwego/eino-ext/callbacks/langfuse"
	"github.com/cloudwego/eino/callbacks"
)

// InitLangfuse registers a global Langfuse callback handler so every oracle
// and agent call is traced. Requires LANGFUSE_HOST, LANGFUSE_PUBLIC_KEY and
// LANGFUSE_SECRET_KEY; without them it is a no-op. Returns a flush function
// that must be called before process exit.
func InitLangfuse() (flush func()) {
	cfg := langfuse.Config{
		Host:      os.Getenv("LANGFUSE_HOST"),
		PublicKey: os.Getenv("LANGFUSE_PUBLIC_KEY"),
		SecretKey: os.Getenv("LANGFUSE_SECRET_KEY"),
	}
	if cfg.Host == "" || cfg.PublicKey == "" || cfg.SecretKey == "" {
		return func() {}
	}

	handler, flusher := langfuse.NewLangfuseHandler(&cfg)
	callbacks.AppendGlobalHandlers(handler)
	slog.Info("langfuse oracle tracing enabled", "host", cfg.Host)

	return flusher
}
