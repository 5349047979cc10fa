// Package obslog builds the structured JSON logger used by cmd/demo.
package obslog

import (
	"context"
	"log/slog"
	"os"
)

// NewLogger returns a JSON slog.Logger tagged with the given service name.
func NewLogger(service string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true})
	return slog.New(handler).With(slog.String("service", service))
}

// WithRequestID attaches a request id to every record the returned logger emits.
func WithRequestID(ctx context.Context, logger *slog.Logger, requestID string) *slog.Logger {
	return logger.With(slog.String("requestId", requestID))
}
