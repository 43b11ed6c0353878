package common

import (
	"context"
	"log/slog"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRunID     contextKey = "run_id"
	ContextKeyReceiptID contextKey = "receipt_id"
	ContextKeyLogger    contextKey = "logger"
)

// WithRunID adds an import run ID to the context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ContextKeyRunID, runID)
}

// RunIDFromContext extracts the import run ID from context
func RunIDFromContext(ctx context.Context) string {
	if runID, ok := ctx.Value(ContextKeyRunID).(string); ok {
		return runID
	}
	return ""
}

// WithReceiptID adds a receipt ID to the context
func WithReceiptID(ctx context.Context, receiptID string) context.Context {
	return context.WithValue(ctx, ContextKeyReceiptID, receiptID)
}

// ReceiptIDFromContext extracts the receipt ID from context
func ReceiptIDFromContext(ctx context.Context) string {
	if receiptID, ok := ctx.Value(ContextKeyReceiptID).(string); ok {
		return receiptID
	}
	return ""
}

// WithLogger stores a request-scoped logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ContextKeyLogger, logger)
}

// LoggerFromContext returns the logger stored in ctx. Otherwise it decorates
// fallback (or slog.Default()) with the run and receipt ids found in ctx.
func LoggerFromContext(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(ContextKeyLogger).(*slog.Logger); ok && logger != nil {
		return logger
	}
	logger := fallback
	if logger == nil {
		logger = slog.Default()
	}
	if runID := RunIDFromContext(ctx); runID != "" {
		logger = logger.With("run_id", runID)
	}
	if receiptID := ReceiptIDFromContext(ctx); receiptID != "" {
		logger = logger.With("receipt_id", receiptID)
	}
	return logger
}
