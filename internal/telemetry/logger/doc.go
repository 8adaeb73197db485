// Package logger provides structured logging for the snapshot engine.
//
// This package wraps log/slog for structured logging:
//
//   - logger.go: slog-backed Logger configuration and initialization
//   - context.go: Context-aware logging with request/trace IDs
//   - redact.go: Sensitive data redaction
//
// Features:
//
//   - JSON and text output formats
//   - Log level filtering
//   - Automatic sensitive data masking
//   - Context propagation for request tracing
//
package logger
