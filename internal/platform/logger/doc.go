// Package logger configures the process-wide slog JSON logger and carries
// request-scoped loggers (with their trace_id) through context.Context.
package logger
