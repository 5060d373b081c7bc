// Package logging wires log/slog with console and JSON handlers, typed attr
// helpers, and context-derived fields (job, file, step, correlation ID).
package logging
