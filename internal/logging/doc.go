// Package logging builds the slog loggers used across subtrans.
//
// It owns the console and JSON handlers, level parsing, output fan-out to
// stdout and the log file, and the shared attribute keys (component, run_id,
// item_id, operation, event_type) so every package emits the same shape.
// NewNop gives tests and optional wiring a logger that cannot fail.
package logging
