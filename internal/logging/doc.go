// Package logging assembles structured slog loggers and formatting helpers
// used across the generator.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code tags log lines
// with run, product, and region identifiers. NewNop provides a silent logger
// for tests and wiring code that cannot fail.
package logging
