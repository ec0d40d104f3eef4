// Package services defines shared error markers and context helpers consumed
// by the generation pipeline.
//
// Wrap tags failures with a sentinel so callers can decide whether a failure
// aborts the run (configuration, validation) or only the output product being
// assembled. Context helpers stamp run, product, and region identifiers that
// the logging package turns into structured fields.
package services
