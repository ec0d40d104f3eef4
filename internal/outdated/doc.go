// Package outdated decides whether a map or video must be regenerated: its
// record or artifact is missing, its generation parameters changed, or its
// input files changed since it was produced.
package outdated
