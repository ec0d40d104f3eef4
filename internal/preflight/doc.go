// Package preflight provides readiness checks for the directories, metadata
// store, frame worker and external tools a generation run depends on.
//
// The CLI "ncanimate check" command runs them all and prints the results; a
// failed check predicts a run that would abort on configuration errors.
package preflight
