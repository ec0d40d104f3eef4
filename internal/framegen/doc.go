// Package framegen drives the external frame worker.
//
// The worker is a crash-prone batch process. A failed attempt that still
// wrote new frame files is retried, because the next attempt resumes where the
// last one stopped; a failed attempt that wrote nothing aborts at once.
package framegen
