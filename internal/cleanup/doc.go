// Package cleanup reclaims disk space during and after a generation run:
// frame files no pending output needs, the run's working directory, and
// working directories abandoned by earlier runs.
package cleanup
