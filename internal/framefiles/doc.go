// Package framefiles indexes the frame image files the frame worker writes
// and the outputs that consume them.
package framefiles
