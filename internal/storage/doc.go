// Package storage uploads finished artifacts to their destination URI and
// checks whether artifacts already exist. Only local destinations (file://
// URIs and plain paths) are supported.
package storage
