// Package procexec runs external programs (the frame worker, video encoders,
// image resizers) and classifies how they ended.
//
// Runner drains stdout and stderr on separate goroutines so verbose children
// never block on a full pipe, applies environment overrides, kills the child's
// process group when the context is cancelled, and treats any stderr output
// as failure unless configured otherwise. ParseCommandLine turns a configured
// command line string into an argument vector.
package procexec
