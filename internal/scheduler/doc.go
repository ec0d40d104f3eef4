// Package scheduler drives one incremental generation run: it works out
// which maps and videos are outdated, renders the frames they need one
// identity sub-range at a time, assembles each output as soon as its frames
// are all present and reclaims frames that nothing pending still needs.
package scheduler
