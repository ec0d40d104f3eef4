// Package maintenance implements the one-off metadata repairs reachable
// through reserved task IDs. Each operation walks the metadata store once
// and returns counts; a dry run only logs and counts.
package maintenance
