// Package jobrun wires one batch job together: configuration, logging, the
// metadata store, the product catalog and the scheduler. It also owns the
// per-product lock, the run ID and the metrics textfile, and routes reserved
// task IDs to maintenance.
package jobrun
