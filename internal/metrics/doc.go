// Package metrics records generation run statistics with the Prometheus
// client and writes them to a node-exporter textfile after each run.
package metrics
