// Package main hosts the ncanimate CLI entrypoint and command graph.
//
// The bare command runs one batch job: the task ID comes from the first
// argument or the TASK_ID environment variable, and reserved task IDs run a
// metadata maintenance operation instead of a generation. Subcommands
// generate a product directly, list the catalog, check the environment and
// scaffold configuration. All real work lives in internal/jobrun and the
// packages it wires together.
package main
