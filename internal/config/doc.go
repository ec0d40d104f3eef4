// Package config loads, normalizes, and validates generator configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and overlays the environment variables a
// batch job receives (TASK_ID, DATABASE_*, NCANIMATE_REGION), optionally
// seeded from a .env file. Always obtain settings through this package so
// downstream code receives absolute paths and clear validation errors.
package config
