// Package integration provides integration tests for the notice reconciler.
// They drive a complete in-memory deployment through its admin API:
// resync, attempt logging, batch detection and ticket resolution.
package integration
