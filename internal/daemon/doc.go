// Package daemon hosts the long-running downspout process: it enforces
// single-instance execution with a lock file, runs the sync engine and the
// delete queue, and serves the local HTTP API the CLI talks to.
package daemon
