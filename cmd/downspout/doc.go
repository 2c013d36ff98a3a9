// Package main hosts the Downspout CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into HTTP
// calls against the daemon API, transfer history queries, and configuration
// scaffolding. It centralizes configuration resolution and API address
// discovery so subcommands can focus on user experience instead of wiring.
package main
