// Package main hosts the Clipsight CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into HTTP
// calls against the daemon API: job submission, status and queue inspection,
// cancellation, health reporting, and configuration scaffolding. It
// centralizes configuration resolution and API endpoint discovery so
// subcommands can focus on user experience instead of wiring.
package main
