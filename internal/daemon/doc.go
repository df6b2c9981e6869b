// Package daemon hosts the long-running clipsight process: single-instance
// locking, preflight at startup, the job queue lifecycle, and the HTTP API.
package daemon
