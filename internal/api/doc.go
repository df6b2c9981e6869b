// Package api defines the JSON payloads shared by the daemon HTTP API and
// the CLI client, plus conversions to and from queue types.
package api
