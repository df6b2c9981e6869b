// Package services holds the error taxonomy and context annotations shared by
// every pipeline stage and backend client.
//
// Errors are tagged with sentinel markers via Wrap so the queue can classify
// a failed attempt (retry, terminal, absorb) with errors.Is instead of string
// matching. Context helpers carry job, stage, and correlation identifiers for
// structured logging.
package services
