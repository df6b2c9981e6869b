// Package queue implements the job queue that admits media-processing
// submissions and dispatches them to the pipeline with bounded concurrency.
//
// All job state is owned by a single dispatcher goroutine; public methods
// deliver their work to it as messages and wait for the reply. Jobs move
// waiting -> active -> completed/failed, with retryable failures returning
// to the tail of the waiting list until their attempts are exhausted.
package queue
