// Package daemonrun composes a full daemon runtime from configuration:
// logger, analysis cache, external tool adapters, pipeline, queue, and the
// daemon lifecycle, then blocks until a shutdown signal.
package daemonrun
