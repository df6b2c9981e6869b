// Package notifications posts best-effort completion webhooks for finished
// jobs. Delivery failures are reported to the caller for logging but never
// change a job's outcome.
package notifications
