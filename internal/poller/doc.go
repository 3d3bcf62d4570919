// Package poller drives a snapshot source on a fixed, drift-corrected
// cadence and applies each snapshot to the metric registry.
//
// Scheduler cycles Disconnected -> Authenticated -> Polling. A DecodeError
// moves it to Backoff: it logs, sleeps the cooldown (60s by default) and
// re-authenticates. Every other error ends Run and is expected to terminate
// the process. Cancelling the context stops Run cleanly with a nil error.
package poller
