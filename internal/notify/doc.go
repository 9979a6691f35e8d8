// Package notify fans record change events out to subscribers.
//
// Delivery is best-effort and at-most-once: publishing never blocks the
// caller and a failed or slow sink never fails the mutation that raised
// the event. Consumers that need a consistent view re-fetch over the
// REST API; events are a hint that something changed, not a replication
// stream.
package notify
