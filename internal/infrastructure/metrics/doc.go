// Package metrics provides optional operational telemetry for userdir,
// backed by InfluxDB v2.
//
// When enabled, the API server records HTTP request timings and record
// mutation counters. Writes are non-blocking and batched; a lost or slow
// InfluxDB never affects request handling.
//
// Thread Safety: all methods are safe for concurrent use.
package metrics
