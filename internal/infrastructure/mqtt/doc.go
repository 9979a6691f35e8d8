// Package mqtt provides the optional MQTT event sink for userdir.
//
// When enabled, every successful record mutation is published to the broker
// under the configured topic prefix (default "userdir/events"), alongside the
// WebSocket broadcast. Delivery is best-effort: publish failures are logged
// and never affect the HTTP response.
//
// The client maintains the broker connection with automatic reconnection and
// publishes an online/offline status message (with a Last Will for crash
// detection) to <prefix>/status.
//
// Thread Safety: all methods are safe for concurrent use.
package mqtt
