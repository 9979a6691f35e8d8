package notify

import (
	"encoding/json"

	"github.com/pkarlsen/userdir/internal/infrastructure/logging"
)

// Broadcaster delivers an event to connected WebSocket clients.
// Implementations must not block.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// EventSink delivers a serialized event to an external transport.
type EventSink interface {
	PublishEvent(channel string, payload []byte) error
}

// Notifier publishes change events to all configured sinks.
type Notifier struct {
	hub    Broadcaster
	sink   EventSink
	logger *logging.Logger
}

// New creates a Notifier. hub must be non-nil; sink may be nil when no
// external transport is configured.
func New(hub Broadcaster, sink EventSink, logger *logging.Logger) *Notifier {
	return &Notifier{hub: hub, sink: sink, logger: logger}
}

// Publish sends a change event on the given channel. It returns
// immediately; sink delivery runs asynchronously and failures are
// logged, never surfaced to the caller.
func (n *Notifier) Publish(channel, event string, id int64) {
	ev := Event{Event: event, ID: id}

	n.hub.Broadcast(channel, ev)

	if n.sink == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		n.logger.Error("failed to marshal change event", "error", err)
		return
	}
	go func() {
		if err := n.sink.PublishEvent(channel, data); err != nil {
			n.logger.Debug("event sink publish failed", "channel", channel, "event", event, "error", err)
		}
	}()
}
