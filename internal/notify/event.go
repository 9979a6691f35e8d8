package notify

// Event tags carried on every change notification.
const (
	EventAdd    = "ADD"
	EventEdit   = "EDIT"
	EventDelete = "DELETE"
)

// ChannelUsers is the channel user record changes are published on.
const ChannelUsers = "users"

// Event is the wire form of a single record change.
type Event struct {
	Event string `json:"event"`
	ID    int64  `json:"id"`
}
