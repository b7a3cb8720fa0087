package monitor

import "github.com/vovakirdan/dialogline/internal/store"

// EventKind is a notification the hub emits to subscribers.
type EventKind int

const (
	// EventExchange carries a freshly recorded exchange.
	EventExchange EventKind = iota
)

// Event is sent to subscribers to describe what the relay just did.
type Event struct {
	Kind     EventKind
	Exchange *store.Exchange
}
