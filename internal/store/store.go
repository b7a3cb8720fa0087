package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Exchange is one answered webhook event: what came in, what was forwarded
// to the NLU service and what was sent back.
type Exchange struct {
	ID            int64
	RequestID     string
	EventID       string
	Source        string
	ChatID        string
	SenderID      string
	InboundText   string
	ForwardedText string
	ReplyText     string
	ReplyKind     string
	LookupError   string
	Delivered     bool
	CreatedAt     time.Time
}

// ExchangeStore handles exchange persistence.
type ExchangeStore interface {
	// SaveExchange persists an exchange and sets its ID.
	SaveExchange(ctx context.Context, ex *Exchange) error

	// GetExchange retrieves an exchange by ID.
	GetExchange(ctx context.Context, id int64) (*Exchange, error)

	// ListExchanges returns exchanges newest first.
	// If beforeID is provided, returns exchanges older than that ID.
	ListExchanges(ctx context.Context, limit int, beforeID *int64) ([]*Exchange, error)
}

// Store combines all storage interfaces.
type Store interface {
	ExchangeStore

	// Ping checks that the backing database is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying connections.
	Close() error
}

// Listing limits shared by the store implementations.
const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// ClampLimit normalizes a caller-supplied page size.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
