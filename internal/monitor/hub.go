// Package monitor fans recorded exchanges out to live subscribers.
package monitor

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/dialogline/internal/store"
)

const publishBuffer = 64

// Hub owns the subscriber set. All mutations happen on the Run goroutine.
type Hub struct {
	register   chan *Subscriber
	unregister chan *Subscriber
	publish    chan *Event
	done       chan struct{}

	subscribers map[*Subscriber]struct{}
	dropped     atomic.Int64
	log         *zerolog.Logger
}

// NewHub creates a hub. Call Run before subscribing.
func NewHub(logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		register:    make(chan *Subscriber),
		unregister:  make(chan *Subscriber),
		publish:     make(chan *Event, publishBuffer),
		done:        make(chan struct{}),
		subscribers: make(map[*Subscriber]struct{}),
		log:         logger,
	}
}

// Run processes subscriptions and broadcasts until ctx is cancelled.
// On exit every subscriber's Events channel is closed.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case sub := <-h.register:
			h.subscribers[sub] = struct{}{}
			h.log.Debug().Str("subscriber_id", sub.ID).Int("subscribers", len(h.subscribers)).Msg("monitor subscribed")
		case sub := <-h.unregister:
			if _, ok := h.subscribers[sub]; ok {
				delete(h.subscribers, sub)
				close(sub.Events)
				h.log.Debug().Str("subscriber_id", sub.ID).Msg("monitor unsubscribed")
			}
		case ev := <-h.publish:
			h.broadcast(ev)
		case <-ctx.Done():
			for sub := range h.subscribers {
				delete(h.subscribers, sub)
				close(sub.Events)
			}
			return
		}
	}
}

// Subscribe adds sub to the hub. It returns false once the hub has stopped.
func (h *Hub) Subscribe(sub *Subscriber) bool {
	select {
	case h.register <- sub:
		return true
	case <-h.done:
		return false
	}
}

// Unsubscribe removes sub and closes its Events channel.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	select {
	case h.unregister <- sub:
	case <-h.done:
	}
}

// Publish queues ex for broadcast without blocking the caller. When the hub
// is backed up the exchange is not broadcast.
func (h *Hub) Publish(ex *store.Exchange) {
	select {
	case h.publish <- &Event{Kind: EventExchange, Exchange: ex}:
	default:
		h.dropped.Add(1)
	}
}

// Dropped reports how many events were discarded for slow consumers.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

func (h *Hub) broadcast(ev *Event) {
	for sub := range h.subscribers {
		select {
		case sub.Events <- ev:
		default:
			// Drop if slow consumer.
			h.dropped.Add(1)
		}
	}
}
