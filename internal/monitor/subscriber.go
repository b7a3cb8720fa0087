package monitor

const subscriberBuffer = 16

// Subscriber is a monitor client as seen by the hub.
type Subscriber struct {
	ID     string
	Events chan *Event
}

// NewSubscriber constructs a subscriber with a buffered event channel.
func NewSubscriber(id string) *Subscriber {
	return &Subscriber{
		ID:     id,
		Events: make(chan *Event, subscriberBuffer),
	}
}
