// Package proto defines the JSON envelopes streamed to monitor clients.
package proto

const (
	ProtocolVersion = 1

	OutboundTypeHello = "hello"
	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventExchange = "exchange"
)

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// HelloData is the first frame on every monitor connection.
type HelloData struct {
	Protocol int    `json:"protocol"`
	User     string `json:"user"`
}

// ExchangeData describes one answered (or attempted) reply.
type ExchangeData struct {
	ID            int64  `json:"id,omitempty"`
	RequestID     string `json:"request_id,omitempty"`
	EventID       string `json:"event_id,omitempty"`
	Source        string `json:"source"`
	ChatID        string `json:"chat_id"`
	SenderID      string `json:"sender_id"`
	InboundText   string `json:"inbound_text"`
	ForwardedText string `json:"forwarded_text"`
	ReplyText     string `json:"reply_text"`
	ReplyKind     string `json:"reply_kind"`
	LookupError   string `json:"lookup_error,omitempty"`
	Delivered     bool   `json:"delivered"`
	TS            int64  `json:"ts"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
