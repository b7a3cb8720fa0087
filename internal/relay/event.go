package relay

import "time"

// SourceKind tells where a message was posted.
type SourceKind string

const (
	// SourceUser is a 1:1 chat with the bot.
	SourceUser SourceKind = "user"
	// SourceGroup is a group chat.
	SourceGroup SourceKind = "group"
	// SourceRoom is a multi-person chat without a group.
	SourceRoom SourceKind = "room"
)

// IsGroup reports whether the source is shared with other people.
func (k SourceKind) IsGroup() bool {
	return k == SourceGroup || k == SourceRoom
}

// InboundEvent is one text message received through the webhook.
type InboundEvent struct {
	EventID string
	Source  SourceKind
	// ChatID is the group or room ID, or the user ID for direct chats.
	ChatID     string
	SenderID   string
	Text       string
	ReplyToken string
	Timestamp  time.Time
}

// Decision is the outcome of routing an event.
type Decision struct {
	Respond bool
	// Text is forwarded to the NLU service.
	Text string
	// Greeting means the bot was addressed with nothing to ask;
	// reply with the greeting instead of looking anything up.
	Greeting bool
}

// ReplyKind classifies where a reply text came from.
type ReplyKind string

const (
	ReplyFulfillment   ReplyKind = "fulfillment"
	ReplyGreeting      ReplyKind = "greeting"
	ReplyNotUnderstood ReplyKind = "not_understood"
	ReplyUnavailable   ReplyKind = "unavailable"
)

// ReplyText is the text to send back. Err carries the lookup failure
// when Kind is ReplyUnavailable.
type ReplyText struct {
	Text string
	Kind ReplyKind
	Err  error
}
