package relay

import "strings"

// Router decides whether an inbound message should be answered.
type Router struct {
	mention string
}

// NewRouter builds a router for a bot addressed as "@<botName>" in groups.
func NewRouter(botName string) *Router {
	return &Router{mention: "@" + botName}
}

// Mention returns the token that addresses the bot in group chats.
func (r *Router) Mention() string {
	return r.mention
}

// Route returns the decision for ev. Direct messages are always answered
// with their text unchanged. Group and room messages are answered only when
// they start with the mention token; a mention later in the text is ignored.
func (r *Router) Route(ev InboundEvent) Decision {
	if !ev.Source.IsGroup() {
		return Decision{
			Respond:  true,
			Text:     ev.Text,
			Greeting: ev.Text == "",
		}
	}

	if !strings.HasPrefix(ev.Text, r.mention) {
		return Decision{}
	}

	start := strings.Index(ev.Text, r.mention) + len(r.mention)
	text := strings.TrimSpace(ev.Text[start:])
	return Decision{
		Respond:  true,
		Text:     text,
		Greeting: text == "",
	}
}

// SessionKey scopes NLU conversation context to a single sender.
func SessionKey(prefix, senderID string) string {
	return prefix + "-" + senderID
}
