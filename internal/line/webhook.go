// Package line adapts the LINE Messaging API SDK to the relay: it verifies
// and parses webhook requests into relay events and sends text replies.
package line

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/vovakirdan/dialogline/internal/relay"
)

// ErrInvalidSignature is returned when X-Line-Signature does not match the body.
var ErrInvalidSignature = errors.New("invalid signature")

// Parser verifies and decodes webhook requests for one channel.
type Parser struct {
	channelSecret string
}

// NewParser creates a parser for the channel secret.
func NewParser(channelSecret string) *Parser {
	return &Parser{channelSecret: channelSecret}
}

// Parse checks the request signature and returns the text message events it
// carries, in delivery order. Other event and message types are skipped.
func (p *Parser) Parse(r *http.Request) ([]relay.InboundEvent, error) {
	cb, err := webhook.ParseRequest(p.channelSecret, r)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			return nil, ErrInvalidSignature
		}
		return nil, fmt.Errorf("parse webhook: %w", err)
	}

	events := make([]relay.InboundEvent, 0, len(cb.Events))
	for _, raw := range cb.Events {
		ev, ok := toInboundEvent(raw)
		if ok {
			events = append(events, ev)
		}
	}
	return events, nil
}

func toInboundEvent(raw webhook.EventInterface) (relay.InboundEvent, bool) {
	msg, ok := raw.(webhook.MessageEvent)
	if !ok {
		return relay.InboundEvent{}, false
	}
	text, ok := msg.Message.(webhook.TextMessageContent)
	if !ok {
		return relay.InboundEvent{}, false
	}

	ev := relay.InboundEvent{
		EventID:    msg.WebhookEventId,
		Text:       text.Text,
		ReplyToken: msg.ReplyToken,
		Timestamp:  time.UnixMilli(msg.Timestamp),
	}

	switch src := msg.Source.(type) {
	case webhook.UserSource:
		ev.Source = relay.SourceUser
		ev.SenderID = src.UserId
		ev.ChatID = src.UserId
	case webhook.GroupSource:
		ev.Source = relay.SourceGroup
		ev.SenderID = src.UserId
		ev.ChatID = src.GroupId
	case webhook.RoomSource:
		ev.Source = relay.SourceRoom
		ev.SenderID = src.UserId
		ev.ChatID = src.RoomId
	default:
		return relay.InboundEvent{}, false
	}

	return ev, true
}
