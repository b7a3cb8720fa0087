package relay

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// Detector asks the NLU service for the fulfillment text of a message.
type Detector interface {
	DetectIntent(ctx context.Context, sessionKey, text, languageCode string) (string, error)
}

// Replies holds the fixed texts used instead of an NLU answer.
type Replies struct {
	Greeting      string
	NotUnderstood string
	Unavailable   string
}

// NewReplies fills the {bot} placeholder of the greeting.
func NewReplies(botName, greeting, notUnderstood, unavailable string) Replies {
	return Replies{
		Greeting:      strings.ReplaceAll(greeting, "{bot}", botName),
		NotUnderstood: notUnderstood,
		Unavailable:   unavailable,
	}
}

// Resolver turns NLU results into reply text. It never fails: service
// errors become the unavailable text.
type Resolver struct {
	detector Detector
	replies  Replies
	log      *zerolog.Logger
}

// NewResolver creates a resolver over the given detector.
func NewResolver(detector Detector, replies Replies, logger *zerolog.Logger) *Resolver {
	return &Resolver{
		detector: detector,
		replies:  replies,
		log:      logger,
	}
}

// Lookup returns the reply for text within the conversation sessionKey.
func (r *Resolver) Lookup(ctx context.Context, sessionKey, text, languageCode string) ReplyText {
	fulfillment, err := r.detector.DetectIntent(ctx, sessionKey, text, languageCode)
	if err != nil {
		r.log.Error().Err(err).Str("session", sessionKey).Msg("dialogflow detect intent failed")
		return ReplyText{Text: r.replies.Unavailable, Kind: ReplyUnavailable, Err: err}
	}
	if fulfillment == "" {
		return ReplyText{Text: r.replies.NotUnderstood, Kind: ReplyNotUnderstood}
	}
	return ReplyText{Text: fulfillment, Kind: ReplyFulfillment}
}

// Greeting is the reply for a bare mention.
func (r *Resolver) Greeting() ReplyText {
	return ReplyText{Text: r.replies.Greeting, Kind: ReplyGreeting}
}
