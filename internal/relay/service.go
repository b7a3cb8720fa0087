package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/dialogline/internal/store"
)

// Replier sends a text reply to the conversation behind replyToken.
type Replier interface {
	Reply(ctx context.Context, replyToken, text string) error
}

// Publisher receives every recorded exchange, e.g. for live monitoring.
type Publisher interface {
	Publish(ex *store.Exchange)
}

// Options are the bot settings the service needs.
type Options struct {
	BotName       string
	LanguageCode  string
	SessionPrefix string
	Replies       Replies
}

// Service handles inbound events end to end: route, resolve, reply, record.
type Service struct {
	router    *Router
	resolver  *Resolver
	replier   Replier
	exchanges store.ExchangeStore
	publisher Publisher
	opts      Options
	log       *zerolog.Logger
	now       func() time.Time
}

// NewService wires the relay. exchanges and publisher may be nil.
func NewService(
	opts Options,
	detector Detector,
	replier Replier,
	exchanges store.ExchangeStore,
	publisher Publisher,
	logger *zerolog.Logger,
) *Service {
	return &Service{
		router:    NewRouter(opts.BotName),
		resolver:  NewResolver(detector, opts.Replies, logger),
		replier:   replier,
		exchanges: exchanges,
		publisher: publisher,
		opts:      opts,
		log:       logger,
		now:       time.Now,
	}
}

// Handle answers ev at most once. Ignored events cause no calls at all.
// Lookup failures are absorbed into the reply text; a failed reply is
// returned to the caller and not retried.
func (s *Service) Handle(ctx context.Context, ev InboundEvent) error {
	decision := s.router.Route(ev)
	if !decision.Respond {
		s.log.Debug().
			Str("source", string(ev.Source)).
			Str("chat_id", ev.ChatID).
			Msg("message does not address the bot, ignoring")
		return nil
	}

	var reply ReplyText
	if decision.Greeting {
		reply = s.resolver.Greeting()
	} else {
		key := SessionKey(s.opts.SessionPrefix, ev.SenderID)
		reply = s.resolver.Lookup(ctx, key, decision.Text, s.opts.LanguageCode)
	}

	replyErr := s.replier.Reply(ctx, ev.ReplyToken, reply.Text)
	s.record(ctx, ev, decision, reply, replyErr == nil)
	if replyErr != nil {
		return fmt.Errorf("reply: %w", replyErr)
	}

	s.log.Info().
		Str("source", string(ev.Source)).
		Str("sender_id", ev.SenderID).
		Str("reply_kind", string(reply.Kind)).
		Msg("reply sent")
	return nil
}

func (s *Service) record(ctx context.Context, ev InboundEvent, decision Decision, reply ReplyText, delivered bool) {
	if s.exchanges == nil && s.publisher == nil {
		return
	}

	ex := &store.Exchange{
		RequestID:     RequestIDFrom(ctx),
		EventID:       ev.EventID,
		Source:        string(ev.Source),
		ChatID:        ev.ChatID,
		SenderID:      ev.SenderID,
		InboundText:   ev.Text,
		ForwardedText: decision.Text,
		ReplyText:     reply.Text,
		ReplyKind:     string(reply.Kind),
		Delivered:     delivered,
		CreatedAt:     s.now(),
	}
	if reply.Err != nil {
		ex.LookupError = reply.Err.Error()
	}

	if s.exchanges != nil {
		// The reply is already out; a recording failure must not fail the request.
		if err := s.exchanges.SaveExchange(context.WithoutCancel(ctx), ex); err != nil {
			s.log.Warn().Err(err).Str("event_id", ev.EventID).Msg("failed to record exchange")
		}
	}
	if s.publisher != nil {
		s.publisher.Publish(ex)
	}
}

type requestIDKey struct{}

// WithRequestID attaches the inbound HTTP request id to ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the request id set by WithRequestID, or "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
