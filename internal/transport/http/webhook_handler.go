package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/dialogline/internal/line"
)

// WebhookHandler serves the LINE callback endpoint.
type WebhookHandler struct {
	parser       EventParser
	handler      EventHandler
	maxBodyBytes int64
	log          *zerolog.Logger
}

// NewWebhookHandler creates the callback handler. maxBodyBytes <= 0 disables the limit.
func NewWebhookHandler(parser EventParser, handler EventHandler, maxBodyBytes int64, logger *zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		parser:       parser,
		handler:      handler,
		maxBodyBytes: maxBodyBytes,
		log:          logger,
	}
}

// Callback verifies the webhook and answers its events in order.
// POST /callback
func (h *WebhookHandler) Callback(c *gin.Context) {
	if h.maxBodyBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes)
	}
	requestID := c.GetString(ContextKeyRequestID)

	events, err := h.parser.Parse(c.Request)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, line.ErrInvalidSignature):
			h.log.Error().Str("request_id", requestID).Msg("invalid signature, check the channel secret")
			c.String(http.StatusBadRequest, "Invalid signature")
		case errors.As(err, &tooLarge):
			h.log.Warn().Int64("limit", tooLarge.Limit).Str("request_id", requestID).Msg("webhook body too large")
			c.String(http.StatusRequestEntityTooLarge, "Request body too large")
		default:
			h.log.Warn().Err(err).Str("request_id", requestID).Msg("malformed webhook body")
			c.String(http.StatusBadRequest, "Bad request")
		}
		return
	}

	for _, ev := range events {
		if err := h.handler.Handle(c.Request.Context(), ev); err != nil {
			h.log.Error().
				Err(err).
				Str("request_id", requestID).
				Str("event_id", ev.EventID).
				Msg("failed to handle webhook event")
			c.String(http.StatusInternalServerError, "Internal server error")
			return
		}
	}

	c.String(http.StatusOK, "OK")
}
