package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/dialogline/internal/auth"
	"github.com/vovakirdan/dialogline/internal/store"
)

// APIHandlers provides HTTP handlers for the admin REST API.
type APIHandlers struct {
	authService *auth.Service
	exchanges   store.ExchangeStore
	log         *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance. exchanges may be nil
// when recording is disabled.
func NewAPIHandlers(authService *auth.Service, exchanges store.ExchangeStore, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		authService: authService,
		exchanges:   exchanges,
		log:         logger,
	}
}

// LoginRequest represents the login request body.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse represents the authentication response body.
type AuthResponse struct {
	Token string `json:"token"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ExchangeResponse is one recorded exchange.
type ExchangeResponse struct {
	ID            int64     `json:"id"`
	RequestID     string    `json:"request_id,omitempty"`
	EventID       string    `json:"event_id,omitempty"`
	Source        string    `json:"source"`
	ChatID        string    `json:"chat_id"`
	SenderID      string    `json:"sender_id"`
	InboundText   string    `json:"inbound_text"`
	ForwardedText string    `json:"forwarded_text"`
	ReplyText     string    `json:"reply_text"`
	ReplyKind     string    `json:"reply_kind"`
	LookupError   string    `json:"lookup_error,omitempty"`
	Delivered     bool      `json:"delivered"`
	CreatedAt     time.Time `json:"created_at"`
}

// Login handles admin login.
// POST /api/login
func (h *APIHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid login request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	token, err := h.authService.Login(req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			h.log.Warn().Str("username", req.Username).Msg("rejected admin login")
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
		case errors.Is(err, auth.ErrLoginDisabled):
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "login disabled"})
		default:
			h.log.Error().Err(err).Str("username", req.Username).Msg("failed to login user")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	h.log.Info().Str("username", req.Username).Msg("admin logged in")
	c.JSON(http.StatusOK, AuthResponse{Token: token})
}

// ListExchanges returns recent exchanges, newest first.
// GET /api/exchanges?limit=50&before=123
func (h *APIHandlers) ListExchanges(c *gin.Context) {
	if h.exchanges == nil {
		c.JSON(http.StatusOK, []ExchangeResponse{})
		return
	}

	limit := store.DefaultListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = parsed
	}

	var before *int64
	if raw := c.Query("before"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid before"})
			return
		}
		before = &parsed
	}

	exchanges, err := h.exchanges.ListExchanges(c.Request.Context(), store.ClampLimit(limit), before)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list exchanges")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	resp := make([]ExchangeResponse, 0, len(exchanges))
	for _, ex := range exchanges {
		resp = append(resp, toExchangeResponse(ex))
	}
	c.JSON(http.StatusOK, resp)
}

// GetExchange returns a single exchange.
// GET /api/exchanges/:id
func (h *APIHandlers) GetExchange(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid exchange id"})
		return
	}
	if h.exchanges == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "exchange not found"})
		return
	}

	ex, err := h.exchanges.GetExchange(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "exchange not found"})
			return
		}
		h.log.Error().Err(err).Int64("exchange_id", id).Msg("failed to get exchange")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, toExchangeResponse(ex))
}

func toExchangeResponse(ex *store.Exchange) ExchangeResponse {
	return ExchangeResponse{
		ID:            ex.ID,
		RequestID:     ex.RequestID,
		EventID:       ex.EventID,
		Source:        ex.Source,
		ChatID:        ex.ChatID,
		SenderID:      ex.SenderID,
		InboundText:   ex.InboundText,
		ForwardedText: ex.ForwardedText,
		ReplyText:     ex.ReplyText,
		ReplyKind:     ex.ReplyKind,
		LookupError:   ex.LookupError,
		Delivered:     ex.Delivered,
		CreatedAt:     ex.CreatedAt,
	}
}
