package http

import (
	"context"
	"errors"
	stdhttp "net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/dialogline/internal/auth"
	"github.com/vovakirdan/dialogline/internal/monitor"
	"github.com/vovakirdan/dialogline/internal/proto"
)

// WSHandler upgrades authenticated admin connections and streams monitor events.
type WSHandler struct {
	hub            *monitor.Hub
	authService    *auth.Service
	originPatterns []string
	log            *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler. Browser upgrades are accepted
// from the server's own host and from hosts matching originPatterns.
func NewWSHandler(hub *monitor.Hub, authService *auth.Service, originPatterns []string, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{hub: hub, authService: authService, originPatterns: originPatterns, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	claims, err := h.authService.ValidateToken(tokenFromRequest(r))
	if err != nil {
		h.log.Debug().Err(err).Msg("ws rejected: invalid token")
		stdhttp.Error(w, "invalid token", stdhttp.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	sub := monitor.NewSubscriber(uuid.NewString())
	if !h.hub.Subscribe(sub) {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	defer h.hub.Unsubscribe(sub)

	log := h.log.With().Str("subscriber_id", sub.ID).Str("username", claims.Username).Logger()
	log.Info().Msg("monitor connected")

	// Monitor clients only listen; CloseRead handles their control frames.
	ctx := conn.CloseRead(r.Context())

	hello := proto.Outbound{
		Type: proto.OutboundTypeHello,
		Data: proto.HelloData{Protocol: proto.ProtocolVersion, User: claims.Username},
	}
	if err := wsjson.Write(ctx, conn, hello); err != nil {
		log.Warn().Err(err).Msg("write ws hello")
		return
	}

	err = h.writeLoop(ctx, conn, sub)

	status := websocket.StatusNormalClosure
	reason := "closing"
	switch {
	case err == nil:
		status = websocket.StatusGoingAway
		reason = "server shutting down"
	case errors.Is(err, context.Canceled):
	case websocket.CloseStatus(err) == websocket.StatusNormalClosure,
		websocket.CloseStatus(err) == websocket.StatusGoingAway:
	default:
		status = websocket.StatusInternalError
		reason = "write failed"
		log.Warn().Err(err).Msg("ws connection closed with error")
	}

	log.Info().Msg("monitor disconnected")
	conn.Close(status, reason)
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, sub *monitor.Subscriber) error {
	for {
		select {
		case event, ok := <-sub.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// tokenFromRequest reads the JWT from ?token= or a Bearer header, since
// browsers cannot set headers on WebSocket upgrades.
func tokenFromRequest(r *stdhttp.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
