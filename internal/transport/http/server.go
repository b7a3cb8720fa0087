package http

import (
	"context"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/dialogline/internal/auth"
	"github.com/vovakirdan/dialogline/internal/config"
	"github.com/vovakirdan/dialogline/internal/monitor"
	"github.com/vovakirdan/dialogline/internal/relay"
	"github.com/vovakirdan/dialogline/internal/store"
)

const bannerText = "LINE Bot with Dialogflow is running!"

// EventParser verifies a webhook request and extracts its events.
type EventParser interface {
	Parse(r *stdhttp.Request) ([]relay.InboundEvent, error)
}

// EventHandler answers a single inbound event.
type EventHandler interface {
	Handle(ctx context.Context, ev relay.InboundEvent) error
}

// NewServer builds the HTTP server. authService, st and hub may be nil: the
// admin API and monitor are only mounted when authService is set.
func NewServer(
	parser EventParser,
	handler EventHandler,
	authService *auth.Service,
	st store.Store,
	hub *monitor.Hub,
	cfg *config.Config,
	logger *zerolog.Logger,
) *stdhttp.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(logger))

	router.GET("/", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, bannerText)
	})
	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})
	router.GET("/ready", readyHandler(st, logger))

	webhook := NewWebhookHandler(parser, handler, cfg.Server.MaxBodyBytes, logger)
	router.POST("/callback", webhook.Callback)

	if authService != nil {
		apiHandlers := NewAPIHandlers(authService, st, logger)
		limiter := newRateLimiter(loginAttemptsPerMinute)

		api := router.Group("/api")
		api.POST("/login", limiter.Middleware(), apiHandlers.Login)

		protected := api.Group("")
		protected.Use(AuthMiddleware(authService, logger))
		protected.GET("/exchanges", apiHandlers.ListExchanges)
		protected.GET("/exchanges/:id", apiHandlers.GetExchange)
	}

	// The monitor stays outside gin: gin will not hijack a response its
	// writer already marked as written, which websocket.Accept does.
	mux := stdhttp.NewServeMux()
	mux.Handle("/", router)
	if authService != nil && hub != nil {
		mux.Handle("/ws", NewWSHandler(hub, authService, cfg.Admin.AllowedOrigins, logger))
	}

	return &stdhttp.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}
}

func readyHandler(st store.Store, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if st != nil {
			if err := st.Ping(c.Request.Context()); err != nil {
				logger.Warn().Err(err).Msg("store not ready")
				c.JSON(stdhttp.StatusServiceUnavailable, ErrorResponse{Error: "store unavailable"})
				return
			}
		}
		c.String(stdhttp.StatusOK, "ready")
	}
}
