package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/dialogline/internal/auth"
	"github.com/vovakirdan/dialogline/internal/config"
	"github.com/vovakirdan/dialogline/internal/line"
	"github.com/vovakirdan/dialogline/internal/monitor"
	"github.com/vovakirdan/dialogline/internal/nlu/dialogflow"
	"github.com/vovakirdan/dialogline/internal/relay"
	"github.com/vovakirdan/dialogline/internal/store"
	"github.com/vovakirdan/dialogline/internal/store/postgres"
	"github.com/vovakirdan/dialogline/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/dialogline/internal/transport/http"
)

// App wires together the relay, its collaborators and the HTTP transport.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *monitor.Hub
	store           store.Store
	detector        *dialogflow.Client
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	detector, err := dialogflow.New(ctx, cfg.Dialogflow)
	if err != nil {
		closeStore(st, logger)
		return nil, fmt.Errorf("init dialogflow: %w", err)
	}
	logger.Info().
		Str("project_id", cfg.Dialogflow.ProjectID).
		Str("language", cfg.Dialogflow.LanguageCode).
		Msg("dialogflow client ready")

	replier, err := line.NewReplier(line.ReplierConfig{
		ChannelAccessToken: cfg.Line.ChannelAccessToken,
		Endpoint:           cfg.Line.APIEndpoint,
		Timeout:            cfg.Line.Timeout,
	})
	if err != nil {
		_ = detector.Close()
		closeStore(st, logger)
		return nil, fmt.Errorf("init line replier: %w", err)
	}

	hub := monitor.NewHub(logger)

	var exchanges store.ExchangeStore
	if st != nil {
		exchanges = st
	}
	svc := relay.NewService(relay.Options{
		BotName:       cfg.Bot.Name,
		LanguageCode:  cfg.Dialogflow.LanguageCode,
		SessionPrefix: cfg.Dialogflow.SessionPrefix,
		Replies:       relay.NewReplies(cfg.Bot.Name, cfg.Bot.Greeting, cfg.Bot.NotUnderstood, cfg.Bot.Unavailable),
	}, detector, replier, exchanges, hub, logger)

	var authService *auth.Service
	if cfg.AdminEnabled() {
		authService = auth.NewService(cfg.Admin.Username, cfg.Admin.PasswordHash, JWTConfig(cfg.Admin))
		logger.Info().Str("username", cfg.Admin.Username).Msg("admin api enabled")
	}

	server := transporthttp.NewServer(line.NewParser(cfg.Line.ChannelSecret), svc, authService, st, hub, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.Server.ShutdownTimeout,
		hub:             hub,
		store:           st,
		detector:        detector,
		log:             logger,
	}, nil
}

// JWTConfig maps the admin section onto the token settings.
func JWTConfig(admin config.AdminConfig) *auth.JWTConfig {
	return &auth.JWTConfig{
		Secret:   []byte(admin.JWTSecret),
		Issuer:   admin.JWTIssuer,
		Audience: admin.JWTAudience,
		TTL:      admin.TokenTTL,
	}
}

// openStore returns a nil Store for the "none" driver.
func openStore(ctx context.Context, cfg config.StoreConfig, logger *zerolog.Logger) (store.Store, error) {
	switch cfg.Driver {
	case config.StoreDriverSQLite:
		st, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("db_path", cfg.Path).Msg("database initialized")
		return st, nil
	case config.StoreDriverPostgres:
		st, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		logger.Info().
			Str("host", cfg.Postgres.Host).
			Str("database", cfg.Postgres.Database).
			Msg("database initialized")
		return st, nil
	case config.StoreDriverNone:
		logger.Info().Msg("exchange recording disabled")
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go a.hub.Run(hubCtx)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		// Monitor connections are hijacked and not tracked by Shutdown.
		stopHub()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes the database and the Dialogflow connection.
func (a *App) cleanup() {
	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close dialogflow client")
		}
	}
	closeStore(a.store, a.log)
}

func closeStore(st store.Store, logger *zerolog.Logger) {
	if st == nil {
		return
	}
	if err := st.Close(); err != nil {
		logger.Warn().Err(err).Msg("failed to close store")
	} else {
		logger.Info().Msg("store closed")
	}
}
