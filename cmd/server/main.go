package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/dialogline/internal/app"
	"github.com/vovakirdan/dialogline/internal/config"
	applog "github.com/vovakirdan/dialogline/internal/log"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	configPath string
	overrides  config.Overrides
)

func main() {
	root := &cobra.Command{
		Use:           "dialogline",
		Short:         "LINE webhook relay answering through Dialogflow",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (default: $DIALOGLINE_CONFIG_DEFAULT_PATH or ./config.yaml)")
	root.PersistentFlags().StringVar(&overrides.LogLevel, "log-level", "", "log level override (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&overrides.Addr, "addr", "", "HTTP listen address override")

	root.AddCommand(serveCmd())
	root.AddCommand(hashPasswordCmd())
	root.AddCommand(tokenCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server (default)",
		RunE:  runServe,
	}
}

// loadConfig resolves configuration and builds the logger it asks for.
func loadConfig() (*config.Config, *zerolog.Logger, error) {
	bootLogger := applog.New("info", "console")

	cfg, path, err := config.Load(bootLogger, configPath)
	if err != nil {
		return nil, nil, err
	}
	cfg.UpdateFrom(overrides)

	logger := applog.New(cfg.Log.Level, cfg.Log.Format)
	logger.Debug().Str("path", path).Msg("configuration loaded")
	return &cfg, logger, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	if logger.GetLevel() > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}

	logger.Info().
		Str("version", version).
		Str("addr", cfg.Server.Addr).
		Str("bot", cfg.Bot.Name).
		Msg("starting dialogline")
	if err := application.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

