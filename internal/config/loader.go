package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix            = "DIALOGLINE"
	envConfigDefaultPath = "DIALOGLINE_CONFIG_DEFAULT_PATH"
	defaultConfigName    = "config.yaml"
)

// legacyEnv maps config keys to the environment names the bot was
// historically deployed with. The prefixed name always wins.
var legacyEnv = map[string]string{
	"line.channel_secret":         "LINE_CHANNEL_SECRET",
	"line.channel_access_token":   "LINE_CHANNEL_ACCESS_TOKEN",
	"dialogflow.project_id":       "DIALOGFLOW_PROJECT_ID",
	"dialogflow.credentials_file": "GOOGLE_APPLICATION_CREDENTIALS",
}

// Overrides are values supplied on the command line.
type Overrides struct {
	Addr     string
	LogLevel string
}

// Load builds configuration from defaults, optional config file, env vars, and returns the resolved path.
// Precedence: defaults < config file < env vars < caller overrides (see UpdateFrom).
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, cfg)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return cfg, "", fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	configPath := resolveConfigPath(explicitPath)
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			if writeErr := writeDefaultConfig(configPath, cfg); writeErr != nil && logger != nil {
				logger.Warn().Err(writeErr).Str("path", configPath).Msg("failed to write default config")
			} else if logger != nil {
				logger.Info().Str("path", configPath).Msg("created default config")
			}
			if readErr := v.ReadInConfig(); readErr != nil && logger != nil {
				logger.Warn().Err(readErr).Str("path", configPath).Msg("failed to read config after writing default")
			}
		} else {
			return cfg, configPath, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, configPath, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, configPath, nil
}

// UpdateFrom overwrites values with non-empty command line overrides.
func (c *Config) UpdateFrom(o Overrides) {
	if o.Addr != "" {
		c.Server.Addr = o.Addr
	}
	if o.LogLevel != "" {
		c.Log.Level = o.LogLevel
	}
}

// setDefaults registers every key so AutomaticEnv can resolve it during Unmarshal.
func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.read_header_timeout", cfg.Server.ReadHeaderTimeout)
	v.SetDefault("server.shutdown_timeout", cfg.Server.ShutdownTimeout)
	v.SetDefault("server.max_body_bytes", cfg.Server.MaxBodyBytes)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)

	v.SetDefault("line.channel_secret", cfg.Line.ChannelSecret)
	v.SetDefault("line.channel_access_token", cfg.Line.ChannelAccessToken)
	v.SetDefault("line.api_endpoint", cfg.Line.APIEndpoint)
	v.SetDefault("line.timeout", cfg.Line.Timeout)

	v.SetDefault("dialogflow.project_id", cfg.Dialogflow.ProjectID)
	v.SetDefault("dialogflow.credentials_file", cfg.Dialogflow.CredentialsFile)
	v.SetDefault("dialogflow.language_code", cfg.Dialogflow.LanguageCode)
	v.SetDefault("dialogflow.session_prefix", cfg.Dialogflow.SessionPrefix)
	v.SetDefault("dialogflow.timeout", cfg.Dialogflow.Timeout)

	v.SetDefault("bot.name", cfg.Bot.Name)
	v.SetDefault("bot.greeting", cfg.Bot.Greeting)
	v.SetDefault("bot.not_understood", cfg.Bot.NotUnderstood)
	v.SetDefault("bot.unavailable", cfg.Bot.Unavailable)

	v.SetDefault("store.driver", cfg.Store.Driver)
	v.SetDefault("store.path", cfg.Store.Path)
	v.SetDefault("store.postgres.host", cfg.Store.Postgres.Host)
	v.SetDefault("store.postgres.port", cfg.Store.Postgres.Port)
	v.SetDefault("store.postgres.user", cfg.Store.Postgres.User)
	v.SetDefault("store.postgres.password", cfg.Store.Postgres.Password)
	v.SetDefault("store.postgres.database", cfg.Store.Postgres.Database)
	v.SetDefault("store.postgres.sslmode", cfg.Store.Postgres.SSLMode)
	v.SetDefault("store.postgres.min_conns", cfg.Store.Postgres.MinConns)
	v.SetDefault("store.postgres.max_conns", cfg.Store.Postgres.MaxConns)

	v.SetDefault("admin.username", cfg.Admin.Username)
	v.SetDefault("admin.password_hash", cfg.Admin.PasswordHash)
	v.SetDefault("admin.jwt_secret", cfg.Admin.JWTSecret)
	v.SetDefault("admin.jwt_issuer", cfg.Admin.JWTIssuer)
	v.SetDefault("admin.jwt_audience", cfg.Admin.JWTAudience)
	v.SetDefault("admin.token_ttl", cfg.Admin.TokenTTL)
	v.SetDefault("admin.allowed_origins", cfg.Admin.AllowedOrigins)
}

func resolveConfigPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}

	if base := os.Getenv(envConfigDefaultPath); base != "" {
		if err := os.MkdirAll(base, 0o755); err == nil {
			return filepath.Join(base, defaultConfigName)
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return defaultConfigName
	}
	return filepath.Join(cwd, defaultConfigName)
}

func writeDefaultConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
