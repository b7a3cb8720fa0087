package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds server configuration values.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
	Line       LineConfig       `mapstructure:"line" yaml:"line"`
	Dialogflow DialogflowConfig `mapstructure:"dialogflow" yaml:"dialogflow"`
	Bot        BotConfig        `mapstructure:"bot" yaml:"bot"`
	Store      StoreConfig      `mapstructure:"store" yaml:"store"`
	Admin      AdminConfig      `mapstructure:"admin" yaml:"admin"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxBodyBytes      int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
}

// LogConfig selects log verbosity and encoding.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// LineConfig holds LINE Messaging API channel credentials.
type LineConfig struct {
	ChannelSecret      string        `mapstructure:"channel_secret" yaml:"channel_secret"`
	ChannelAccessToken string        `mapstructure:"channel_access_token" yaml:"channel_access_token"`
	APIEndpoint        string        `mapstructure:"api_endpoint" yaml:"api_endpoint"`
	Timeout            time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// DialogflowConfig holds the Dialogflow ES agent settings.
type DialogflowConfig struct {
	ProjectID       string        `mapstructure:"project_id" yaml:"project_id"`
	CredentialsFile string        `mapstructure:"credentials_file" yaml:"credentials_file"`
	LanguageCode    string        `mapstructure:"language_code" yaml:"language_code"`
	SessionPrefix   string        `mapstructure:"session_prefix" yaml:"session_prefix"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// BotConfig holds the bot identity and its canned replies.
// The greeting may contain {bot}, replaced with Name.
type BotConfig struct {
	Name          string `mapstructure:"name" yaml:"name"`
	Greeting      string `mapstructure:"greeting" yaml:"greeting"`
	NotUnderstood string `mapstructure:"not_understood" yaml:"not_understood"`
	Unavailable   string `mapstructure:"unavailable" yaml:"unavailable"`
}

// StoreConfig selects where answered exchanges are recorded.
type StoreConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	// Path is the SQLite database file.
	Path     string         `mapstructure:"path" yaml:"path"`
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres"`
}

// PostgresConfig holds connection settings for the postgres driver.
type PostgresConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	Database string `mapstructure:"database" yaml:"database"`
	SSLMode  string `mapstructure:"sslmode" yaml:"sslmode"`
	MinConns int    `mapstructure:"min_conns" yaml:"min_conns"`
	MaxConns int    `mapstructure:"max_conns" yaml:"max_conns"`
}

// AdminConfig protects the exchange API and the live monitor.
// Both are disabled while JWTSecret is empty.
type AdminConfig struct {
	Username     string        `mapstructure:"username" yaml:"username"`
	PasswordHash string        `mapstructure:"password_hash" yaml:"password_hash"`
	JWTSecret    string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer    string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience  string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	TokenTTL     time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`

	// AllowedOrigins are extra host patterns (path.Match syntax, e.g.
	// "*.example.com") allowed to open the monitor from a browser.
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// Store drivers.
const (
	StoreDriverSQLite   = "sqlite"
	StoreDriverPostgres = "postgres"
	StoreDriverNone     = "none"
)

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:              ":5000",
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   5 * time.Second,
			MaxBodyBytes:      1 << 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Line: LineConfig{
			Timeout: 10 * time.Second,
		},
		Dialogflow: DialogflowConfig{
			LanguageCode:  "th",
			SessionPrefix: "line-bot-session",
			Timeout:       10 * time.Second,
		},
		Bot: BotConfig{
			Name:          "น้องสวพ.",
			Greeting:      "สวัสดีค่ะ หนูชื่อ {bot} คุณต้องการสอบถามอะไรค่ะ?",
			NotUnderstood: "ขออภัย ฉันไม่เข้าใจคำถามของคุณ กรุณาถามใหม่อีกครั้ง",
			Unavailable:   "ขออภัย ระบบกำลังมีปัญหาในการเชื่อมต่อ กรุณาลองใหม่ในภายหลัง",
		},
		Store: StoreConfig{
			Driver: StoreDriverSQLite,
			Path:   "dialogline.db",
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				Database: "dialogline",
				SSLMode:  "disable",
				MinConns: 1,
				MaxConns: 4,
			},
		},
		Admin: AdminConfig{
			Username:    "admin",
			JWTIssuer:   "dialogline",
			JWTAudience: "dialogline-admin",
			TokenTTL:    24 * time.Hour,
		},
	}
}

// AdminEnabled reports whether the admin API and monitor should be served.
func (c *Config) AdminEnabled() bool {
	return c.Admin.JWTSecret != ""
}

// Validate checks the values the relay cannot start without.
func (c *Config) Validate() error {
	var errs []error

	required := []struct {
		key, val string
	}{
		{"line.channel_secret", c.Line.ChannelSecret},
		{"line.channel_access_token", c.Line.ChannelAccessToken},
		{"dialogflow.project_id", c.Dialogflow.ProjectID},
		{"dialogflow.language_code", c.Dialogflow.LanguageCode},
		{"bot.name", c.Bot.Name},
	}
	for _, r := range required {
		if strings.TrimSpace(r.val) == "" {
			errs = append(errs, fmt.Errorf("%s is required", r.key))
		}
	}

	switch c.Store.Driver {
	case StoreDriverSQLite:
		if c.Store.Path == "" {
			errs = append(errs, errors.New("store.path is required for the sqlite driver"))
		}
	case StoreDriverPostgres:
		if c.Store.Postgres.Host == "" || c.Store.Postgres.Database == "" {
			errs = append(errs, errors.New("store.postgres.host and store.postgres.database are required for the postgres driver"))
		}
	case StoreDriverNone:
	default:
		errs = append(errs, fmt.Errorf("store.driver %q is not one of sqlite, postgres, none", c.Store.Driver))
	}

	if c.Admin.PasswordHash != "" && c.Admin.JWTSecret == "" {
		errs = append(errs, errors.New("admin.jwt_secret is required when admin.password_hash is set"))
	}

	return errors.Join(errs...)
}
