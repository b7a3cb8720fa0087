package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vovakirdan/dialogline/internal/config"
	"github.com/vovakirdan/dialogline/internal/store"
)

// schemaSQL is embedded so the relay can bootstrap its own table.
//
//go:embed schema.sql
var schemaSQL string

// PostgresStore implements store.Store on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// New connects, pings and applies the schema. It fails fast if the database is unreachable.
func New(ctx context.Context, cfg config.PostgresConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(BuildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(connectCtx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// BuildConnString builds a PostgreSQL connection string from config.
func BuildConnString(cfg config.PostgresConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(cfg.User),
		url.QueryEscape(cfg.Password),
		cfg.Host,
		port,
		cfg.Database,
		sslMode,
	)
}

// Ping is used by the readiness endpoint.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

// SaveExchange persists an exchange and sets its ID.
func (p *PostgresStore) SaveExchange(ctx context.Context, ex *store.Exchange) error {
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now()
	}
	ex.CreatedAt = ex.CreatedAt.UTC()

	err := p.pool.QueryRow(ctx, `
		INSERT INTO exchanges (
			request_id, event_id, source, chat_id, sender_id,
			inbound_text, forwarded_text, reply_text, reply_kind,
			lookup_error, delivered, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`,
		ex.RequestID, ex.EventID, ex.Source, ex.ChatID, ex.SenderID,
		ex.InboundText, ex.ForwardedText, ex.ReplyText, ex.ReplyKind,
		ex.LookupError, ex.Delivered, ex.CreatedAt,
	).Scan(&ex.ID)
	if err != nil {
		return fmt.Errorf("insert exchange: %w", err)
	}
	return nil
}

// GetExchange retrieves an exchange by ID.
func (p *PostgresStore) GetExchange(ctx context.Context, id int64) (*store.Exchange, error) {
	rows, err := p.pool.Query(ctx, selectExchanges+` WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("query exchange: %w", err)
	}
	ex, err := pgx.CollectExactlyOneRow(rows, scanExchange)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("exchange %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("scan exchange: %w", err)
	}
	return ex, nil
}

// ListExchanges returns exchanges newest first.
func (p *PostgresStore) ListExchanges(ctx context.Context, limit int, beforeID *int64) ([]*store.Exchange, error) {
	limit = store.ClampLimit(limit)

	var (
		rows pgx.Rows
		err  error
	)
	if beforeID != nil {
		rows, err = p.pool.Query(ctx, selectExchanges+` WHERE id < $1 ORDER BY id DESC LIMIT $2`, *beforeID, limit)
	} else {
		rows, err = p.pool.Query(ctx, selectExchanges+` ORDER BY id DESC LIMIT $1`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query exchanges: %w", err)
	}

	exchanges, err := pgx.CollectRows(rows, scanExchange)
	if err != nil {
		return nil, fmt.Errorf("scan exchanges: %w", err)
	}
	return exchanges, nil
}

const selectExchanges = `
	SELECT id, request_id, event_id, source, chat_id, sender_id,
	       inbound_text, forwarded_text, reply_text, reply_kind,
	       lookup_error, delivered, created_at
	FROM exchanges`

func scanExchange(row pgx.CollectableRow) (*store.Exchange, error) {
	var ex store.Exchange
	err := row.Scan(
		&ex.ID,
		&ex.RequestID,
		&ex.EventID,
		&ex.Source,
		&ex.ChatID,
		&ex.SenderID,
		&ex.InboundText,
		&ex.ForwardedText,
		&ex.ReplyText,
		&ex.ReplyKind,
		&ex.LookupError,
		&ex.Delivered,
		&ex.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ex, nil
}

var _ store.Store = (*PostgresStore)(nil)
