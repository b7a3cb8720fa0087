package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vovakirdan/dialogline/internal/store"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, ApplySchema)
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Tests pass ApplySchema together with an in-memory path.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps ":memory:" on one database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// ApplySchema creates the tables if they do not exist yet.
func ApplySchema(db *sql.DB) error {
	_, err := db.Exec(schemaSQL)
	return err
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveExchange persists an exchange and sets its ID.
func (s *SQLiteStore) SaveExchange(ctx context.Context, ex *store.Exchange) error {
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now()
	}
	ex.CreatedAt = ex.CreatedAt.UTC()

	query := `
		INSERT INTO exchanges (
			request_id, event_id, source, chat_id, sender_id,
			inbound_text, forwarded_text, reply_text, reply_kind,
			lookup_error, delivered, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		ex.RequestID, ex.EventID, ex.Source, ex.ChatID, ex.SenderID,
		ex.InboundText, ex.ForwardedText, ex.ReplyText, ex.ReplyKind,
		ex.LookupError, ex.Delivered, ex.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert exchange: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	ex.ID = id
	return nil
}

// GetExchange retrieves an exchange by ID.
func (s *SQLiteStore) GetExchange(ctx context.Context, id int64) (*store.Exchange, error) {
	query := `
		SELECT id, request_id, event_id, source, chat_id, sender_id,
		       inbound_text, forwarded_text, reply_text, reply_kind,
		       lookup_error, delivered, created_at
		FROM exchanges
		WHERE id = ?
	`
	ex, err := scanExchange(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("exchange %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query exchange: %w", err)
	}
	return ex, nil
}

// ListExchanges returns exchanges newest first.
func (s *SQLiteStore) ListExchanges(ctx context.Context, limit int, beforeID *int64) ([]*store.Exchange, error) {
	limit = store.ClampLimit(limit)

	var query string
	var args []interface{}

	if beforeID != nil {
		query = `
			SELECT id, request_id, event_id, source, chat_id, sender_id,
			       inbound_text, forwarded_text, reply_text, reply_kind,
			       lookup_error, delivered, created_at
			FROM exchanges
			WHERE id < ?
			ORDER BY id DESC
			LIMIT ?
		`
		args = []interface{}{*beforeID, limit}
	} else {
		query = `
			SELECT id, request_id, event_id, source, chat_id, sender_id,
			       inbound_text, forwarded_text, reply_text, reply_kind,
			       lookup_error, delivered, created_at
			FROM exchanges
			ORDER BY id DESC
			LIMIT ?
		`
		args = []interface{}{limit}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query exchanges: %w", err)
	}
	defer rows.Close()

	exchanges := make([]*store.Exchange, 0, limit)
	for rows.Next() {
		ex, err := scanExchange(rows)
		if err != nil {
			return nil, fmt.Errorf("scan exchange: %w", err)
		}
		exchanges = append(exchanges, ex)
	}

	return exchanges, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExchange(row rowScanner) (*store.Exchange, error) {
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

var _ store.Store = (*SQLiteStore)(nil)
