package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/ShindoSensei/commercenext-mcp-agentv2/pkg/llms"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"

	// pure Go sqlite driver
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on an embedded SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at the given path and
// bootstraps the schema. Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create database directory")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to enable WAL mode")
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to enable foreign keys")
	}

	s := &SQLiteStore{db: db}
	if err := s.createSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.KV(xlog.DEBUG, "status", "sqlite_store_initialized", "path", path)
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS messages (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TEXT NOT NULL,
			FOREIGN KEY (conversation_id) REFERENCES conversations(id)
		);

		CREATE INDEX IF NOT EXISTS idx_messages_conversation
			ON messages(conversation_id, seq);

		CREATE TABLE IF NOT EXISTS tokens (
			conversation_id TEXT PRIMARY KEY,
			token TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS account_urls (
			conversation_id TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return errors.Wrap(err, "failed to create schema")
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveMessage(ctx context.Context, conversationID string, role llms.Role, content string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, created_at, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		conversationID, now, now,
	)
	if err != nil {
		return errors.Wrap(err, "failed to upsert conversation")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO messages (conversation_id, role, content, created_at)
		VALUES (?, ?, ?, ?)`,
		conversationID, string(role), content, now,
	)
	if err != nil {
		return errors.Wrap(err, "failed to insert message")
	}
	return nil
}

func (s *SQLiteStore) History(ctx context.Context, conversationID string) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content FROM messages
		WHERE conversation_id = ?
		ORDER BY seq ASC`,
		conversationID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query messages")
	}
	defer func() {
		_ = rows.Close()
	}()

	var turns []Turn
	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return nil, errors.Wrap(err, "failed to scan message row")
		}
		turns = append(turns, Turn{Role: llms.Role(role), Content: content})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate message rows")
	}
	return turns, nil
}

func (s *SQLiteStore) GetToken(ctx context.Context, conversationID string) (string, error) {
	var token string
	err := s.db.QueryRowContext(ctx,
		`SELECT token FROM tokens WHERE conversation_id = ?`,
		conversationID,
	).Scan(&token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", errors.Wrap(err, "failed to query token")
	}
	return token, nil
}

func (s *SQLiteStore) SetToken(ctx context.Context, conversationID, token string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tokens (conversation_id, token, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(conversation_id) DO UPDATE SET
			token = excluded.token,
			updated_at = excluded.updated_at`,
		conversationID, token, now,
	)
	if err != nil {
		return errors.Wrap(err, "failed to upsert token")
	}
	return nil
}

func (s *SQLiteStore) GetAccountURL(ctx context.Context, conversationID string) (string, error) {
	var url string
	err := s.db.QueryRowContext(ctx,
		`SELECT url FROM account_urls WHERE conversation_id = ?`,
		conversationID,
	).Scan(&url)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", errors.Wrap(err, "failed to query account URL")
	}
	return url, nil
}

func (s *SQLiteStore) StoreAccountURL(ctx context.Context, conversationID, url string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO account_urls (conversation_id, url, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(conversation_id) DO UPDATE SET
			url = excluded.url,
			updated_at = excluded.updated_at`,
		conversationID, url, now,
	)
	if err != nil {
		return errors.Wrap(err, "failed to upsert account URL")
	}
	return nil
}

// ListConversations returns ids of all known conversations, most recently
// updated first.
func (s *SQLiteStore) ListConversations(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM conversations ORDER BY updated_at DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query conversations")
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "failed to scan conversation row")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate conversation rows")
	}
	return ids, nil
}
