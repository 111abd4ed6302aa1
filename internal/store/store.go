// Package store keeps conversation transcripts in a local SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/chatbees/chatbees-go/internal/model"
)

var (
	// ErrNotFound is returned when a conversation is not in the store.
	ErrNotFound = errors.New("conversation not found")

	// ErrNoConversationID is returned when recording messages of a
	// conversation that has no id yet.
	ErrNoConversationID = errors.New("conversation id is required")

	// ErrTenantMismatch is returned when recording into a conversation owned
	// by another tenant.
	ErrTenantMismatch = errors.New("conversation belongs to another tenant")
)

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	conversation_id TEXT PRIMARY KEY,
	tenant_id       TEXT NOT NULL DEFAULT '',
	source_id       TEXT NOT NULL,
	title           TEXT NOT NULL,
	start_ts        INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id TEXT NOT NULL REFERENCES conversations(conversation_id),
	timestamp       INTEGER NOT NULL,
	request_id      TEXT NOT NULL,
	role            TEXT NOT NULL,
	content         TEXT NOT NULL,
	UNIQUE (conversation_id, request_id, role, timestamp)
);
`

// Created after migrate so that older databases have tenant_id by then.
const indexes = `
CREATE INDEX IF NOT EXISTS conversations_source ON conversations(source_id, start_ts);
CREATE INDEX IF NOT EXISTS conversations_tenant ON conversations(tenant_id, start_ts);
`

// TranscriptStore persists conversations. It is safe for concurrent use.
type TranscriptStore struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(ctx context.Context, path string) (*TranscriptStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, indexes); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return &TranscriptStore{db: db}, nil
}

// migrate adds tenant_id to databases created before conversations were
// scoped to a tenant. Existing rows belong to the local tenant "".
func migrate(ctx context.Context, db *sql.DB) error {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info('conversations') WHERE name = 'tenant_id'`).Scan(&n)
	if err != nil {
		return fmt.Errorf("failed to inspect schema: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := db.ExecContext(ctx,
		`ALTER TABLE conversations ADD COLUMN tenant_id TEXT NOT NULL DEFAULT ''`); err != nil {
		return fmt.Errorf("failed to add tenant_id: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *TranscriptStore) Close() error {
	return s.db.Close()
}

// Record stores msgs of a conversation for the tenant carried by ctx (see
// model.WithTenant). Messages already stored are ignored. It implements
// chat.Sink.
func (s *TranscriptStore) Record(ctx context.Context, meta model.ConversationMeta, msgs ...model.Message) error {
	if meta.ConversationID == "" {
		return ErrNoConversationID
	}
	tenantID := model.TenantFrom(ctx)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO conversations (conversation_id, tenant_id, source_id, title, start_ts)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (conversation_id) DO UPDATE SET
			source_id = excluded.source_id,
			title = excluded.title,
			start_ts = excluded.start_ts
		WHERE conversations.tenant_id = excluded.tenant_id`,
		meta.ConversationID, tenantID, meta.SourceID, meta.Title, meta.StartTS)
	if err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	} else if n == 0 {
		return ErrTenantMismatch
	}

	for _, msg := range msgs {
		_, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO messages (conversation_id, timestamp, request_id, role, content)
			VALUES (?, ?, ?, ?, ?)`,
			meta.ConversationID, msg.Timestamp, msg.RequestID, string(msg.Role), msg.Content)
		if err != nil {
			return fmt.Errorf("failed to save message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Save records every message of conv.
func (s *TranscriptStore) Save(ctx context.Context, conv *model.Conversation) error {
	return s.Record(ctx, conv.Meta, conv.Messages...)
}

// Load returns a conversation of tenantID in timestamp order. Messages with
// equal timestamps keep the order in which they were recorded. A conversation
// of another tenant is reported as ErrNotFound.
func (s *TranscriptStore) Load(ctx context.Context, tenantID, conversationID string) (*model.Conversation, error) {
	var meta model.ConversationMeta
	err := s.db.QueryRowContext(ctx, `
		SELECT conversation_id, source_id, title, start_ts
		FROM conversations WHERE conversation_id = ? AND tenant_id = ?`, conversationID, tenantID).
		Scan(&meta.ConversationID, &meta.SourceID, &meta.Title, &meta.StartTS)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, request_id, role, content
		FROM messages WHERE conversation_id = ? ORDER BY id`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		var msg model.Message
		var role string
		if err := rows.Scan(&msg.Timestamp, &msg.RequestID, &role, &msg.Content); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		msg.Role = model.Role(role)
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return model.Restore(meta, msgs), nil
}

// List returns the conversations of tenantID and sourceID, newest first. An
// empty sourceID lists every conversation of the tenant.
func (s *TranscriptStore) List(ctx context.Context, tenantID, sourceID string) ([]model.ConversationMeta, error) {
	query := `SELECT conversation_id, source_id, title, start_ts FROM conversations WHERE tenant_id = ?`
	args := []any{tenantID}
	if sourceID != "" {
		query += ` AND source_id = ?`
		args = append(args, sourceID)
	}
	query += ` ORDER BY start_ts DESC, conversation_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	metas := []model.ConversationMeta{}
	for rows.Next() {
		var meta model.ConversationMeta
		if err := rows.Scan(&meta.ConversationID, &meta.SourceID, &meta.Title, &meta.StartTS); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		metas = append(metas, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return metas, nil
}

// Ping checks that the database is reachable.
func (s *TranscriptStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
