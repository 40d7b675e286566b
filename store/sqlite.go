package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/bishopmatthew/messagecenter/identity"
	"github.com/bishopmatthew/messagecenter/messaging"
	"github.com/bishopmatthew/messagecenter/payload"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	nonce      TEXT    NOT NULL UNIQUE,
	kind       INTEGER NOT NULL,
	body       TEXT    NOT NULL DEFAULT '',
	attachment TEXT,
	sender     INTEGER NOT NULL,
	read       INTEGER NOT NULL DEFAULT 0,
	state      INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS messages_created_at ON messages (created_at, id);
CREATE TABLE IF NOT EXISTS payloads (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	kind       INTEGER NOT NULL,
	body       BLOB    NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS identity (
	id              INTEGER PRIMARY KEY CHECK (id = 1),
	address         TEXT NOT NULL DEFAULT '',
	initial_address TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS flags (
	key   TEXT PRIMARY KEY,
	value INTEGER NOT NULL
);`

const messageColumns = "id, nonce, kind, body, attachment, sender, read, state, created_at"

// SQLite is a durable Store backed by a SQLite database file.
//
// The pool is limited to one connection: every statement is serialized and
// an in-memory database (":memory:") stays a single database.
type SQLite struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	pragmas := []string{"PRAGMA busy_timeout = 5000", "PRAGMA synchronous = FULL"}
	if path != ":memory:" && !strings.HasPrefix(path, "file::memory:") {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "OpenSQLite",
		"path":     path,
	}).Info("Message store opened")

	return &SQLite{db: db, path: path}, nil
}

// LoadAllMessages implements Store.
func (s *SQLite) LoadAllMessages(ctx context.Context) ([]messaging.Message, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+messageColumns+" FROM messages ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var msgs []messaging.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return msgs, nil
}

// SaveMessage implements Store.
func (s *SQLite) SaveMessage(ctx context.Context, msg *messaging.Message) error {
	if msg.ID == 0 {
		return insertMessage(ctx, s.db, msg)
	}

	att, err := encodeAttachment(msg.Attachment)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE messages SET kind = ?, body = ?, attachment = ?, sender = ?, read = ?, state = ? WHERE id = ?",
		msg.Kind, msg.Body, att, msg.Sender, msg.Read, msg.State, msg.ID)
	if err != nil {
		return fmt.Errorf("update failed: %w", err)
	}
	return expectOneRow(res, fmt.Sprintf("message %d", msg.ID))
}

// QueueMessage implements Store.
func (s *SQLite) QueueMessage(ctx context.Context, msg *messaging.Message, p payload.Payload) (payload.Payload, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return payload.Payload{}, fmt.Errorf("begin failed: %w", err)
	}
	defer tx.Rollback()

	saved := *msg
	if err := insertMessage(ctx, tx, &saved); err != nil {
		return payload.Payload{}, err
	}
	queued, err := insertPayload(ctx, tx, p)
	if err != nil {
		return payload.Payload{}, err
	}
	if err := tx.Commit(); err != nil {
		return payload.Payload{}, fmt.Errorf("commit failed: %w", err)
	}

	*msg = saved
	return queued, nil
}

// MergeMessages implements Store.
func (s *SQLite) MergeMessages(ctx context.Context, msgs []messaging.Message) (int, error) {
	if len(msgs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin failed: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR IGNORE INTO messages (nonce, kind, body, attachment, sender, read, state, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return 0, fmt.Errorf("prepare failed: %w", err)
	}
	defer stmt.Close()

	added := 0
	for _, m := range msgs {
		if m.Nonce == "" {
			return 0, fmt.Errorf("message without nonce")
		}
		att, err := encodeAttachment(m.Attachment)
		if err != nil {
			return 0, err
		}
		created := m.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		res, err := stmt.ExecContext(ctx, m.Nonce, m.Kind, m.Body, att, m.Sender, m.Read, m.State, created.UnixNano())
		if err != nil {
			return 0, fmt.Errorf("insert failed: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			added++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit failed: %w", err)
	}
	return added, nil
}

// SetMessageState implements Store.
func (s *SQLite) SetMessageState(ctx context.Context, nonce string, state messaging.State) error {
	res, err := s.db.ExecContext(ctx, "UPDATE messages SET state = ? WHERE nonce = ?", state, nonce)
	if err != nil {
		return fmt.Errorf("update failed: %w", err)
	}
	return expectOneRow(res, "message "+nonce)
}

// MarkRead implements Store.
func (s *SQLite) MarkRead(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	if _, err := s.db.ExecContext(ctx, "UPDATE messages SET read = 1 WHERE id IN ("+placeholders+")", args...); err != nil {
		return fmt.Errorf("update failed: %w", err)
	}
	return nil
}

// UnreadCount implements Store.
func (s *SQLite) UnreadCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM messages WHERE read = 0").Scan(&n); err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	return n, nil
}

// EnqueuePayload implements Store.
func (s *SQLite) EnqueuePayload(ctx context.Context, p payload.Payload) (payload.Payload, error) {
	return insertPayload(ctx, s.db, p)
}

// PendingPayloads implements Store.
func (s *SQLite) PendingPayloads(ctx context.Context, limit int) ([]payload.Payload, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, "SELECT id, kind, body, created_at FROM payloads ORDER BY id LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var out []payload.Payload
	for rows.Next() {
		var (
			p       payload.Payload
			created int64
		)
		if err := rows.Scan(&p.ID, &p.Kind, &p.Body, &created); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		p.CreatedAt = time.Unix(0, created)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return out, nil
}

// DeletePayload implements Store.
func (s *SQLite) DeletePayload(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM payloads WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	return expectOneRow(res, fmt.Sprintf("payload %d", id))
}

// LoadIdentity implements Store.
func (s *SQLite) LoadIdentity(ctx context.Context) (identity.Identity, error) {
	var id identity.Identity
	err := s.db.QueryRowContext(ctx, "SELECT address, initial_address FROM identity WHERE id = 1").
		Scan(&id.Address, &id.InitialAddress)
	if errors.Is(err, sql.ErrNoRows) {
		return identity.Identity{}, nil
	}
	if err != nil {
		return identity.Identity{}, fmt.Errorf("query failed: %w", err)
	}
	return id, nil
}

// SaveIdentity implements Store.
func (s *SQLite) SaveIdentity(ctx context.Context, id identity.Identity) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO identity (id, address, initial_address) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET address = excluded.address, initial_address = excluded.initial_address`,
		id.Address, id.InitialAddress)
	if err != nil {
		return fmt.Errorf("upsert failed: %w", err)
	}
	return nil
}

// LoadFlag implements Store.
func (s *SQLite) LoadFlag(ctx context.Context, key string) (bool, error) {
	var v bool
	err := s.db.QueryRowContext(ctx, "SELECT value FROM flags WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query failed: %w", err)
	}
	return v, nil
}

// SaveFlag implements Store.
func (s *SQLite) SaveFlag(ctx context.Context, key string, value bool) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO flags (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value)
	if err != nil {
		return fmt.Errorf("upsert failed: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertMessage(ctx context.Context, db execer, msg *messaging.Message) error {
	if msg.Nonce == "" {
		return fmt.Errorf("message without nonce")
	}
	att, err := encodeAttachment(msg.Attachment)
	if err != nil {
		return err
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	res, err := db.ExecContext(ctx,
		"INSERT INTO messages (nonce, kind, body, attachment, sender, read, state, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		msg.Nonce, msg.Kind, msg.Body, att, msg.Sender, msg.Read, msg.State, msg.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("insert failed: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert id unavailable: %w", err)
	}
	msg.ID = id
	return nil
}

func insertPayload(ctx context.Context, db execer, p payload.Payload) (payload.Payload, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	res, err := db.ExecContext(ctx,
		"INSERT INTO payloads (kind, body, created_at) VALUES (?, ?, ?)",
		p.Kind, p.Body, p.CreatedAt.UnixNano())
	if err != nil {
		return payload.Payload{}, fmt.Errorf("insert failed: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return payload.Payload{}, fmt.Errorf("insert id unavailable: %w", err)
	}
	p.ID = id
	return p, nil
}

// rowScanner is satisfied by *sql.Rows and *sql.Row.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (messaging.Message, error) {
	var (
		m       messaging.Message
		att     sql.NullString
		created int64
	)
	if err := row.Scan(&m.ID, &m.Nonce, &m.Kind, &m.Body, &att, &m.Sender, &m.Read, &m.State, &created); err != nil {
		return messaging.Message{}, fmt.Errorf("scan failed: %w", err)
	}
	m.CreatedAt = time.Unix(0, created)
	if att.Valid && att.String != "" {
		var a messaging.Attachment
		if err := json.Unmarshal([]byte(att.String), &a); err != nil {
			return messaging.Message{}, fmt.Errorf("message %d: bad attachment: %w", m.ID, err)
		}
		m.Attachment = &a
	}
	return m, nil
}

func encodeAttachment(att *messaging.Attachment) (sql.NullString, error) {
	if att == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(att)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode attachment: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func expectOneRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected unavailable: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
