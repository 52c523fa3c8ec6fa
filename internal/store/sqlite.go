package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Open creates or opens a SQLite store at the given path.
func Open(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// OpenMemory creates an in-memory SQLite store (useful for testing).
func OpenMemory() (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", ":memory:?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}

	s := &SQLiteStore{db: db, path: ":memory:"}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(schema)
	return err
}

// schema contains the full database schema. New tables are added here.
const schema = `
CREATE TABLE IF NOT EXISTS documents (
    id TEXT PRIMARY KEY,
    owner TEXT NOT NULL,
    filename TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'pending' CHECK(status IN ('pending','extracted','indexed','failed')),
    analysis TEXT,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_owner ON documents(owner);
CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);

CREATE TABLE IF NOT EXISTS chat_sessions (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL DEFAULT 'anonymous',
    created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS chat_messages (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
    role TEXT NOT NULL CHECK(role IN ('user','assistant','system')),
    content TEXT NOT NULL,
    created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chat_messages_session ON chat_messages(session_id, created_at);
`

func (s *SQLiteStore) CreateDocument(ctx context.Context, owner, filename string) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, owner, filename, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, owner, filename, string(StatusPending), now, now)
	if err != nil {
		return "", fmt.Errorf("creating document: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) UpdateStatus(ctx context.Context, docID string, status Status) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), docID)
	if err != nil {
		return fmt.Errorf("updating status of %s: %w", docID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: document %s", ErrNotFound, docID)
	}
	return nil
}

func (s *SQLiteStore) GetDocument(ctx context.Context, docID string) (*Document, error) {
	var doc Document
	err := s.db.QueryRowContext(ctx,
		`SELECT id, owner, filename, status, created_at, updated_at FROM documents WHERE id = ?`,
		docID).Scan(&doc.ID, &doc.Owner, &doc.Filename, &doc.Status, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: document %s", ErrNotFound, docID)
	}
	if err != nil {
		return nil, fmt.Errorf("reading document %s: %w", docID, err)
	}
	return &doc, nil
}

func (s *SQLiteStore) ListDocuments(ctx context.Context, owner string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner, filename, status, created_at, updated_at
		 FROM documents WHERE owner = ? ORDER BY created_at, id`, owner)
	if err != nil {
		return nil, fmt.Errorf("listing documents for %s: %w", owner, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.Owner, &doc.Filename, &doc.Status, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *SQLiteStore) SaveAnalysis(ctx context.Context, docID string, report json.RawMessage) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET analysis = ?, updated_at = ? WHERE id = ?`,
		string(report), time.Now().UTC(), docID)
	if err != nil {
		return fmt.Errorf("saving analysis for %s: %w", docID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: document %s", ErrNotFound, docID)
	}
	return nil
}

func (s *SQLiteStore) GetAnalysis(ctx context.Context, docID string) (json.RawMessage, error) {
	var analysis sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT analysis FROM documents WHERE id = ?`, docID).Scan(&analysis)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: document %s", ErrNotFound, docID)
	}
	if err != nil {
		return nil, fmt.Errorf("reading analysis for %s: %w", docID, err)
	}
	if !analysis.Valid || analysis.String == "" {
		return nil, fmt.Errorf("%w: analysis for document %s", ErrNotFound, docID)
	}
	return json.RawMessage(analysis.String), nil
}

func (s *SQLiteStore) CreateSession(ctx context.Context, userID string) (*Session, error) {
	sess := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_sessions (id, user_id, created_at) VALUES (?, ?, ?)`,
		sess.ID, sess.UserID, sess.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	return sess, nil
}

func (s *SQLiteStore) AppendMessage(ctx context.Context, sessionID, role, content string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (id, session_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), sessionID, role, content, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("appending message to %s: %w", sessionID, err)
	}
	return nil
}

func (s *SQLiteStore) History(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	query := `SELECT id, session_id, role, content, created_at
	          FROM chat_messages WHERE session_id = ? ORDER BY created_at, id`
	args := []any{sessionID}
	if limit > 0 {
		// Keep the most recent messages, still returned oldest first.
		query = `SELECT id, session_id, role, content, created_at FROM (
		             SELECT id, session_id, role, content, created_at
		             FROM chat_messages WHERE session_id = ?
		             ORDER BY created_at DESC, id DESC LIMIT ?
		         ) ORDER BY created_at, id`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("reading history of %s: %w", sessionID, err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
