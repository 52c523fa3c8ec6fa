// Package store holds document metadata (ownership, filename,
// processing status, analysis report) and chat session history. The
// ingestion pipeline drives document status transitions through it.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound indicates a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Status is a document's position in the ingestion pipeline.
type Status string

const (
	StatusPending   Status = "pending"
	StatusExtracted Status = "extracted"
	StatusIndexed   Status = "indexed"
	StatusFailed    Status = "failed"
)

// Document is the stored metadata for one uploaded document.
type Document struct {
	ID        string    `json:"doc_id"`
	Owner     string    `json:"owner"`
	Filename  string    `json:"filename"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Session is one chat session.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is one chat message within a session.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the document metadata and chat-session store. SQLiteStore is
// the durable implementation; MemoryStore is the offline variant
// selected by configuration.
type Store interface {
	// CreateDocument registers a new document in status pending and
	// returns its generated identifier.
	CreateDocument(ctx context.Context, owner, filename string) (string, error)

	// UpdateStatus moves a document through the ingestion lifecycle.
	UpdateStatus(ctx context.Context, docID string, status Status) error

	// GetDocument returns one document, or ErrNotFound.
	GetDocument(ctx context.Context, docID string) (*Document, error)

	// ListDocuments returns all documents owned by owner, oldest first.
	ListDocuments(ctx context.Context, owner string) ([]Document, error)

	// SaveAnalysis stores the structured analysis report for a document.
	SaveAnalysis(ctx context.Context, docID string, report json.RawMessage) error

	// GetAnalysis returns the stored analysis report, or ErrNotFound.
	GetAnalysis(ctx context.Context, docID string) (json.RawMessage, error)

	// CreateSession opens a new chat session for a user.
	CreateSession(ctx context.Context, userID string) (*Session, error)

	// AppendMessage records one chat message in a session.
	AppendMessage(ctx context.Context, sessionID, role, content string) error

	// History returns the most recent limit messages of a session in
	// chronological order (all messages if limit <= 0).
	History(ctx context.Context, sessionID string, limit int) ([]Message, error)

	Close() error
}
