package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store used in offline mode and in tests.
type MemoryStore struct {
	mu        sync.RWMutex
	documents map[string]*Document
	analyses  map[string]json.RawMessage
	sessions  map[string]*Session
	messages  map[string][]Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		documents: make(map[string]*Document),
		analyses:  make(map[string]json.RawMessage),
		sessions:  make(map[string]*Session),
		messages:  make(map[string][]Message),
	}
}

func (s *MemoryStore) CreateDocument(ctx context.Context, owner, filename string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	doc := &Document{
		ID:        uuid.NewString(),
		Owner:     owner,
		Filename:  filename,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.documents[doc.ID] = doc
	return doc.ID, nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, docID string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[docID]
	if !ok {
		return fmt.Errorf("%w: document %s", ErrNotFound, docID)
	}
	doc.Status = status
	doc.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) GetDocument(ctx context.Context, docID string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[docID]
	if !ok {
		return nil, fmt.Errorf("%w: document %s", ErrNotFound, docID)
	}
	copied := *doc
	return &copied, nil
}

func (s *MemoryStore) ListDocuments(ctx context.Context, owner string) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []Document
	for _, doc := range s.documents {
		if doc.Owner == owner {
			docs = append(docs, *doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.Before(docs[j].CreatedAt)
		}
		return docs[i].ID < docs[j].ID
	})
	return docs, nil
}

func (s *MemoryStore) SaveAnalysis(ctx context.Context, docID string, report json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[docID]
	if !ok {
		return fmt.Errorf("%w: document %s", ErrNotFound, docID)
	}
	s.analyses[docID] = append(json.RawMessage(nil), report...)
	doc.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) GetAnalysis(ctx context.Context, docID string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.documents[docID]; !ok {
		return nil, fmt.Errorf("%w: document %s", ErrNotFound, docID)
	}
	report, ok := s.analyses[docID]
	if !ok {
		return nil, fmt.Errorf("%w: analysis for document %s", ErrNotFound, docID)
	}
	return append(json.RawMessage(nil), report...), nil
}

func (s *MemoryStore) CreateSession(ctx context.Context, userID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	s.sessions[sess.ID] = sess
	copied := *sess
	return &copied, nil
}

func (s *MemoryStore) AppendMessage(ctx context.Context, sessionID, role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}
	s.messages[sessionID] = append(s.messages[sessionID], Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (s *MemoryStore) History(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[sessionID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]Message(nil), msgs...), nil
}

func (s *MemoryStore) Close() error { return nil }
