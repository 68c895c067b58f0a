package docstore

import (
	"context"
	"datepoll/internal/models"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Memory is a Collection held in process memory. Documents are copied on
// the way in and out, so callers never share state with the collection.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]models.Document
}

// NewMemory creates an empty in-memory collection.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]models.Document)}
}

// Add stores doc under a new random identifier.
func (m *Memory) Add(ctx context.Context, doc models.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.New().String()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[id] = doc.Clone()
	return id, nil
}

// Get returns a copy of the document, if present.
func (m *Memory) Get(ctx context.Context, id string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[id]
	if !ok {
		return Snapshot{ID: id}, nil
	}
	return Snapshot{ID: id, Exists: true, Data: doc.Clone()}, nil
}

// Update applies updates to an existing document. The document is left
// untouched if any update is invalid.
func (m *Memory) Update(ctx context.Context, id string, updates []Update) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoDocument, id)
	}
	next := doc.Clone()
	if err := Apply(&next, updates); err != nil {
		return err
	}
	m.docs[id] = next.Clone()
	return nil
}

// Put stores doc under id, replacing any existing document.
func (m *Memory) Put(id string, doc models.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[id] = doc.Clone()
}

// Len reports the number of stored documents.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}
