// Package memstore provides an in-memory track.Store for development and
// testing.
package memstore

import (
	"context"
	"sync"

	"github.com/ozwatch/ozwatch/internal/track"
)

// Store keeps the document in memory behind a mutex. Loads return deep
// copies so callers can mutate freely.
type Store struct {
	mu  sync.RWMutex
	doc track.Document
}

// New returns an empty Store.
func New() *Store {
	return &Store{doc: track.NewDocument()}
}

// Load returns a deep copy of the current document.
func (s *Store) Load(_ context.Context) (track.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone(), nil
}

// Save replaces the document wholesale.
func (s *Store) Save(_ context.Context, doc track.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc.SchemaVersion = track.SchemaVersion
	s.doc = doc.Clone()
	return nil
}
