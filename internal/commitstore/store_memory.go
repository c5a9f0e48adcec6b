package commitstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"certledger/pkg/platform/sentinel"
)

// InMemoryStore keeps commitment entries in a map, for tests and ephemeral
// setups.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[string]Entry), now: time.Now}
}

func (s *InMemoryStore) Save(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[entry.CertificateID]; exists {
		return sentinel.ErrConflict
	}
	if entry.SavedAt.IsZero() {
		entry.SavedAt = s.now().UTC()
	}
	s.entries[entry.CertificateID] = entry
	return nil
}

func (s *InMemoryStore) LoadAll(_ context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SavedAt.Before(out[j].SavedAt) })
	return out, nil
}

func (s *InMemoryStore) FindByID(_ context.Context, certificateID string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[certificateID]
	if !ok {
		return Entry{}, sentinel.ErrNotFound
	}
	return entry, nil
}
