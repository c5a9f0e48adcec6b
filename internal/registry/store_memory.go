package registry

import (
	"context"
	"sync"

	"certledger/pkg/platform/sentinel"
)

// InMemoryStateStore keeps certificate records in a map. It is the default
// backing for the ledger engine: mutations arrive pre-serialized, the mutex
// only shields concurrent readers.
type InMemoryStateStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewInMemoryStateStore creates an empty state store.
func NewInMemoryStateStore() *InMemoryStateStore {
	return &InMemoryStateStore{records: make(map[string]Record)}
}

func (s *InMemoryStateStore) Get(_ context.Context, certificateID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[certificateID]
	if !ok {
		return Record{}, sentinel.ErrNotFound
	}
	return record, nil
}

func (s *InMemoryStateStore) CreateIfAbsent(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[record.CertificateID]; exists {
		return sentinel.ErrConflict
	}
	s.records[record.CertificateID] = record
	return nil
}

func (s *InMemoryStateStore) Update(_ context.Context, certificateID string, mutate func(*Record) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[certificateID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if err := mutate(&record); err != nil {
		return err
	}
	s.records[certificateID] = record
	return nil
}

func (s *InMemoryStateStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}
