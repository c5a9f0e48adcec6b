package commitstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"certledger/pkg/platform/sentinel"
)

// FileStore keeps commitment entries in a single JSON file, matching the
// flat local record the issuing workstation holds. Writes go through a
// temp-file rename so a crash never truncates existing entries.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore uses the given path; the file is created on first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Save(ctx context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return err
	}
	for _, existing := range entries {
		if existing.CertificateID == entry.CertificateID {
			return sentinel.ErrConflict
		}
	}
	if entry.SavedAt.IsZero() {
		entry.SavedAt = time.Now().UTC()
	}
	entries = append(entries, entry)
	return s.write(entries)
}

func (s *FileStore) LoadAll(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *FileStore) FindByID(ctx context.Context, certificateID string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return Entry{}, err
	}
	for _, entry := range entries {
		if entry.CertificateID == certificateID {
			return entry, nil
		}
	}
	return Entry{}, sentinel.ErrNotFound
}

func (s *FileStore) read() ([]Entry, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read commitment file: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode commitment file: %w", err)
	}
	return entries, nil
}

func (s *FileStore) write(entries []Entry) error {
	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode commitment file: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create commitment dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".commitments-*")
	if err != nil {
		return fmt.Errorf("write commitment file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write commitment file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write commitment file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write commitment file: %w", err)
	}
	return nil
}
