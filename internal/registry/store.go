package registry

import "context"

// StateStore holds the authoritative certificate records. Implementations
// provide per-key check-and-set semantics; serialization of concurrent
// writers is the ledger engine's job, so a store never needs to arbitrate
// between two in-flight mutations.
type StateStore interface {
	// Get returns the record for the id, or sentinel.ErrNotFound.
	Get(ctx context.Context, certificateID string) (Record, error)
	// CreateIfAbsent stores a new record, or returns sentinel.ErrConflict if
	// the id is already taken. Ids are never reusable, even after revocation.
	CreateIfAbsent(ctx context.Context, record Record) error
	// Update applies mutate to the stored record under the store's write lock.
	// Returns sentinel.ErrNotFound when the id has no record; when mutate
	// returns an error the stored record is left untouched.
	Update(ctx context.Context, certificateID string, mutate func(*Record) error) error
	// Len reports the number of records ever issued.
	Len(ctx context.Context) (int, error)
}
