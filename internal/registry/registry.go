// Package registry implements the certificate registry state machine: the
// per-record lifecycle NonExistent -> Active -> Revoked, the owner guard on
// mutating transitions, and the privacy-preserving verification read.
//
// The package assumes an external ordered execution environment (see
// internal/ledger) applies at most one mutating operation at a time; it holds
// no locks of its own beyond what the state store needs for readers.
package registry

import (
	"context"
	"errors"
	"strings"
	"time"

	"certledger/internal/commitment"
	dErrors "certledger/pkg/domain-errors"
	"certledger/pkg/platform/sentinel"
)

// IssueInput carries everything a new record needs. IssuedAt is assigned by
// the registry, not the caller.
type IssueInput struct {
	CertificateID  string
	CommitmentHash commitment.Hash
	Title          string
	Issuer         string
	// ExpiresAt zero value means the certificate never expires.
	ExpiresAt time.Time
}

// Registry enforces record invariants over a StateStore. The owner identity
// is fixed at construction; ownership transfer is out of scope.
type Registry struct {
	owner string
	store StateStore
	now   func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the time source, mainly for expiry boundary tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// New constructs a Registry owned by the given identity.
func New(owner string, store StateStore, opts ...Option) *Registry {
	r := &Registry{owner: owner, store: store, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Owner returns the identity allowed to issue and revoke.
func (r *Registry) Owner() string {
	return r.owner
}

// requireOwner is the access control guard: it runs before any state change
// and rejects every identity except the registry owner.
func (r *Registry) requireOwner(caller string) error {
	if caller == "" || caller != r.owner {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not the registry owner")
	}
	return nil
}

// Issue creates the record for a never-before-used certificate id.
func (r *Registry) Issue(ctx context.Context, caller string, in IssueInput) (Record, error) {
	if err := r.requireOwner(caller); err != nil {
		return Record{}, err
	}
	if err := validateIssueInput(in); err != nil {
		return Record{}, err
	}

	record := Record{
		CertificateID:  in.CertificateID,
		CommitmentHash: in.CommitmentHash,
		Title:          in.Title,
		Issuer:         in.Issuer,
		IssuedAt:       r.now().UTC(),
		ExpiresAt:      in.ExpiresAt,
	}
	if err := r.store.CreateIfAbsent(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return Record{}, dErrors.Newf(dErrors.CodeAlreadyExists, "certificate %s already exists", in.CertificateID)
		}
		return Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "create record")
	}
	return record, nil
}

// Revoke permanently marks the record revoked. A second revoke is a distinct
// failure, not a no-op, so the caller learns the action had no effect.
func (r *Registry) Revoke(ctx context.Context, caller, certificateID string) (Record, error) {
	if err := r.requireOwner(caller); err != nil {
		return Record{}, err
	}

	var revoked Record
	err := r.store.Update(ctx, certificateID, func(record *Record) error {
		if record.Revoked {
			return dErrors.Newf(dErrors.CodeAlreadyRevoked, "certificate %s is already revoked", certificateID)
		}
		record.Revoked = true
		revoked = *record
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Record{}, dErrors.Newf(dErrors.CodeNotFound, "certificate %s not found", certificateID)
		}
		var domErr *dErrors.Error
		if errors.As(err, &domErr) {
			return Record{}, err
		}
		return Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "revoke record")
	}
	return revoked, nil
}

// GetRecord returns the record as stored, revoked or expired included, so
// callers can tell "revoked" from "not found".
func (r *Registry) GetRecord(ctx context.Context, certificateID string) (Record, error) {
	record, err := r.store.Get(ctx, certificateID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Record{}, dErrors.Newf(dErrors.CodeNotFound, "certificate %s not found", certificateID)
		}
		return Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "get record")
	}
	return record, nil
}

// Verify evaluates a claimed commitment hash against the current state. A
// missing record is a negative result, not an error: "not valid" is
// meaningful verification output. For existing records the descriptive fields
// are always filled in so the caller can see why validity failed.
func (r *Registry) Verify(ctx context.Context, certificateID string, hash commitment.Hash) VerifyResult {
	record, err := r.store.Get(ctx, certificateID)
	if err != nil {
		return VerifyResult{}
	}

	now := r.now()
	return VerifyResult{
		Valid:     record.CommitmentHash == hash && !record.Revoked && !record.ExpiredAt(now),
		IsRevoked: record.Revoked,
		IssuedAt:  record.IssuedAt,
		ExpiresAt: record.ExpiresAt,
		Title:     record.Title,
		Issuer:    record.Issuer,
	}
}

func validateIssueInput(in IssueInput) error {
	if strings.TrimSpace(in.CertificateID) == "" {
		return dErrors.New(dErrors.CodeValidation, "certificate id is required")
	}
	if in.CommitmentHash.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "commitment hash is required")
	}
	if strings.TrimSpace(in.Title) == "" {
		return dErrors.New(dErrors.CodeValidation, "title is required")
	}
	if strings.TrimSpace(in.Issuer) == "" {
		return dErrors.New(dErrors.CodeValidation, "issuer is required")
	}
	return nil
}
