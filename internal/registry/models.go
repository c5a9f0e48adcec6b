package registry

import (
	"time"

	"certledger/internal/commitment"
)

// Record is the on-ledger view of one issued certificate. Every field except
// Revoked is immutable after issuance; Revoked only ever flips false to true.
// Identity fields never appear here, only their commitment hash.
type Record struct {
	CertificateID  string          `json:"certificate_id"`
	CommitmentHash commitment.Hash `json:"commitment_hash"`
	Title          string          `json:"title"`
	Issuer         string          `json:"issuer"`
	IssuedAt       time.Time       `json:"issued_at"`
	// ExpiresAt zero value means the certificate never expires.
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   bool      `json:"revoked"`
}

// ExpiredAt reports the derived expiry sub-state. The boundary is inclusive:
// a record with ExpiresAt == T is already expired at T.
func (r Record) ExpiredAt(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// VerifyResult is the structured outcome of a verification. Valid is the
// headline; the remaining fields let a caller tell wrong-hash, revoked,
// expired, and nonexistent apart without a second call. For a certificate
// that was never issued all fields are zero values.
type VerifyResult struct {
	Valid     bool      `json:"valid"`
	IsRevoked bool      `json:"is_revoked"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Title     string    `json:"title"`
	Issuer    string    `json:"issuer"`
}
