// Package commitstore persists, per issued certificate, the salt and
// plaintext identity fields needed to recompute the commitment hash later.
// It lives outside the ledger's trust boundary: losing it makes verification
// impossible, leaking it exposes identities, but neither corrupts the ledger.
package commitstore

import (
	"context"
	"time"

	"certledger/internal/commitment"
)

// Entry is one issued certificate's off-ledger secrets plus the submission
// receipt metadata needed to cross-reference the ledger.
type Entry struct {
	CertificateID  string          `json:"certificate_id"`
	SubjectID      string          `json:"subject_id"`
	SubjectName    string          `json:"subject_name"`
	Salt           []byte          `json:"salt"`
	CommitmentHash commitment.Hash `json:"commitment_hash"`
	ExpiresAt      time.Time       `json:"expires_at"`
	TxID           string          `json:"tx_id"`
	BlockSeq       uint64          `json:"block_seq"`
	SavedAt        time.Time       `json:"saved_at"`
}

// Store is the local commitment store interface. Save is called once per
// issuance; FindByID returns sentinel.ErrNotFound for unknown ids.
type Store interface {
	Save(ctx context.Context, entry Entry) error
	LoadAll(ctx context.Context) ([]Entry, error)
	FindByID(ctx context.Context, certificateID string) (Entry, error)
}
