package httptransport

import (
	"time"

	"certledger/internal/registry"
)

// recordResponse flattens a registry record for JSON, rendering the
// never-expires sentinel as a null expires_at.
type recordResponse struct {
	CertificateID  string     `json:"certificate_id"`
	CommitmentHash string     `json:"commitment_hash"`
	Title          string     `json:"title"`
	Issuer         string     `json:"issuer"`
	IssuedAt       time.Time  `json:"issued_at"`
	ExpiresAt      *time.Time `json:"expires_at"`
	Revoked        bool       `json:"revoked"`
}

func toRecordResponse(record registry.Record) recordResponse {
	resp := recordResponse{
		CertificateID:  record.CertificateID,
		CommitmentHash: record.CommitmentHash.String(),
		Title:          record.Title,
		Issuer:         record.Issuer,
		IssuedAt:       record.IssuedAt,
		Revoked:        record.Revoked,
	}
	if !record.ExpiresAt.IsZero() {
		expiresAt := record.ExpiresAt
		resp.ExpiresAt = &expiresAt
	}
	return resp
}

type verifyResponse struct {
	Valid     bool       `json:"valid"`
	IsRevoked bool       `json:"is_revoked"`
	IssuedAt  *time.Time `json:"issued_at"`
	ExpiresAt *time.Time `json:"expires_at"`
	Title     string     `json:"title"`
	Issuer    string     `json:"issuer"`
}

func toVerifyResponse(result registry.VerifyResult) verifyResponse {
	resp := verifyResponse{
		Valid:     result.Valid,
		IsRevoked: result.IsRevoked,
		Title:     result.Title,
		Issuer:    result.Issuer,
	}
	if !result.IssuedAt.IsZero() {
		issuedAt := result.IssuedAt
		resp.IssuedAt = &issuedAt
	}
	if !result.ExpiresAt.IsZero() {
		expiresAt := result.ExpiresAt
		resp.ExpiresAt = &expiresAt
	}
	return resp
}

type txResponse struct {
	TxID     string `json:"tx_id"`
	BlockSeq uint64 `json:"block_seq"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

type ownerResponse struct {
	Owner string `json:"owner"`
}
