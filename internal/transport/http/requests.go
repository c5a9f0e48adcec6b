package httptransport

import "time"

// issueRequest is the owner-facing issuance payload. ValidForDays zero means
// the certificate never expires.
type issueRequest struct {
	SubjectID    string `json:"subject_id"`
	SubjectName  string `json:"subject_name"`
	Title        string `json:"title"`
	Issuer       string `json:"issuer"`
	ValidForDays int    `json:"valid_for_days"`
}

func (r issueRequest) expiresAt(now time.Time) time.Time {
	if r.ValidForDays <= 0 {
		return time.Time{}
	}
	return now.Add(time.Duration(r.ValidForDays) * 24 * time.Hour)
}

// verifyRequest verifies with either an explicit commitment hash or the
// subject fields (resolved against the local commitment store).
type verifyRequest struct {
	CommitmentHash string `json:"commitment_hash,omitempty"`
	SubjectID      string `json:"subject_id,omitempty"`
	SubjectName    string `json:"subject_name,omitempty"`
}
