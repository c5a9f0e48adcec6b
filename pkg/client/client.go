// Package client is a typed HTTP client for the certificate registry API.
// It mirrors the server's wire types so callers do not depend on internal
// packages.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client talks to a certledger server.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sets the bearer token sent on every request. Only mutating
// endpoints require one.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a Client for the given base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("certledger: %s (status %d)", e.Code, e.StatusCode)
	}
	return fmt.Sprintf("certledger: %s: %s (status %d)", e.Code, e.Description, e.StatusCode)
}

// IssueRequest holds the inputs for issuing a certificate.
type IssueRequest struct {
	SubjectID    string `json:"subject_id"`
	SubjectName  string `json:"subject_name"`
	Title        string `json:"title"`
	Issuer       string `json:"issuer"`
	ValidForDays int    `json:"valid_for_days,omitempty"`
}

// IssueReceipt is returned once an issuance has been finalized.
type IssueReceipt struct {
	CertificateID  string    `json:"certificate_id"`
	CommitmentHash string    `json:"commitment_hash"`
	TxID           string    `json:"tx_id"`
	BlockSeq       uint64    `json:"block_seq"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// MutationReceipt is returned for finalized revocations.
type MutationReceipt struct {
	CertificateID string `json:"certificate_id"`
	TxID          string `json:"tx_id"`
	BlockSeq      uint64 `json:"block_seq"`
}

// Record is the public view of a registered certificate.
type Record struct {
	CertificateID  string     `json:"certificate_id"`
	CommitmentHash string     `json:"commitment_hash"`
	Title          string     `json:"title"`
	Issuer         string     `json:"issuer"`
	IssuedAt       time.Time  `json:"issued_at"`
	ExpiresAt      *time.Time `json:"expires_at"`
	Revoked        bool       `json:"revoked"`
}

// VerifyResult reports the outcome of a verification.
type VerifyResult struct {
	Valid     bool       `json:"valid"`
	IsRevoked bool       `json:"is_revoked"`
	IssuedAt  *time.Time `json:"issued_at"`
	ExpiresAt *time.Time `json:"expires_at"`
	Title     string     `json:"title"`
	Issuer    string     `json:"issuer"`
}

// TxStatus reports where a submitted transaction stands.
type TxStatus struct {
	TxID     string `json:"tx_id"`
	BlockSeq uint64 `json:"block_seq"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

// Status is the registry's public status.
type Status struct {
	Owner    string `json:"owner"`
	BlockSeq uint64 `json:"block_seq"`
}

type verifyRequest struct {
	CommitmentHash string `json:"commitment_hash,omitempty"`
	SubjectID      string `json:"subject_id,omitempty"`
	SubjectName    string `json:"subject_name,omitempty"`
}

type ownerResponse struct {
	Owner string `json:"owner"`
}

// Issue registers a new certificate. The call returns once the server has
// finalized the transaction.
func (c *Client) Issue(ctx context.Context, req IssueRequest) (IssueReceipt, error) {
	var receipt IssueReceipt
	err := c.do(ctx, http.MethodPost, "/certificates", req, &receipt)
	return receipt, err
}

// Revoke marks a certificate revoked. Revocation is permanent; revoking an
// already revoked certificate fails.
func (c *Client) Revoke(ctx context.Context, certificateID string) (MutationReceipt, error) {
	var receipt MutationReceipt
	err := c.do(ctx, http.MethodPost, "/certificates/"+certificateID+"/revoke", nil, &receipt)
	return receipt, err
}

// Verify checks a certificate against a hex-encoded commitment hash.
func (c *Client) Verify(ctx context.Context, certificateID, commitmentHash string) (VerifyResult, error) {
	var result VerifyResult
	err := c.do(ctx, http.MethodPost, "/certificates/"+certificateID+"/verify",
		verifyRequest{CommitmentHash: commitmentHash}, &result)
	return result, err
}

// VerifyBySubject checks a certificate by recomputing the commitment from the
// subject fields. The server must hold the salt locally for this to work.
func (c *Client) VerifyBySubject(ctx context.Context, certificateID, subjectID, subjectName string) (VerifyResult, error) {
	var result VerifyResult
	err := c.do(ctx, http.MethodPost, "/certificates/"+certificateID+"/verify",
		verifyRequest{SubjectID: subjectID, SubjectName: subjectName}, &result)
	return result, err
}

// GetCertificate fetches the public record for a certificate.
func (c *Client) GetCertificate(ctx context.Context, certificateID string) (Record, error) {
	var record Record
	err := c.do(ctx, http.MethodGet, "/certificates/"+certificateID, nil, &record)
	return record, err
}

// Owner returns the registry owner identity.
func (c *Client) Owner(ctx context.Context) (string, error) {
	var resp ownerResponse
	err := c.do(ctx, http.MethodGet, "/owner", nil, &resp)
	return resp.Owner, err
}

// Status returns the registry owner and current block height.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var status Status
	err := c.do(ctx, http.MethodGet, "/status", nil, &status)
	return status, err
}

// Tx looks up the status of a submitted transaction.
func (c *Client) Tx(ctx context.Context, txID string) (TxStatus, error) {
	var status TxStatus
	err := c.do(ctx, http.MethodGet, "/tx/"+txID, nil, &status)
	return status, err
}

// WaitForTx polls until the transaction leaves the pending state or the
// context is done.
func (c *Client) WaitForTx(ctx context.Context, txID string, interval time.Duration) (TxStatus, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		status, err := c.Tx(ctx, txID)
		if err != nil {
			return TxStatus{}, err
		}
		if status.Status != "pending" {
			return status, nil
		}
		select {
		case <-ctx.Done():
			return TxStatus{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, into any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil {
			apiErr.Code = "unknown_error"
		}
		return apiErr
	}

	if into == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
