package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"certledger/internal/commitment"
	dErrors "certledger/pkg/domain-errors"
)

const ownerIdentity = "registrar@example.edu"

type RegistrySuite struct {
	suite.Suite
	now      time.Time
	registry *Registry
	store    *InMemoryStateStore
}

func (s *RegistrySuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.store = NewInMemoryStateStore()
	s.registry = New(ownerIdentity, s.store, WithClock(func() time.Time { return s.now }))
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) issue(certID string, hash commitment.Hash, expiresAt time.Time) Record {
	record, err := s.registry.Issue(context.Background(), ownerIdentity, IssueInput{
		CertificateID:  certID,
		CommitmentHash: hash,
		Title:          "Distributed Systems",
		Issuer:         "Example University",
		ExpiresAt:      expiresAt,
	})
	s.Require().NoError(err)
	return record
}

func (s *RegistrySuite) TestIssue() {
	ctx := context.Background()
	hash := commitment.Commit([]byte("210101001"), []byte("Jane Doe"), []byte("salt"))

	s.Run("creates an active record with issuance time", func() {
		record := s.issue("cert-1", hash, time.Time{})
		s.Equal("cert-1", record.CertificateID)
		s.Equal(hash, record.CommitmentHash)
		s.Equal(s.now, record.IssuedAt)
		s.False(record.Revoked)
	})

	s.Run("rejects a reused certificate id and keeps the first record", func() {
		first := s.issue("cert-dup", hash, time.Time{})

		_, err := s.registry.Issue(ctx, ownerIdentity, IssueInput{
			CertificateID:  "cert-dup",
			CommitmentHash: commitment.Commit([]byte("x"), []byte("y"), []byte("z")),
			Title:          "Another Title",
			Issuer:         "Another Issuer",
		})
		s.Require().True(dErrors.HasCode(err, dErrors.CodeAlreadyExists))

		stored, err := s.registry.GetRecord(ctx, "cert-dup")
		s.Require().NoError(err)
		s.Equal(first, stored)
	})

	s.Run("rejects a reused id even after revocation", func() {
		s.issue("cert-gone", hash, time.Time{})
		_, err := s.registry.Revoke(ctx, ownerIdentity, "cert-gone")
		s.Require().NoError(err)

		_, err = s.registry.Issue(ctx, ownerIdentity, IssueInput{
			CertificateID:  "cert-gone",
			CommitmentHash: hash,
			Title:          "Distributed Systems",
			Issuer:         "Example University",
		})
		s.Require().True(dErrors.HasCode(err, dErrors.CodeAlreadyExists))
	})

	s.Run("rejects incomplete input", func() {
		_, err := s.registry.Issue(ctx, ownerIdentity, IssueInput{CertificateID: "cert-x"})
		s.Require().True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *RegistrySuite) TestAccessControl() {
	ctx := context.Background()
	hash := commitment.Commit([]byte("id"), []byte("name"), []byte("salt"))

	s.Run("non-owner issue is rejected before any state change", func() {
		_, err := s.registry.Issue(ctx, "intruder@example.com", IssueInput{
			CertificateID:  "cert-denied",
			CommitmentHash: hash,
			Title:          "T",
			Issuer:         "I",
		})
		s.Require().True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

		_, err = s.registry.GetRecord(ctx, "cert-denied")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("non-owner revoke leaves the record unchanged", func() {
		record := s.issue("cert-guarded", hash, time.Time{})

		_, err := s.registry.Revoke(ctx, "intruder@example.com", "cert-guarded")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

		stored, err := s.registry.GetRecord(ctx, "cert-guarded")
		s.Require().NoError(err)
		s.Equal(record, stored)
	})

	s.Run("empty caller identity is rejected", func() {
		_, err := s.registry.Revoke(ctx, "", "cert-guarded")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("owner accessor reports the configured identity", func() {
		s.Equal(ownerIdentity, s.registry.Owner())
	})
}

func (s *RegistrySuite) TestRevoke() {
	ctx := context.Background()
	hash := commitment.Commit([]byte("id"), []byte("name"), []byte("salt"))

	s.Run("flips revoked exactly once", func() {
		s.issue("cert-r1", hash, time.Time{})

		record, err := s.registry.Revoke(ctx, ownerIdentity, "cert-r1")
		s.Require().NoError(err)
		s.True(record.Revoked)

		_, err = s.registry.Revoke(ctx, ownerIdentity, "cert-r1")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeAlreadyRevoked))

		stored, err := s.registry.GetRecord(ctx, "cert-r1")
		s.Require().NoError(err)
		s.True(stored.Revoked)
	})

	s.Run("revoking a missing certificate reports not found", func() {
		_, err := s.registry.Revoke(ctx, ownerIdentity, "cert-never-issued")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("revocation preserves immutable fields", func() {
		issued := s.issue("cert-r2", hash, s.now.Add(24*time.Hour))
		_, err := s.registry.Revoke(ctx, ownerIdentity, "cert-r2")
		s.Require().NoError(err)

		stored, err := s.registry.GetRecord(ctx, "cert-r2")
		s.Require().NoError(err)
		s.Equal(issued.CommitmentHash, stored.CommitmentHash)
		s.Equal(issued.Title, stored.Title)
		s.Equal(issued.Issuer, stored.Issuer)
		s.Equal(issued.IssuedAt, stored.IssuedAt)
		s.Equal(issued.ExpiresAt, stored.ExpiresAt)
	})
}

func (s *RegistrySuite) TestVerify() {
	ctx := context.Background()
	hash := commitment.Commit([]byte("210101001"), []byte("Jane Doe"), []byte("salt"))
	wrongHash := commitment.Commit([]byte("210101001"), []byte("Jane Doe"), []byte("other-salt"))

	s.Run("matching hash on an active record is valid", func() {
		s.issue("cert-v1", hash, time.Time{})
		result := s.registry.Verify(ctx, "cert-v1", hash)
		s.True(result.Valid)
		s.False(result.IsRevoked)
		s.Equal("Distributed Systems", result.Title)
		s.Equal("Example University", result.Issuer)
		s.Equal(s.now, result.IssuedAt)
	})

	s.Run("wrong hash is invalid but still describes the record", func() {
		s.issue("cert-v2", hash, time.Time{})
		result := s.registry.Verify(ctx, "cert-v2", wrongHash)
		s.False(result.Valid)
		s.False(result.IsRevoked)
		s.Equal("Distributed Systems", result.Title)
	})

	s.Run("nonexistent certificate degrades to zero values", func() {
		result := s.registry.Verify(ctx, "cert-ghost", hash)
		s.Equal(VerifyResult{}, result)
	})

	s.Run("revoked certificate reports revocation truthfully even with a wrong hash", func() {
		s.issue("cert-v3", hash, time.Time{})
		_, err := s.registry.Revoke(ctx, ownerIdentity, "cert-v3")
		s.Require().NoError(err)

		result := s.registry.Verify(ctx, "cert-v3", hash)
		s.False(result.Valid)
		s.True(result.IsRevoked)

		result = s.registry.Verify(ctx, "cert-v3", wrongHash)
		s.False(result.Valid)
		s.True(result.IsRevoked)
	})
}

func (s *RegistrySuite) TestExpiryBoundary() {
	ctx := context.Background()
	hash := commitment.Commit([]byte("id"), []byte("name"), []byte("salt"))
	expiry := s.now.Add(time.Hour)
	s.issue("cert-exp", hash, expiry)

	s.Run("valid one second before expiry", func() {
		s.now = expiry.Add(-time.Second)
		result := s.registry.Verify(ctx, "cert-exp", hash)
		s.True(result.Valid)
	})

	s.Run("invalid exactly at expiry", func() {
		s.now = expiry
		result := s.registry.Verify(ctx, "cert-exp", hash)
		s.False(result.Valid)
		s.False(result.IsRevoked)
	})

	s.Run("zero expiry never expires", func() {
		s.now = s.now.Add(100 * 365 * 24 * time.Hour)
		s.issue("cert-forever", hash, time.Time{})
		result := s.registry.Verify(ctx, "cert-forever", hash)
		s.True(result.Valid)
	})
}
