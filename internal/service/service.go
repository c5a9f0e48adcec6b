// Package service orchestrates the issuing workflow: commitment derivation,
// ledger submission, finalization, and the off-ledger commitment store. It is
// the layer transports talk to.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"certledger/internal/commitment"
	"certledger/internal/commitstore"
	"certledger/internal/ledger"
	"certledger/internal/platform/metrics"
	"certledger/internal/registry"
	"certledger/internal/registry/cache"
	dErrors "certledger/pkg/domain-errors"
	"certledger/pkg/platform/sentinel"
)

// Service wires the ledger engine to the local commitment store.
type Service struct {
	engine       *ledger.Engine
	commits      commitstore.Store
	cache        *cache.RecordCache
	logger       *slog.Logger
	metrics      *metrics.Metrics
	tracer       trace.Tracer
	awaitTimeout time.Duration
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithCache enables the Redis record read cache.
func WithCache(c *cache.RecordCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithAwaitTimeout bounds how long Issue and Revoke wait for finalization
// when the caller's context has no deadline of its own.
func WithAwaitTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.awaitTimeout = d
	}
}

// New constructs a Service.
func New(engine *ledger.Engine, commits commitstore.Store, opts ...Option) *Service {
	s := &Service{
		engine:       engine,
		commits:      commits,
		logger:       slog.Default(),
		tracer:       otel.Tracer("certledger/service"),
		awaitTimeout: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueRequest carries the identity fields and certificate metadata for a
// new issuance. ExpiresAt zero means the certificate never expires.
type IssueRequest struct {
	SubjectID   string
	SubjectName string
	Title       string
	Issuer      string
	ExpiresAt   time.Time
}

// IssueReceipt is the finalized outcome of an issuance plus the off-ledger
// entry the issuer must retain.
type IssueReceipt struct {
	CertificateID  string          `json:"certificate_id"`
	CommitmentHash commitment.Hash `json:"commitment_hash"`
	TxID           string          `json:"tx_id"`
	BlockSeq       uint64          `json:"block_seq"`
	ExpiresAt      time.Time       `json:"expires_at"`
}

// MutationReceipt reports a finalized revocation.
type MutationReceipt struct {
	CertificateID string `json:"certificate_id"`
	TxID          string `json:"tx_id"`
	BlockSeq      uint64 `json:"block_seq"`
}

// IssueCertificate creates a certificate end to end: fresh id and salt,
// commitment, ledger submission, finalization wait, then local persistence
// of the salt and identity fields. The identity fields never reach the
// ledger.
func (s *Service) IssueCertificate(ctx context.Context, caller string, req IssueRequest) (IssueReceipt, error) {
	if err := validateIssueRequest(req); err != nil {
		return IssueReceipt{}, err
	}

	salt, err := commitment.NewSalt()
	if err != nil {
		return IssueReceipt{}, dErrors.Wrap(err, dErrors.CodeInternal, "generate salt")
	}
	certificateID := uuid.NewString()
	hash := commitment.Commit([]byte(req.SubjectID), []byte(req.SubjectName), salt)

	receipt, err := s.submitAndAwait(ctx, ledger.Op{
		Kind:           ledger.OpIssue,
		Caller:         caller,
		CertificateID:  certificateID,
		CommitmentHash: hash,
		Title:          req.Title,
		Issuer:         req.Issuer,
		ExpiresAt:      req.ExpiresAt,
	})
	if err != nil {
		return IssueReceipt{}, err
	}

	entry := commitstore.Entry{
		CertificateID:  certificateID,
		SubjectID:      req.SubjectID,
		SubjectName:    req.SubjectName,
		Salt:           salt,
		CommitmentHash: hash,
		ExpiresAt:      req.ExpiresAt,
		TxID:           receipt.TxID,
		BlockSeq:       receipt.BlockSeq,
	}
	if err := s.commits.Save(ctx, entry); err != nil {
		// The ledger record is durable either way; losing the local entry
		// only makes verification need manual salt entry.
		s.logger.ErrorContext(ctx, "failed to save commitment entry",
			"certificate_id", certificateID, "error", err)
	}

	if s.metrics != nil {
		s.metrics.CertificatesIssued.Inc()
	}
	s.logger.InfoContext(ctx, "certificate issued",
		"certificate_id", certificateID,
		"tx_id", receipt.TxID,
		"block_seq", receipt.BlockSeq,
	)
	return IssueReceipt{
		CertificateID:  certificateID,
		CommitmentHash: hash,
		TxID:           receipt.TxID,
		BlockSeq:       receipt.BlockSeq,
		ExpiresAt:      req.ExpiresAt,
	}, nil
}

// RevokeCertificate permanently revokes a certificate.
func (s *Service) RevokeCertificate(ctx context.Context, caller, certificateID string) (MutationReceipt, error) {
	if strings.TrimSpace(certificateID) == "" {
		return MutationReceipt{}, dErrors.New(dErrors.CodeValidation, "certificate id is required")
	}

	receipt, err := s.submitAndAwait(ctx, ledger.Op{
		Kind:          ledger.OpRevoke,
		Caller:        caller,
		CertificateID: certificateID,
	})
	if err != nil {
		return MutationReceipt{}, err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, certificateID); err != nil {
			s.logger.WarnContext(ctx, "cache invalidation failed",
				"certificate_id", certificateID, "error", err)
		}
	}
	if s.metrics != nil {
		s.metrics.CertificatesRevoked.Inc()
	}
	s.logger.InfoContext(ctx, "certificate revoked",
		"certificate_id", certificateID,
		"tx_id", receipt.TxID,
		"block_seq", receipt.BlockSeq,
	)
	return MutationReceipt{
		CertificateID: certificateID,
		TxID:          receipt.TxID,
		BlockSeq:      receipt.BlockSeq,
	}, nil
}

// VerifyCertificate checks a claimed commitment hash against the ledger.
func (s *Service) VerifyCertificate(ctx context.Context, certificateID string, hash commitment.Hash) registry.VerifyResult {
	ctx, span := s.tracer.Start(ctx, "VerifyCertificate",
		trace.WithAttributes(attribute.String("certificate.id", certificateID)))
	defer span.End()

	result := s.engine.Verify(ctx, certificateID, hash)
	span.SetAttributes(attribute.Bool("certificate.valid", result.Valid))

	if s.metrics != nil {
		s.metrics.Verifications.WithLabelValues(verificationOutcome(result)).Inc()
	}
	return result
}

// VerifyBySubject recomputes the commitment from the locally stored salt and
// verifies it, the convenience path for a holder who kept the local entry.
func (s *Service) VerifyBySubject(ctx context.Context, certificateID, subjectID, subjectName string) (registry.VerifyResult, error) {
	entry, err := s.commits.FindByID(ctx, certificateID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return registry.VerifyResult{}, dErrors.Newf(dErrors.CodeNotFound,
				"no local commitment entry for certificate %s; supply the salt explicitly", certificateID)
		}
		return registry.VerifyResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "load commitment entry")
	}
	hash := commitment.Commit([]byte(subjectID), []byte(subjectName), entry.Salt)
	return s.VerifyCertificate(ctx, certificateID, hash), nil
}

// GetCertificate returns the on-ledger record, through the read cache when
// one is configured.
func (s *Service) GetCertificate(ctx context.Context, certificateID string) (registry.Record, error) {
	if s.cache != nil {
		if record, err := s.cache.Find(ctx, certificateID); err == nil {
			return record, nil
		}
	}
	record, err := s.engine.GetRecord(ctx, certificateID)
	if err != nil {
		return registry.Record{}, err
	}
	if s.cache != nil {
		if err := s.cache.Save(ctx, record); err != nil {
			s.logger.WarnContext(ctx, "cache save failed",
				"certificate_id", certificateID, "error", err)
		}
	}
	return record, nil
}

// Status reports the registry owner and the ledger head.
type Status struct {
	Owner    string `json:"owner"`
	BlockSeq uint64 `json:"block_seq"`
}

// GetStatus returns owner identity and chain head.
func (s *Service) GetStatus(context.Context) Status {
	return Status{Owner: s.engine.Owner(), BlockSeq: s.engine.Head()}
}

// ListLocal returns every locally stored commitment entry.
func (s *Service) ListLocal(ctx context.Context) ([]commitstore.Entry, error) {
	entries, err := s.commits.LoadAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load commitment entries")
	}
	return entries, nil
}

// TxReceipt exposes a finalized transaction's outcome by tx id.
func (s *Service) TxReceipt(txID string) (ledger.Receipt, bool) {
	return s.engine.Receipt(txID)
}

func (s *Service) submitAndAwait(ctx context.Context, op ledger.Op) (ledger.Receipt, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.awaitTimeout)
		defer cancel()
	}

	pending, err := s.engine.Submit(ctx, op)
	if err != nil {
		return ledger.Receipt{}, err
	}
	receipt, err := pending.Await(ctx)
	if err != nil {
		return ledger.Receipt{}, err
	}
	if receipt.Err != nil {
		return ledger.Receipt{}, receipt.Err
	}
	return receipt, nil
}

func validateIssueRequest(req IssueRequest) error {
	switch {
	case strings.TrimSpace(req.SubjectID) == "":
		return dErrors.New(dErrors.CodeValidation, "subject id is required")
	case strings.TrimSpace(req.SubjectName) == "":
		return dErrors.New(dErrors.CodeValidation, "subject name is required")
	case strings.TrimSpace(req.Title) == "":
		return dErrors.New(dErrors.CodeValidation, "title is required")
	case strings.TrimSpace(req.Issuer) == "":
		return dErrors.New(dErrors.CodeValidation, "issuer is required")
	}
	return nil
}

func verificationOutcome(result registry.VerifyResult) string {
	switch {
	case result.Valid:
		return metrics.OutcomeValid
	case result.IssuedAt.IsZero():
		return metrics.OutcomeNonexistent
	case result.IsRevoked:
		return metrics.OutcomeRevoked
	case !result.ExpiresAt.IsZero() && !time.Now().Before(result.ExpiresAt):
		return metrics.OutcomeExpired
	default:
		return metrics.OutcomeWrongHash
	}
}
