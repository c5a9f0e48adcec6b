// Package ledger provides the ordered execution environment the registry
// state machine runs inside: every mutating operation is serialized into a
// single agreed sequence by one apply loop, finalized into a numbered block,
// and acknowledged through a pending handle. Reads always evaluate the latest
// committed state and never block mutations, so a just-submitted operation is
// not visible until its handle finalizes.
package ledger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"certledger/internal/commitment"
	"certledger/internal/platform/metrics"
	"certledger/internal/registry"
	dErrors "certledger/pkg/domain-errors"
)

// OpKind names a mutating operation.
type OpKind string

const (
	OpIssue  OpKind = "issue"
	OpRevoke OpKind = "revoke"
)

// Op is one mutating submission. Caller is the identity asserting the
// operation; the registry's guard decides whether it may.
type Op struct {
	Kind           OpKind
	Caller         string
	CertificateID  string
	CommitmentHash commitment.Hash
	Title          string
	Issuer         string
	ExpiresAt      time.Time
}

// Receipt is the definitive outcome of a finalized submission.
type Receipt struct {
	TxID     string
	BlockSeq uint64
	// Err is the operation's domain error, nil on success. The receipt itself
	// finalizing is independent of the operation succeeding.
	Err error
}

// Event is the externally observable side effect of a successful mutation,
// carrying the certificate id for downstream indexing.
type Event struct {
	Action        OpKind    `json:"action"`
	CertificateID string    `json:"certificate_id"`
	TxID          string    `json:"tx_id"`
	BlockSeq      uint64    `json:"block_seq"`
	At            time.Time `json:"at"`
}

// Pending is the handle returned immediately on submission. The operation
// must be treated as invisible to reads until Await (or Done) reports
// finalization.
type Pending struct {
	txID    string
	done    chan struct{}
	receipt Receipt
}

// TxID returns the transaction identifier assigned at submission time.
func (p *Pending) TxID() string {
	return p.txID
}

// Done is closed once the submission has been finalized.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Await blocks until finalization or the caller's deadline. The engine itself
// never times a submission out; an expired context surfaces as
// pending_timeout and the operation may still finalize later.
func (p *Pending) Await(ctx context.Context) (Receipt, error) {
	select {
	case <-p.done:
		return p.receipt, nil
	case <-ctx.Done():
		return Receipt{}, dErrors.Wrap(ctx.Err(), dErrors.CodePendingTimeout, "transaction "+p.txID+" not finalized before deadline")
	}
}

type submission struct {
	op      Op
	pending *Pending
}

// Engine owns the registry state machine and the total order of mutations.
type Engine struct {
	registry    *registry.Registry
	submissions chan *submission
	events      chan Event
	logger      *slog.Logger
	now         func() time.Time
	metrics     *metrics.Metrics

	mu       sync.RWMutex
	head     uint64
	receipts map[string]Receipt
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock overrides the block timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithMetrics attaches block counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithQueueDepth sizes the submission queue.
func WithQueueDepth(depth int) Option {
	return func(e *Engine) {
		e.submissions = make(chan *submission, depth)
	}
}

// NewEngine wraps a registry in an execution environment. Run must be started
// for submissions to finalize.
func NewEngine(reg *registry.Registry, opts ...Option) *Engine {
	e := &Engine{
		registry:    reg,
		submissions: make(chan *submission, 64),
		events:      make(chan Event, 256),
		logger:      slog.Default(),
		now:         time.Now,
		receipts:    make(map[string]Receipt),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Submit enqueues a mutating operation and returns its pending handle. The
// returned handle carries the transaction id; the outcome arrives only via
// finalization.
func (e *Engine) Submit(ctx context.Context, op Op) (*Pending, error) {
	pending := &Pending{
		txID: uuid.NewString(),
		done: make(chan struct{}),
	}
	select {
	case e.submissions <- &submission{op: op, pending: pending}:
		return pending, nil
	case <-ctx.Done():
		return nil, dErrors.Wrap(ctx.Err(), dErrors.CodePendingTimeout, "submission queue full")
	}
}

// Run drains the submission queue, applying one operation at a time. It is
// the single writer against the registry; run it exactly once.
func (e *Engine) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sub := <-e.submissions:
			e.apply(ctx, sub)
		}
	}
}

func (e *Engine) apply(ctx context.Context, sub *submission) {
	var opErr error
	switch sub.op.Kind {
	case OpIssue:
		_, opErr = e.registry.Issue(ctx, sub.op.Caller, registry.IssueInput{
			CertificateID:  sub.op.CertificateID,
			CommitmentHash: sub.op.CommitmentHash,
			Title:          sub.op.Title,
			Issuer:         sub.op.Issuer,
			ExpiresAt:      sub.op.ExpiresAt,
		})
	case OpRevoke:
		_, opErr = e.registry.Revoke(ctx, sub.op.Caller, sub.op.CertificateID)
	default:
		opErr = dErrors.Newf(dErrors.CodeBadRequest, "unknown operation kind %q", sub.op.Kind)
	}

	e.mu.Lock()
	e.head++
	receipt := Receipt{TxID: sub.pending.txID, BlockSeq: e.head, Err: opErr}
	e.receipts[receipt.TxID] = receipt
	e.mu.Unlock()

	sub.pending.receipt = receipt
	close(sub.pending.done)

	if e.metrics != nil {
		e.metrics.BlocksFinalized.Inc()
	}

	if opErr != nil {
		e.logger.WarnContext(ctx, "operation rejected",
			"kind", sub.op.Kind,
			"certificate_id", sub.op.CertificateID,
			"tx_id", receipt.TxID,
			"block_seq", receipt.BlockSeq,
			"error", opErr.Error(),
		)
		return
	}

	event := Event{
		Action:        sub.op.Kind,
		CertificateID: sub.op.CertificateID,
		TxID:          receipt.TxID,
		BlockSeq:      receipt.BlockSeq,
		At:            e.now().UTC(),
	}
	select {
	case e.events <- event:
	default:
		// Dropping beats blocking the apply loop; downstream indexing can
		// rebuild from state.
		e.logger.WarnContext(ctx, "event feed full, dropping event",
			"certificate_id", event.CertificateID, "tx_id", event.TxID)
	}
}

// Events exposes the ordered feed of successful mutations.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// Receipt looks up a finalized transaction by id. ok is false while the
// transaction is still pending or was never submitted.
func (e *Engine) Receipt(txID string) (Receipt, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	receipt, ok := e.receipts[txID]
	return receipt, ok
}

// Head returns the latest finalized block sequence number.
func (e *Engine) Head() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.head
}

// Owner reports the registry owner identity.
func (e *Engine) Owner() string {
	return e.registry.Owner()
}

// GetRecord reads the latest committed state.
func (e *Engine) GetRecord(ctx context.Context, certificateID string) (registry.Record, error) {
	return e.registry.GetRecord(ctx, certificateID)
}

// Verify evaluates a commitment hash against the latest committed state.
func (e *Engine) Verify(ctx context.Context, certificateID string, hash commitment.Hash) registry.VerifyResult {
	return e.registry.Verify(ctx, certificateID, hash)
}
