package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the registry.
type Metrics struct {
	CertificatesIssued  prometheus.Counter
	CertificatesRevoked prometheus.Counter
	Verifications       *prometheus.CounterVec
	BlocksFinalized     prometheus.Counter
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers on a caller-supplied registry, which keeps tests from
// colliding on the global one.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CertificatesIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "certledger_certificates_issued_total",
			Help: "Total number of certificates issued.",
		}),
		CertificatesRevoked: factory.NewCounter(prometheus.CounterOpts{
			Name: "certledger_certificates_revoked_total",
			Help: "Total number of certificates revoked.",
		}),
		Verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "certledger_verifications_total",
			Help: "Total verification requests by outcome.",
		}, []string{"outcome"}),
		BlocksFinalized: factory.NewCounter(prometheus.CounterOpts{
			Name: "certledger_blocks_finalized_total",
			Help: "Total finalized ledger blocks.",
		}),
	}
}

// VerificationOutcome labels for the Verifications counter.
const (
	OutcomeValid       = "valid"
	OutcomeWrongHash   = "wrong_hash"
	OutcomeRevoked     = "revoked"
	OutcomeExpired     = "expired"
	OutcomeNonexistent = "nonexistent"
)
