package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"certledger/internal/ledger"
)

func TestWorker(t *testing.T) {
	t.Run("drains the feed into the publisher in order", func(t *testing.T) {
		feed := make(chan ledger.Event, 4)
		publisher := NewMemoryPublisher()
		worker := NewWorker(publisher, feed, nil)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = worker.Run(ctx)
		}()

		feed <- ledger.Event{Action: ledger.OpIssue, CertificateID: "cert-1", BlockSeq: 1}
		feed <- ledger.Event{Action: ledger.OpRevoke, CertificateID: "cert-1", BlockSeq: 2}

		require.Eventually(t, func() bool {
			return len(publisher.Events()) == 2
		}, 5*time.Second, 10*time.Millisecond)

		events := publisher.Events()
		require.Equal(t, ledger.OpIssue, events[0].Action)
		require.Equal(t, ledger.OpRevoke, events[1].Action)
		require.Equal(t, uint64(1), events[0].BlockSeq)

		cancel()
		<-done
	})

	t.Run("a failing publisher does not stop the worker", func(t *testing.T) {
		feed := make(chan ledger.Event, 4)
		failing := &failingPublisher{}
		worker := NewWorker(failing, feed, nil)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() { _ = worker.Run(ctx) }()

		feed <- ledger.Event{CertificateID: "cert-a"}
		feed <- ledger.Event{CertificateID: "cert-b"}

		require.Eventually(t, func() bool {
			return failing.calls.Load() == 2
		}, 5*time.Second, 10*time.Millisecond)
	})
}

type failingPublisher struct {
	calls atomic.Int64
}

func (p *failingPublisher) Publish(context.Context, ledger.Event) error {
	p.calls.Add(1)
	return errors.New("broker down")
}

func (p *failingPublisher) Close() error { return nil }
