// Package events fans successful ledger mutations out to downstream
// consumers (indexers, notification systems). Publishing is best-effort and
// off the write path: the ledger state, not the event stream, is the source
// of truth.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/twmb/franz-go/pkg/kgo"

	"certledger/internal/ledger"
)

// Publisher delivers one ledger event to a sink.
type Publisher interface {
	Publish(ctx context.Context, event ledger.Event) error
	Close() error
}

// KafkaPublisher produces certificate events to a Kafka topic, keyed by
// certificate id so per-certificate ordering survives partitioning.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
}

// NewKafkaPublisher connects to the given brokers.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaPublisher{client: client, topic: topic}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, event ledger.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.CertificateID),
		Value: payload,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	p.client.Close()
	return nil
}

// MemoryPublisher collects events in memory for tests and single-process
// deployments without a broker.
type MemoryPublisher struct {
	mu     sync.RWMutex
	events []ledger.Event
}

// NewMemoryPublisher creates an empty in-memory sink.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(_ context.Context, event ledger.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events returns a copy of everything published so far.
func (p *MemoryPublisher) Events() []ledger.Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]ledger.Event, len(p.events))
	copy(out, p.events)
	return out
}

func (p *MemoryPublisher) Close() error {
	return nil
}
