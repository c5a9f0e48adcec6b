// Package cache provides an optional Redis read cache for certificate
// records. Cached reads may trail a very recent finalization, which the
// consistency model already permits; revocations invalidate eagerly so the
// staleness window stays within the TTL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"certledger/internal/registry"
	"certledger/pkg/platform/sentinel"
)

const keyPrefix = "certledger:record:"

// RecordCache caches registry records with a short TTL.
type RecordCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a record cache over an existing Redis client.
func New(client *redis.Client, ttl time.Duration) *RecordCache {
	return &RecordCache{client: client, ttl: ttl}
}

// Find returns a cached record, or sentinel.ErrNotFound on a miss.
func (c *RecordCache) Find(ctx context.Context, certificateID string) (registry.Record, error) {
	raw, err := c.client.Get(ctx, keyPrefix+certificateID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return registry.Record{}, sentinel.ErrNotFound
		}
		return registry.Record{}, fmt.Errorf("cache get: %w", err)
	}
	var record registry.Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return registry.Record{}, fmt.Errorf("cache decode: %w", err)
	}
	return record, nil
}

// Save stores a record under its certificate id.
func (c *RecordCache) Save(ctx context.Context, record registry.Record) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+record.CertificateID, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Invalidate drops a cached record, typically on revocation.
func (c *RecordCache) Invalidate(ctx context.Context, certificateID string) error {
	if err := c.client.Del(ctx, keyPrefix+certificateID).Err(); err != nil {
		return fmt.Errorf("cache del: %w", err)
	}
	return nil
}
