// Package cache stores upstream payloads so repeated runs do not refetch
// immutable historical results.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCache wraps failures of the cache medium. Callers treat them as a miss.
var ErrCache = errors.New("cache failure")

// Store is a byte cache with per-entry TTL. A ttl <= 0 means no expiry.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Nop is a Store that never holds anything.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool, error)       { return nil, false, nil }
func (Nop) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (Nop) Delete(context.Context, string) error                     { return nil }
func (Nop) Close() error                                             { return nil }
