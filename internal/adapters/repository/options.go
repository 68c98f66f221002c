package repository

import (
	"time"

	"github.com/okian/gridelo/pkg/logger"
)

const defaultBatchSize = 100

type storeConfig struct {
	now       func() time.Time
	batchSize int
	log       logger.Logger
}

func defaultStoreConfig() storeConfig {
	return storeConfig{now: time.Now, batchSize: defaultBatchSize, log: logger.Nop()}
}

// Option applies a configuration option to a store.
type Option func(*storeConfig)

// WithClock sets the clock that stamps saved ratings.
func WithClock(now func() time.Time) Option {
	return func(c *storeConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// WithBatchSize bounds the number of rows per upsert statement.
func WithBatchSize(n int) Option {
	return func(c *storeConfig) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *storeConfig) {
		if l != nil {
			c.log = l
		}
	}
}
