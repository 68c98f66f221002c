// Package worker drains the trigger queue and executes pipeline runs one at a time.
package worker

import (
	"github.com/okian/gridelo/pkg/logger"
)

// Option applies a configuration option to the RunWorker.
type Option func(*RunWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *RunWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *RunWorker) {
		if l != nil {
			w.logger = l
		}
	}
}
