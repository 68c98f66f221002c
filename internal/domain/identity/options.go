package identity

import "github.com/okian/gridelo/pkg/logger"

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for reload and watch messages.
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// WithAliases seeds the alias table: canonical ID -> spellings seen upstream.
func WithAliases(aliases map[string][]string) Option {
	return func(r *Resolver) {
		if t, err := buildTable(aliases); err == nil {
			r.table.Store(t)
		}
	}
}
