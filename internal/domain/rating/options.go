package rating

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithInitialRating sets the rating assigned on a competitor's first appearance.
func WithInitialRating(r float64) Option {
	return func(e *Engine) {
		e.initial = r
	}
}

// WithKFactor sets the maximum rating exchange per event. Non-positive values are ignored.
func WithKFactor(k float64) Option {
	return func(e *Engine) {
		if k > 0 {
			e.k = k
		}
	}
}
