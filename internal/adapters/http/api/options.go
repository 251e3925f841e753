package api

// DefaultMaxBodyBytes caps ingestion request bodies.
const DefaultMaxBodyBytes = 1 << 20

// Option configures the collect handler.
type Option func(*CollectHandler)

// WithMaxBodyBytes overrides the request body cap.
func WithMaxBodyBytes(n int64) Option {
	return func(h *CollectHandler) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

// WithRequestID replaces the request id generator used when the client
// sends no X-Request-Id.
func WithRequestID(fn func() string) Option {
	return func(h *CollectHandler) {
		if fn != nil {
			h.newRequestID = fn
		}
	}
}
