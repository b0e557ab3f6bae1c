package apiclient

import "time"

// RequestOption adjusts a single call.
type RequestOption func(*requestOptions)

type requestOptions struct {
	ttl       time.Duration
	rateKey   string
	skipCache bool
}

// WithTTL overrides the cache TTL for this call's stored result.
func WithTTL(ttl time.Duration) RequestOption {
	return func(o *requestOptions) { o.ttl = ttl }
}

// WithRateKey overrides the derived rate-limit key for this call.
func WithRateKey(key string) RequestOption {
	return func(o *requestOptions) { o.rateKey = key }
}

// WithoutCache bypasses the cache for this call; the fresh result still
// overwrites any existing entry.
func WithoutCache() RequestOption {
	return func(o *requestOptions) { o.skipCache = true }
}

func applyRequestOptions(path string, opts []RequestOption) requestOptions {
	options := requestOptions{rateKey: rateKeyForPath(path)}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
