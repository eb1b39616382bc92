package ports

import "context"

// RequestClass buckets requests for rate limiting. Login attempts get the
// strictest budget, reads the most permissive, all other mutations sit in
// between.
type RequestClass string

const (
	ClassRead  RequestClass = "read"
	ClassWrite RequestClass = "write"
	ClassLogin RequestClass = "login"
)

// RateLimiter enforces fixed-window limits per (identity, class) against
// the shared store, making the decision cluster-wide. Implementations MUST
// be safe for concurrent use.
type RateLimiter interface {
	// Allow consumes one request unit and reports whether it is permitted.
	// Once a window's counter reaches the limit it is frozen until expiry.
	Allow(ctx context.Context, identity string, class RequestClass) (bool, error)
	// Remaining reports how many requests are left in the current window.
	Remaining(ctx context.Context, identity string, class RequestClass) (int, error)
	// ResetSeconds reports seconds until the current window lapses, 0 if none is active.
	ResetSeconds(ctx context.Context, identity string, class RequestClass) (int, error)
	// Limit returns the configured ceiling for a class.
	Limit(class RequestClass) int
}
