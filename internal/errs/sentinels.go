// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across client layers.
var (
	// ErrNotFound indicates the requested entity does not exist on the server.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates the server rejected the credentials or the bearer token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates further login attempts are temporarily refused.
	ErrRateLimited = errors.New("rate limited")

	// ErrMalformedToken indicates a bearer token that cannot be decoded.
	ErrMalformedToken = errors.New("malformed token")

	// ErrNotAuthenticated indicates an operation that needs a session was run without one.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrStale indicates a fetch result was discarded because a newer fetch was issued.
	ErrStale = errors.New("stale response")
)
