package llm

import "errors"

// Sentinel errors. The handler layer maps these onto the wire error codes,
// so provider internals never leak to the client.
var (
	ErrNotConfigured  = errors.New("llm: missing API credentials")
	ErrRateLimited    = errors.New("llm: rate limited by provider")
	ErrAuthFailed     = errors.New("llm: authentication failed")
	ErrInvalidRequest = errors.New("llm: invalid request")
	ErrUnavailable    = errors.New("llm: provider unavailable")
)
