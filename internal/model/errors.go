package model

import "errors"

// Errors returned by data providers. Adapters wrap their infrastructure
// errors with one of these so callers can classify with errors.Is.
var (
	ErrNotFound     = errors.New("series not found")
	ErrRateLimited  = errors.New("data provider rate limit exceeded")
	ErrNetwork      = errors.New("data provider unreachable")
	ErrInvalidKey   = errors.New("invalid series key")
	ErrInvalidBar   = errors.New("bar violates high/low bounds")
	ErrUnordered    = errors.New("bar timestamps not strictly increasing")
	ErrDisconnected = errors.New("live price feed disconnected")
)

// FetchErrorKind names the placeholder category for a fetch failure.
func FetchErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrNetwork):
		return "network"
	default:
		return "unknown"
	}
}
