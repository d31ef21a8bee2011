package auth

import "errors"

// Sentinel kinds for session-key failures. Each scope check fails with its
// own kind so callers can tell exactly which bound was violated.
var (
	ErrNoSession          = errors.New("no active session")
	ErrSessionActive      = errors.New("owner already has an active session")
	ErrDurationOutOfRange = errors.New("session duration out of range")
	ErrInvalidKey         = errors.New("invalid owner or session key")
	ErrNotSessionKey      = errors.New("caller is not the session key")
	ErrWrongTarget        = errors.New("target not allowed for session")
	ErrSelectorNotAllowed = errors.New("selector not allowed for session")
	ErrSessionExpired     = errors.New("session expired")
	ErrGameMismatch       = errors.New("game id not allowed for session")
	ErrNoSelectors        = errors.New("session needs at least one selector")
)

// Sentinel kinds for operator-allowance failures.
var (
	ErrNotOperator       = errors.New("caller is not an authorized operator")
	ErrAllowanceExceeded = errors.New("operator allowance exceeded")
	ErrInvalidOperator   = errors.New("invalid owner or operator")
	ErrSelfOperator      = errors.New("owner cannot be their own operator")
)
