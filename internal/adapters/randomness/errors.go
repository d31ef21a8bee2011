package randomness

import "errors"

// Sentinel kinds for randomness adapter errors.
var (
	ErrNoActivator     = errors.New("no activator bound")
	ErrProviderFailure = errors.New("randomness provider failure")
)
