package game

import "errors"

// Sentinel kinds for engine errors. Callers match on these to distinguish
// authorization, state, funds and input failures.
var (
	ErrUnknownGame         = errors.New("unknown game")
	ErrNotOwner            = errors.New("caller is not the game owner")
	ErrWrongState          = errors.New("wrong game state for operation")
	ErrInsufficientPayment = errors.New("payment below entry fee plus randomness fee")
	ErrNoBands             = errors.New("cannot cash out a game with zero bands")
	ErrNotStaleYet         = errors.New("game not stale enough to cancel")
	ErrEmptyPlayer         = errors.New("empty player id")
	ErrRandomnessRequest   = errors.New("randomness request failed")
)
