package season

import "errors"

// Sentinel kinds for season ledger errors.
var (
	ErrUnknownSeason   = errors.New("unknown season")
	ErrSeasonFinalized = errors.New("season already finalized")
	ErrSeasonNotOver   = errors.New("season not over yet")
	ErrPlayerNotRanked = errors.New("player not on leaderboard")
)
