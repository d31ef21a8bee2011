// Package simulate drives a running bandrush server with synthetic
// players: each player starts games, pushes bands until a target count or
// an explosion, cashes out, and the run ends by checking the leaderboard.
package simulate

import "time"

// Default run parameters.
const (
	defaultPlayers       = 20
	defaultGamesPer      = 5
	defaultTargetBands   = 6
	defaultTimeout       = 10 * time.Second
	defaultActivatePoll  = 25 * time.Millisecond
	defaultActivateLimit = 5 * time.Second
)

// Config holds the simulation run parameters.
type Config struct {
	BaseURL     string
	Players     int
	GamesPer    int
	TargetBands int
	Timeout     time.Duration
	Verbose     bool
}

// Stats accumulates run results.
type Stats struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	GamesStarted int
	GamesScored  int
	GamesBusted  int
	GamesStuck   int
	BandsAdded   int
	BoardEntries int
}
