// Package model contains domain models passed between layers.
package model

import "time"

// Outbound observer event types. Events are informational; correctness
// never depends on their delivery.
const (
	EventGameStarted        = "game_started"
	EventGameActivated      = "game_activated"
	EventBandAdded          = "band_added"
	EventGameScored         = "game_scored"
	EventGameExploded       = "game_exploded"
	EventGameCancelled      = "game_cancelled"
	EventNewHighScore       = "new_high_score"
	EventLeaderboardUpdated = "leaderboard_updated"
	EventSeasonStarted      = "season_started"
	EventSeasonFinalized    = "season_finalized"
	EventPrizeDistributed   = "prize_distributed"
	EventPrizePending       = "prize_pending"
	EventPrizeClaimed       = "prize_claimed"
)

// Execution targets and method selectors used by delegated calls.
const (
	TargetGame = "game"

	SelectorAddBand = "add_band"
	SelectorCashOut = "cash_out"
)

// GameState is the lifecycle state of a single game.
type GameState int

// Game lifecycle states. SCORED, EXPLODED and CANCELLED are terminal.
const (
	StatePendingRandomness GameState = iota
	StateActive
	StateScored
	StateExploded
	StateCancelled
)

// String returns the canonical lowercase name used in logs and API payloads.
func (s GameState) String() string {
	switch s {
	case StatePendingRandomness:
		return "pending_randomness"
	case StateActive:
		return "active"
	case StateScored:
		return "scored"
	case StateExploded:
		return "exploded"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s GameState) Terminal() bool {
	return s == StateScored || s == StateExploded || s == StateCancelled
}

// Game is one push-your-luck round. Games are append-only history: they
// are created by startGame and mutated only by the engine, never deleted.
type Game struct {
	ID             uint64
	Owner          string
	State          GameState
	Bands          int
	Multiplier     int64 // basis points, 10000 = 1.00x
	PotentialScore int64
	FinalScore     int64
	Threshold      int // hidden until activation
	Season         uint64
	Paid           int64 // total payment collected at start, refunded on cancel
	CreatedAt      time.Time
	RequestID      string // randomness request id, empty once resolved
}

// Season is one bounded competition period with its own pool and board.
type Season struct {
	Number    uint64
	PrizePool int64
	StartTime time.Time
	EndTime   time.Time
	Finalized bool
}

// LeaderboardEntry is one row of a season's bounded leaderboard.
type LeaderboardEntry struct {
	Rank   int
	Player string
	Score  int64
	GameID uint64
}

// Session is an ephemeral delegated signer scope. At most one active
// session exists per owner.
type Session struct {
	Owner            string
	SessionKey       string
	Expiry           time.Time
	AllowedTarget    string
	AllowedSelectors map[string]struct{}
	GameID           uint64 // 0 = any game
}

// Fulfillment is a randomness provider callback flowing through the
// fulfillment queue.
type Fulfillment struct {
	RequestID   string
	RandomValue uint64
}

// CostBreakdown is the read-only quote for starting one game.
type CostBreakdown struct {
	EntryFee      int64 `json:"entry_fee"`
	RandomnessFee int64 `json:"randomness_fee"`
	Total         int64 `json:"total"`
}
