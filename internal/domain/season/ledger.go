// Package season owns season boundaries, prize-pool accounting and the
// bounded top-N leaderboard. The ledger is the single writer for all
// cross-game shared state: every mutation goes through its methods under
// one lock, so no caller ever observes a partially applied update.
package season

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/kyral/bandrush/internal/domain/model"
)

// Default ledger configuration constants.
const (
	defaultBoardSize      = 10
	defaultSeasonDuration = 7 * 24 * time.Hour
)

// Publisher receives outbound observer events. Implementations must not
// block; the ledger treats publishing as fire-and-forget.
type Publisher interface {
	Publish(ctx context.Context, typ string, fields map[string]any)
}

// Option applies a configuration option to the Ledger.
type Option func(*Ledger)

// WithClock sets the time source.
func WithClock(c clockwork.Clock) Option {
	return func(l *Ledger) {
		if c != nil {
			l.clock = c
		}
	}
}

// WithBoardSize bounds the leaderboard to the top n players.
func WithBoardSize(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.boardSize = n
		}
	}
}

// WithSeasonDuration sets the length of every season opened by the ledger.
func WithSeasonDuration(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.seasonDuration = d
		}
	}
}

// WithPublisher sets the observer event sink.
func WithPublisher(p Publisher) Option {
	return func(l *Ledger) {
		if p != nil {
			l.publisher = p
		}
	}
}

// entry is the internal leaderboard row; ranks are derived on read.
type entry struct {
	player string
	score  int64
	gameID uint64
}

// Ledger tracks seasons, pools and leaderboards.
type Ledger struct {
	mu sync.Mutex

	clock          clockwork.Clock
	boardSize      int
	seasonDuration time.Duration
	publisher      Publisher

	current uint64
	seasons map[uint64]*model.Season
	boards  map[uint64][]entry
}

// NewLedger creates a ledger and opens season 1.
func NewLedger(opts ...Option) *Ledger {
	l := &Ledger{
		clock:          clockwork.NewRealClock(),
		boardSize:      defaultBoardSize,
		seasonDuration: defaultSeasonDuration,
		seasons:        make(map[uint64]*model.Season),
		boards:         make(map[uint64][]entry),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.openSeasonLocked(1)
	return l
}

func (l *Ledger) openSeasonLocked(number uint64) {
	now := l.clock.Now()
	l.seasons[number] = &model.Season{
		Number:    number,
		StartTime: now,
		EndTime:   now.Add(l.seasonDuration),
	}
	l.boards[number] = nil
	l.current = number
}

func (l *Ledger) publish(ctx context.Context, typ string, fields map[string]any) {
	if l.publisher != nil {
		l.publisher.Publish(ctx, typ, fields)
	}
}

// CurrentNumber returns the number of the one currently open season.
func (l *Ledger) CurrentNumber(_ context.Context) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// Snapshot returns a copy of the requested season.
func (l *Ledger) Snapshot(_ context.Context, number uint64) (model.Season, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.seasons[number]
	if !ok {
		return model.Season{}, fmt.Errorf("season %d: %w", number, ErrUnknownSeason)
	}
	return *s, nil
}

// Current returns a copy of the currently open season.
func (l *Ledger) Current(_ context.Context) model.Season {
	l.mu.Lock()
	defer l.mu.Unlock()
	return *l.seasons[l.current]
}

// CreditPool adds a net entry-fee contribution to the season's prize pool.
func (l *Ledger) CreditPool(_ context.Context, number uint64, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.seasons[number]
	if !ok {
		return fmt.Errorf("season %d: %w", number, ErrUnknownSeason)
	}
	if s.Finalized {
		return fmt.Errorf("season %d: %w", number, ErrSeasonFinalized)
	}
	s.PrizePool += amount
	return nil
}

// RecordScore registers a cash-out on the season leaderboard. Zero scores
// contribute nothing. A player holds at most one entry; an existing entry
// is replaced only by a strictly greater score. Ties rank the earlier
// cash-out higher.
func (l *Ledger) RecordScore(ctx context.Context, number uint64, player string, score int64, gameID uint64) error {
	if score == 0 {
		return nil
	}
	l.mu.Lock()
	s, ok := l.seasons[number]
	if !ok {
		l.mu.Unlock()
		return fmt.Errorf("season %d: %w", number, ErrUnknownSeason)
	}
	if s.Finalized {
		l.mu.Unlock()
		return fmt.Errorf("season %d: %w", number, ErrSeasonFinalized)
	}

	board := l.boards[number]
	for i, e := range board {
		if e.player != player {
			continue
		}
		if score <= e.score {
			l.mu.Unlock()
			return nil
		}
		board = append(board[:i], board[i+1:]...)
		break
	}

	// Insert keeping descending order; equal scores stay ahead of the
	// newcomer so the first player to reach a score outranks later ties.
	pos := len(board)
	for i, e := range board {
		if e.score < score {
			pos = i
			break
		}
	}
	board = append(board, entry{})
	copy(board[pos+1:], board[pos:])
	board[pos] = entry{player: player, score: score, gameID: gameID}
	if len(board) > l.boardSize {
		board = board[:l.boardSize]
	}
	l.boards[number] = board

	onBoard := false
	for _, e := range board {
		if e.player == player {
			onBoard = true
			break
		}
	}
	l.mu.Unlock()

	if onBoard {
		l.publish(ctx, model.EventLeaderboardUpdated, map[string]any{
			"season": number, "player": player, "score": score, "game_id": gameID,
		})
		if pos == 0 {
			l.publish(ctx, model.EventNewHighScore, map[string]any{
				"season": number, "player": player, "score": score, "game_id": gameID,
			})
		}
	}
	return nil
}

// RankOf returns the 1-based rank of player in the season, 0 when absent.
func (l *Ledger) RankOf(_ context.Context, number uint64, player string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, e := range l.boards[number] {
		if e.player == player {
			return i + 1
		}
	}
	return 0
}

// Best returns the player's leaderboard entry for the season.
func (l *Ledger) Best(_ context.Context, number uint64, player string) (model.LeaderboardEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, e := range l.boards[number] {
		if e.player == player {
			return model.LeaderboardEntry{Rank: i + 1, Player: e.player, Score: e.score, GameID: e.gameID}, nil
		}
	}
	return model.LeaderboardEntry{}, fmt.Errorf("player %s: %w", player, ErrPlayerNotRanked)
}

// Board returns the season leaderboard, best first, with ranks assigned.
func (l *Ledger) Board(_ context.Context, number uint64) ([]model.LeaderboardEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.seasons[number]; !ok {
		return nil, fmt.Errorf("season %d: %w", number, ErrUnknownSeason)
	}
	board := l.boards[number]
	out := make([]model.LeaderboardEntry, len(board))
	for i, e := range board {
		out[i] = model.LeaderboardEntry{Rank: i + 1, Player: e.player, Score: e.score, GameID: e.gameID}
	}
	return out, nil
}

// Rollover closes the current season and opens the next one with an empty
// board and a zero pool. The caller is responsible for restricting this to
// a privileged role.
func (l *Ledger) Rollover(ctx context.Context) (model.Season, error) {
	l.mu.Lock()
	now := l.clock.Now()
	cur := l.seasons[l.current]
	if now.Before(cur.EndTime) {
		cur.EndTime = now
	}
	next := l.current + 1
	l.openSeasonLocked(next)
	opened := *l.seasons[next]
	l.mu.Unlock()

	l.publish(ctx, model.EventSeasonStarted, map[string]any{
		"season": opened.Number, "start_time": opened.StartTime, "end_time": opened.EndTime,
	})
	return opened, nil
}

// CloseForDistribution validates that the season can be settled, marks it
// finalized and drains its pool in one step. Finalizing before the payouts
// run is safe because individual transfer failures are absorbed as pending
// prizes and never abort distribution.
func (l *Ledger) CloseForDistribution(ctx context.Context, number uint64) (int64, []model.LeaderboardEntry, error) {
	l.mu.Lock()
	s, ok := l.seasons[number]
	if !ok {
		l.mu.Unlock()
		return 0, nil, fmt.Errorf("season %d: %w", number, ErrUnknownSeason)
	}
	if s.Finalized {
		l.mu.Unlock()
		return 0, nil, fmt.Errorf("season %d: %w", number, ErrSeasonFinalized)
	}
	if l.clock.Now().Before(s.EndTime) {
		l.mu.Unlock()
		return 0, nil, fmt.Errorf("season %d ends %s: %w", number, s.EndTime, ErrSeasonNotOver)
	}
	pool := s.PrizePool
	s.PrizePool = 0
	s.Finalized = true
	board := l.boards[number]
	winners := make([]model.LeaderboardEntry, len(board))
	for i, e := range board {
		winners[i] = model.LeaderboardEntry{Rank: i + 1, Player: e.player, Score: e.score, GameID: e.gameID}
	}
	l.mu.Unlock()

	l.publish(ctx, model.EventSeasonFinalized, map[string]any{
		"season": number, "pool": pool, "winners": len(winners),
	})
	return pool, winners, nil
}
