// Package game owns the per-game lifecycle: fee collection and refund, band
// progression, explosion and cash-out transitions, and stale-game
// cancellation. The engine is logically single-writer: every mutating
// operation is serialized under one lock, so each call either fully applies
// or fully reverts and no partial state is ever observable.
package game

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/kyral/bandrush/internal/domain/model"
)

// Default engine configuration constants.
const (
	defaultEntryFee     = 100
	defaultPoolShareBP  = 9000 // 90% of the entry fee feeds the season pool
	defaultStaleTimeout = time.Hour

	basisPoints        = 10000
	protocolAccount    = "protocol"
	providerAccount    = "randomness-provider"
	multiplierDivisor  = 100
	initialGamesSizing = 64
)

// Scorer is the pure score math consumed by the engine.
type Scorer interface {
	MultiplierFor(bands int) int64
	ScoreFor(bands int, multiplier int64) int64
}

// Wallet moves funds between accounts.
type Wallet interface {
	Debit(ctx context.Context, account string, amount int64) error
	Credit(ctx context.Context, account string, amount int64) error
}

// Requester issues randomness requests. Request returns a request id
// synchronously; the revealed value arrives later through Activate. Abandon
// drops a request whose game never materialized, so a late fulfillment for
// it cannot touch any other game.
type Requester interface {
	QuoteFee(ctx context.Context) int64
	Request(ctx context.Context, gameID uint64) (string, error)
	Abandon(ctx context.Context, requestID string)
}

// SeasonSink is the season ledger surface the engine writes to.
type SeasonSink interface {
	CurrentNumber(ctx context.Context) uint64
	CreditPool(ctx context.Context, number uint64, amount int64) error
	RecordScore(ctx context.Context, number uint64, player string, score int64, gameID uint64) error
}

// Publisher receives outbound observer events.
type Publisher interface {
	Publish(ctx context.Context, typ string, fields map[string]any)
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithEntryFee sets the per-game entry fee in smallest units.
func WithEntryFee(fee int64) Option {
	return func(e *Engine) {
		if fee > 0 {
			e.entryFee = fee
		}
	}
}

// WithPoolShare sets the entry-fee share credited to the season pool, in
// basis points. The remainder is the protocol cut.
func WithPoolShare(bp int64) Option {
	return func(e *Engine) {
		if bp > 0 && bp <= basisPoints {
			e.poolShareBP = bp
		}
	}
}

// WithStaleTimeout sets how long a game may wait for randomness before it
// becomes cancellable.
func WithStaleTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.staleTimeout = d
		}
	}
}

// WithClock sets the time source.
func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithPublisher sets the observer event sink.
func WithPublisher(p Publisher) Option {
	return func(e *Engine) {
		e.publisher = p
	}
}

// Engine is the game state machine.
type Engine struct {
	mu sync.Mutex

	scorer     Scorer
	wallet     Wallet
	randomness Requester
	seasons    SeasonSink
	publisher  Publisher
	clock      clockwork.Clock

	entryFee     int64
	poolShareBP  int64
	staleTimeout time.Duration

	games  map[uint64]*model.Game
	nextID uint64
}

// NewEngine creates a game engine over the given collaborators.
func NewEngine(scorer Scorer, wallet Wallet, randomness Requester, seasons SeasonSink, opts ...Option) *Engine {
	e := &Engine{
		scorer:       scorer,
		wallet:       wallet,
		randomness:   randomness,
		seasons:      seasons,
		clock:        clockwork.NewRealClock(),
		entryFee:     defaultEntryFee,
		poolShareBP:  defaultPoolShareBP,
		staleTimeout: defaultStaleTimeout,
		games:        make(map[uint64]*model.Game, initialGamesSizing),
		nextID:       1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) publish(ctx context.Context, typ string, fields map[string]any) {
	if e.publisher != nil {
		e.publisher.Publish(ctx, typ, fields)
	}
}

// Cost returns the current quote for starting one game.
func (e *Engine) Cost(ctx context.Context) model.CostBreakdown {
	fee := e.randomness.QuoteFee(ctx)
	return model.CostBreakdown{
		EntryFee:      e.entryFee,
		RandomnessFee: fee,
		Total:         e.entryFee + fee,
	}
}

// StartGame collects fees from the player and opens a game for them.
func (e *Engine) StartGame(ctx context.Context, player string, payment int64) (uint64, error) {
	return e.StartGameFunded(ctx, player, player, payment)
}

// StartGameFunded opens a game owned by owner but paid for by payer, the
// shape used by operator-proxied starts. Payment must cover the entry fee
// plus the quoted randomness fee; any excess is refunded to the payer.
func (e *Engine) StartGameFunded(ctx context.Context, payer, owner string, payment int64) (uint64, error) {
	if payer == "" || owner == "" {
		return 0, ErrEmptyPlayer
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	randomnessFee := e.randomness.QuoteFee(ctx)
	total := e.entryFee + randomnessFee
	if payment < total {
		return 0, fmt.Errorf("payment %d, need %d: %w", payment, total, ErrInsufficientPayment)
	}

	if err := e.wallet.Debit(ctx, payer, payment); err != nil {
		return 0, err
	}
	if excess := payment - total; excess > 0 {
		// Refund anything above the exact cost immediately.
		if err := e.wallet.Credit(ctx, payer, excess); err != nil {
			_ = e.wallet.Credit(ctx, payer, payment)
			return 0, err
		}
	}

	seasonNumber := e.seasons.CurrentNumber(ctx)
	poolCut := e.entryFee * e.poolShareBP / basisPoints
	protocolCut := e.entryFee - poolCut

	// The id is consumed even when the start aborts below: a failed start
	// must never share an id with a later game, or a leftover randomness
	// request could resolve against the wrong one.
	gameID := e.nextID
	e.nextID++

	requestID, err := e.randomness.Request(ctx, gameID)
	if err != nil {
		_ = e.wallet.Credit(ctx, payer, total)
		return 0, fmt.Errorf("%w: %w", ErrRandomnessRequest, err)
	}

	if err := e.seasons.CreditPool(ctx, seasonNumber, poolCut); err != nil {
		e.randomness.Abandon(ctx, requestID)
		_ = e.wallet.Credit(ctx, payer, total)
		return 0, err
	}
	_ = e.wallet.Credit(ctx, protocolAccount, protocolCut)
	_ = e.wallet.Credit(ctx, providerAccount, randomnessFee)

	g := &model.Game{
		ID:         gameID,
		Owner:      owner,
		State:      model.StatePendingRandomness,
		Multiplier: e.scorer.MultiplierFor(0),
		Season:     seasonNumber,
		Paid:       total,
		CreatedAt:  e.clock.Now(),
		RequestID:  requestID,
	}
	e.games[gameID] = g

	e.publish(ctx, model.EventGameStarted, map[string]any{
		"game_id": gameID, "owner": owner, "payer": payer, "season": seasonNumber, "paid": total,
	})
	return gameID, nil
}

// Activate is called by the randomness adapter once the request resolves.
// It transitions the game from pending to active with the revealed
// threshold.
func (e *Engine) Activate(ctx context.Context, gameID uint64, threshold int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, ok := e.games[gameID]
	if !ok {
		return fmt.Errorf("game %d: %w", gameID, ErrUnknownGame)
	}
	if g.State != model.StatePendingRandomness {
		return fmt.Errorf("game %d is %s: %w", gameID, g.State, ErrWrongState)
	}
	g.Threshold = threshold
	g.State = model.StateActive
	g.RequestID = ""

	e.publish(ctx, model.EventGameActivated, map[string]any{
		"game_id": gameID, "owner": g.Owner,
	})
	return nil
}

// AddBand takes one more risk step. The band count only ever increases
// while the game is active; reaching the hidden threshold explodes the game
// with a final score of zero.
func (e *Engine) AddBand(ctx context.Context, caller string, gameID uint64) (model.Game, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, err := e.activeGameLocked(caller, gameID)
	if err != nil {
		return model.Game{}, err
	}

	g.Bands++
	if g.Bands >= g.Threshold {
		g.FinalScore = 0
		g.PotentialScore = 0
		g.State = model.StateExploded
		e.publish(ctx, model.EventGameExploded, map[string]any{
			"game_id": gameID, "owner": g.Owner, "bands": g.Bands, "threshold": g.Threshold,
		})
		return *g, nil
	}

	g.Multiplier = e.scorer.MultiplierFor(g.Bands)
	g.PotentialScore = e.scorer.ScoreFor(g.Bands, g.Multiplier)
	e.publish(ctx, model.EventBandAdded, map[string]any{
		"game_id": gameID, "owner": g.Owner, "bands": g.Bands, "potential_score": g.PotentialScore,
	})
	return *g, nil
}

// CashOut locks in the current score, settles it to the season leaderboard
// and ends the game. Zero-band games cannot cash out.
func (e *Engine) CashOut(ctx context.Context, caller string, gameID uint64) (model.Game, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, err := e.activeGameLocked(caller, gameID)
	if err != nil {
		return model.Game{}, err
	}
	if g.Bands == 0 {
		return model.Game{}, fmt.Errorf("game %d: %w", gameID, ErrNoBands)
	}

	g.FinalScore = e.scorer.ScoreFor(g.Bands, g.Multiplier)
	g.State = model.StateScored
	if err := e.seasons.RecordScore(ctx, g.Season, g.Owner, g.FinalScore, g.ID); err != nil {
		// Revert the transition; the caller may retry.
		g.FinalScore = 0
		g.State = model.StateActive
		return model.Game{}, err
	}

	e.publish(ctx, model.EventGameScored, map[string]any{
		"game_id": gameID, "owner": g.Owner, "bands": g.Bands, "final_score": g.FinalScore,
	})
	return *g, nil
}

// CancelStale refunds and closes a game whose randomness request never
// resolved. This is the sole liveness escape hatch for an unresponsive
// provider; active games can never be cancelled.
func (e *Engine) CancelStale(ctx context.Context, gameID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, ok := e.games[gameID]
	if !ok {
		return fmt.Errorf("game %d: %w", gameID, ErrUnknownGame)
	}
	if g.State != model.StatePendingRandomness {
		return fmt.Errorf("game %d is %s: %w", gameID, g.State, ErrWrongState)
	}
	if e.clock.Now().Sub(g.CreatedAt) <= e.staleTimeout {
		return fmt.Errorf("game %d: %w", gameID, ErrNotStaleYet)
	}

	if err := e.wallet.Credit(ctx, g.Owner, g.Paid); err != nil {
		return err
	}
	// Reverse the pool credit so the season books stay balanced. A season
	// already settled keeps the contribution; the refund is then borne by
	// the protocol.
	poolCut := e.entryFee * e.poolShareBP / basisPoints
	_ = e.seasons.CreditPool(ctx, g.Season, -poolCut)

	g.State = model.StateCancelled
	g.RequestID = ""
	e.publish(ctx, model.EventGameCancelled, map[string]any{
		"game_id": gameID, "owner": g.Owner, "refund": g.Paid,
	})
	return nil
}

// Snapshot returns a copy of the game. The threshold is only populated once
// the game has ended; while a game is live its threshold stays hidden from
// every reader.
func (e *Engine) Snapshot(_ context.Context, gameID uint64) (model.Game, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	g, ok := e.games[gameID]
	if !ok {
		return model.Game{}, fmt.Errorf("game %d: %w", gameID, ErrUnknownGame)
	}
	snap := *g
	if !snap.State.Terminal() {
		snap.Threshold = 0
	}
	return snap, nil
}

func (e *Engine) activeGameLocked(caller string, gameID uint64) (*model.Game, error) {
	g, ok := e.games[gameID]
	if !ok {
		return nil, fmt.Errorf("game %d: %w", gameID, ErrUnknownGame)
	}
	if g.Owner != caller {
		return nil, fmt.Errorf("game %d: %w", gameID, ErrNotOwner)
	}
	if g.State != model.StateActive {
		return nil, fmt.Errorf("game %d is %s: %w", gameID, g.State, ErrWrongState)
	}
	return g, nil
}
