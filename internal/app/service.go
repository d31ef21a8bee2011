// Package service wires the domain engines and adapters into one process
// and exposes the operation surface consumed by the HTTP API.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/kyral/bandrush/internal/adapters/events"
	fulfillqueue "github.com/kyral/bandrush/internal/adapters/mq/queue"
	workerpool "github.com/kyral/bandrush/internal/adapters/mq/worker"
	"github.com/kyral/bandrush/internal/adapters/randomness"
	"github.com/kyral/bandrush/internal/adapters/wallet"
	"github.com/kyral/bandrush/internal/config"
	"github.com/kyral/bandrush/internal/domain/auth"
	"github.com/kyral/bandrush/internal/domain/game"
	"github.com/kyral/bandrush/internal/domain/model"
	"github.com/kyral/bandrush/internal/domain/prize"
	"github.com/kyral/bandrush/internal/domain/replay"
	"github.com/kyral/bandrush/internal/domain/scoring"
	"github.com/kyral/bandrush/internal/domain/season"
	"github.com/kyral/bandrush/pkg/logger"
	"github.com/kyral/bandrush/pkg/metrics"
)

// busPublisher stamps domain events with the service clock and forwards
// them to the event bus. The domain packages never see the bus directly.
type busPublisher struct {
	bus   *events.Bus
	clock clockwork.Clock
}

func (p *busPublisher) Publish(ctx context.Context, typ string, fields map[string]any) {
	p.bus.Publish(ctx, typ, p.clock.Now(), fields)
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig sets the process configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithClock sets the time source. Tests pass a fake clock here.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithWallet overrides the balance backend built from configuration.
func WithWallet(w wallet.Ledger) Option {
	return func(s *Service) {
		s.bank = w
	}
}

// WithProviderDelay overrides the local randomness fulfillment delay.
func WithProviderDelay(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.providerDelay = d
			s.providerDelaySet = true
		}
	}
}

// Service owns every component of the wager engine and exposes the
// operations the API serves.
type Service struct {
	mu sync.RWMutex

	cfg    *config.Config
	clock  clockwork.Clock
	logger logger.Logger

	bank      wallet.Ledger
	bus       *events.Bus
	scorer    *scoring.Engine
	seasons   *season.Ledger
	engine    *game.Engine
	adapter   *randomness.Adapter
	provider  *randomness.LocalProvider
	queue     *fulfillqueue.InMemoryQueue
	pool      *workerpool.Pool
	sessions  *auth.SessionManager
	operators *auth.OperatorRegistry
	prizes    *prize.Distributor

	providerDelay    time.Duration
	providerDelaySet bool

	observerDone func()
	started      bool
}

// New constructs a Service. Components are built in Start.
func New(opts ...Option) *Service {
	s := &Service{
		cfg:   config.New(),
		clock: clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	cfg := s.cfg

	if s.bank == nil {
		switch cfg.WalletMode {
		case "http":
			s.bank = wallet.NewClient(cfg.WalletURL)
			s.logger.Info(ctx, "using http wallet", logger.String("url", cfg.WalletURL))
		default:
			s.bank = wallet.NewBank(wallet.WithStartingBalance(cfg.StartingBalance))
			s.logger.Info(ctx, "using in-memory wallet",
				logger.Int64("startingBalance", cfg.StartingBalance))
		}
	}

	s.bus = events.NewBus()
	pub := &busPublisher{bus: s.bus, clock: s.clock}

	s.scorer = scoring.New(
		scoring.WithGrowthRate(cfg.GrowthRateBP),
		scoring.WithTableSize(cfg.MaxTableBands),
	)
	s.seasons = season.NewLedger(
		season.WithClock(s.clock),
		season.WithBoardSize(cfg.LeaderboardSize),
		season.WithSeasonDuration(cfg.SeasonDuration),
		season.WithPublisher(pub),
	)

	s.queue = fulfillqueue.NewInMemoryQueue(
		fulfillqueue.WithCapacity(cfg.FulfillmentQueueSize),
	)
	providerOpts := []randomness.LocalOption{randomness.WithFee(cfg.RandomnessFee)}
	if s.providerDelaySet {
		providerOpts = append(providerOpts, randomness.WithFulfillDelay(s.providerDelay))
	}
	s.provider = randomness.NewLocalProvider(s.queue, providerOpts...)
	s.adapter = randomness.NewAdapter(s.provider,
		randomness.WithMaxThreshold(cfg.MaxThreshold),
		randomness.WithReplayGuard(replay.NewGuard(replay.WithMaxSize(cfg.ReplayCacheSize))),
	)

	s.engine = game.NewEngine(s.scorer, s.bank, s.adapter, s.seasons,
		game.WithEntryFee(cfg.EntryFee),
		game.WithPoolShare(cfg.PoolShareBP),
		game.WithStaleTimeout(cfg.StaleTimeout),
		game.WithClock(s.clock),
		game.WithPublisher(pub),
	)
	s.adapter.Bind(s.engine)

	s.pool = workerpool.NewPool(cfg.FulfillmentWorkers, s.queue, s.adapter)
	s.pool.Start(ctx)

	s.sessions = auth.NewSessionManager(
		auth.WithClock(s.clock),
		auth.WithDurationWindow(cfg.SessionMinDuration, cfg.SessionMaxDuration),
	)
	s.operators = auth.NewOperatorRegistry()

	var err error
	s.prizes, err = prize.NewDistributor(s.bank, s.seasons,
		prize.WithCallerIncentive(cfg.CallerIncentiveBP),
		prize.WithPublisher(pub),
	)
	if err != nil {
		return err
	}

	ch, cancel := s.bus.Subscribe()
	s.observerDone = cancel
	go s.observe(ch)

	s.started = true
	s.logger.Info(ctx, "wager engine started",
		logger.Int("workers", cfg.FulfillmentWorkers),
		logger.Int("queueSize", cfg.FulfillmentQueueSize),
		logger.Int64("entryFee", cfg.EntryFee),
		logger.Int("maxThreshold", cfg.MaxThreshold),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(ctx, "stopping wager engine...")

	s.pool.Stop(ctx)
	_ = s.queue.Close()
	if s.observerDone != nil {
		s.observerDone()
	}
	s.bus.Close()

	s.started = false
	s.logger.Info(ctx, "wager engine stopped")
}

// observe drains the event bus, logging each event and driving the
// event-derived metrics from a single place.
func (s *Service) observe(ch <-chan events.Event) {
	for e := range ch {
		s.logger.Debug(context.Background(), "event",
			logger.String("type", e.Type),
			logger.Any("fields", e.Fields),
		)
		switch e.Type {
		case model.EventGameStarted:
			metrics.RecordGameTransition("pending_randomness")
		case model.EventGameActivated:
			metrics.RecordGameTransition("active")
		case model.EventGameScored:
			metrics.RecordGameTransition("scored")
		case model.EventGameExploded:
			metrics.RecordGameTransition("exploded")
		case model.EventGameCancelled:
			metrics.RecordGameTransition("cancelled")
		case model.EventPrizeDistributed:
			metrics.RecordPrizePaid()
		case model.EventPrizePending:
			metrics.RecordPrizePending()
		case model.EventPrizeClaimed:
			metrics.RecordPrizeClaimed()
		}
	}
}

// Events subscribes to the outbound event stream. The returned cancel
// func must be called when the subscriber is done.
func (s *Service) Events() (<-chan events.Event, func()) {
	return s.bus.Subscribe()
}

// Cost quotes the current total cost of starting a game.
func (s *Service) Cost(ctx context.Context) model.CostBreakdown {
	return s.engine.Cost(ctx)
}

// StartGame starts a game paid by the player and returns its snapshot.
func (s *Service) StartGame(ctx context.Context, player string, payment int64) (model.Game, error) {
	id, err := s.engine.StartGame(ctx, player, payment)
	if err != nil {
		return model.Game{}, err
	}
	return s.engine.Snapshot(ctx, id)
}

// Game returns a snapshot of the given game.
func (s *Service) Game(ctx context.Context, gameID uint64) (model.Game, error) {
	return s.engine.Snapshot(ctx, gameID)
}

// AddBand pushes one more band onto the caller's active game.
func (s *Service) AddBand(ctx context.Context, caller string, gameID uint64) (model.Game, error) {
	return s.engine.AddBand(ctx, caller, gameID)
}

// CashOut settles the caller's active game at its current score.
func (s *Service) CashOut(ctx context.Context, caller string, gameID uint64) (model.Game, error) {
	return s.engine.CashOut(ctx, caller, gameID)
}

// CancelStale refunds a game stuck waiting for randomness. Anyone may
// trigger it; the refund always goes to the game owner.
func (s *Service) CancelStale(ctx context.Context, gameID uint64) error {
	return s.engine.CancelStale(ctx, gameID)
}

// Fulfill enqueues an externally delivered randomness fulfillment.
// Unknown request ids are discarded later by the resolver, not here.
func (s *Service) Fulfill(ctx context.Context, requestID string, randomValue uint64) bool {
	return s.queue.Enqueue(ctx, model.Fulfillment{
		RequestID:   requestID,
		RandomValue: randomValue,
	})
}

// deniedReason maps an authorization error to a stable metric label.
func deniedReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrNoSession):
		return "no_session"
	case errors.Is(err, auth.ErrNotSessionKey):
		return "not_session_key"
	case errors.Is(err, auth.ErrWrongTarget):
		return "wrong_target"
	case errors.Is(err, auth.ErrSelectorNotAllowed):
		return "selector_not_allowed"
	case errors.Is(err, auth.ErrSessionExpired):
		return "session_expired"
	case errors.Is(err, auth.ErrGameMismatch):
		return "game_mismatch"
	default:
		return "other"
	}
}

// Execute runs a game operation on behalf of owner, authorized by the
// caller's session key. The scope checks and the dispatched operation
// report their own distinct errors.
func (s *Service) Execute(ctx context.Context, caller, owner string, call auth.Call) (model.Game, error) {
	if err := s.sessions.Authorize(ctx, caller, owner, model.TargetGame, call); err != nil {
		metrics.RecordExecuteDenied(deniedReason(err))
		return model.Game{}, err
	}
	switch call.Selector {
	case model.SelectorAddBand:
		return s.engine.AddBand(ctx, owner, call.GameID)
	case model.SelectorCashOut:
		return s.engine.CashOut(ctx, owner, call.GameID)
	default:
		metrics.RecordExecuteDenied("unknown_selector")
		return model.Game{}, ErrUnknownSelector
	}
}

// CreateSession issues a session key for the owner. Only the game target
// is executable, so anything else is rejected up front.
func (s *Service) CreateSession(ctx context.Context, owner, sessionKey string, duration time.Duration, target string, selectors []string, gameID uint64) (model.Session, error) {
	if target != model.TargetGame {
		return model.Session{}, ErrUnknownTarget
	}
	session, err := s.sessions.CreateSession(ctx, owner, sessionKey, duration, target, selectors, gameID)
	if err != nil {
		return model.Session{}, err
	}
	metrics.UpdateActiveSessions(s.sessions.ActiveCount(ctx))
	return session, nil
}

// RevokeSession clears the owner's session.
func (s *Service) RevokeSession(ctx context.Context, owner string) error {
	if err := s.sessions.RevokeSession(ctx, owner); err != nil {
		return err
	}
	metrics.UpdateActiveSessions(s.sessions.ActiveCount(ctx))
	return nil
}

// SessionStatus returns the owner's session and its remaining lifetime.
func (s *Service) SessionStatus(ctx context.Context, owner string) (model.Session, time.Duration, error) {
	return s.sessions.Session(ctx, owner)
}

// AuthorizeOperator lets operator start games funded by, and billed
// against, the owner's allowance.
func (s *Service) AuthorizeOperator(ctx context.Context, owner, operator string) error {
	return s.operators.Authorize(ctx, owner, operator)
}

// SetOperatorAllowance sets the owner's spending cap. Zero means
// unlimited.
func (s *Service) SetOperatorAllowance(ctx context.Context, owner string, amount int64) error {
	return s.operators.SetAllowance(ctx, owner, amount)
}

// RevokeOperator removes the owner's operator grant.
func (s *Service) RevokeOperator(ctx context.Context, owner string) error {
	return s.operators.Revoke(ctx, owner)
}

// OperatorStatus reports the owner's grant, if any.
func (s *Service) OperatorStatus(ctx context.Context, owner string) (operator string, allowance int64, unlimited, ok bool) {
	return s.operators.Status(ctx, owner)
}

// StartGameFor starts a game for player, paid by the operator and billed
// against the player's allowance. A failed start refunds the allowance.
func (s *Service) StartGameFor(ctx context.Context, operator, player string, payment int64) (model.Game, error) {
	cost := s.engine.Cost(ctx).Total
	if err := s.operators.Consume(ctx, player, operator, cost); err != nil {
		return model.Game{}, err
	}
	id, err := s.engine.StartGameFunded(ctx, operator, player, payment)
	if err != nil {
		s.operators.Refund(ctx, player, operator, cost)
		return model.Game{}, err
	}
	metrics.RecordOperatorStart()
	return s.engine.Snapshot(ctx, id)
}

// CurrentSeason returns the live season.
func (s *Service) CurrentSeason(ctx context.Context) model.Season {
	return s.seasons.Current(ctx)
}

// Season returns the given season. Zero means the current one.
func (s *Service) Season(ctx context.Context, number uint64) (model.Season, error) {
	if number == 0 {
		return s.seasons.Current(ctx), nil
	}
	return s.seasons.Snapshot(ctx, number)
}

// Leaderboard returns the season's board in rank order. Zero selects the
// current season.
func (s *Service) Leaderboard(ctx context.Context, number uint64) ([]model.LeaderboardEntry, error) {
	if number == 0 {
		number = s.seasons.CurrentNumber(ctx)
	}
	return s.seasons.Board(ctx, number)
}

// Rank returns the player's 1-based rank for a season, or zero when the
// player is not on the board. Zero selects the current season.
func (s *Service) Rank(ctx context.Context, number uint64, player string) int {
	if number == 0 {
		number = s.seasons.CurrentNumber(ctx)
	}
	return s.seasons.RankOf(ctx, number, player)
}

// Best returns the player's best entry for a season.
func (s *Service) Best(ctx context.Context, number uint64, player string) (model.LeaderboardEntry, error) {
	if number == 0 {
		number = s.seasons.CurrentNumber(ctx)
	}
	return s.seasons.Best(ctx, number, player)
}

// Rollover ends the current season and opens the next one.
func (s *Service) Rollover(ctx context.Context) (model.Season, error) {
	return s.seasons.Rollover(ctx)
}

// Distribute pays out a finished season's prize pool. The caller earns
// the distribution incentive.
func (s *Service) Distribute(ctx context.Context, seasonNumber uint64, caller string) error {
	if seasonNumber == 0 {
		seasonNumber = s.seasons.CurrentNumber(ctx)
	}
	return s.prizes.Distribute(ctx, seasonNumber, caller)
}

// PendingPrize returns the player's unclaimed prize balance.
func (s *Service) PendingPrize(ctx context.Context, player string) int64 {
	return s.prizes.Pending(ctx, player)
}

// ClaimPrize retries a failed prize transfer for the player.
func (s *Service) ClaimPrize(ctx context.Context, player string) (int64, error) {
	return s.prizes.Claim(ctx, player)
}

// Balance returns an account's wallet balance.
func (s *Service) Balance(ctx context.Context, account string) (int64, error) {
	return s.bank.Balance(ctx, account)
}

// Stats reports service health counters and refreshes the gauges that
// are not event-driven.
func (s *Service) Stats(ctx context.Context) map[string]any {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()

	if !started {
		return map[string]any{"started": false}
	}

	current := s.seasons.Current(ctx)
	board, _ := s.seasons.Board(ctx, current.Number)
	pending := s.adapter.PendingCount()
	active := s.sessions.ActiveCount(ctx)

	metrics.UpdatePrizePool(current.PrizePool)
	metrics.UpdateLeaderboardSize(len(board))
	metrics.UpdatePendingRequests(pending)
	metrics.UpdateActiveSessions(active)

	return map[string]any{
		"started":             true,
		"season":              current.Number,
		"season_ends_at":      current.EndTime,
		"prize_pool":          current.PrizePool,
		"leaderboard_entries": len(board),
		"pending_randomness":  pending,
		"queue_length":        s.queue.Len(ctx),
		"active_sessions":     active,
	}
}
