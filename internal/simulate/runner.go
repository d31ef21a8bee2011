package simulate

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kyral/bandrush/pkg/logger"
)

// Run executes a full simulation against a running server.
func Run(ctx context.Context, cfg *Config) error {
	if cfg.Players <= 0 {
		cfg.Players = defaultPlayers
	}
	if cfg.GamesPer <= 0 {
		cfg.GamesPer = defaultGamesPer
	}
	if cfg.TargetBands <= 0 {
		cfg.TargetBands = defaultTargetBands
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	log := logger.Get().Named("simulate")
	stats := &Stats{StartTime: time.Now()}
	client := NewClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("players", cfg.Players),
		logger.Int("gamesPer", cfg.GamesPer),
		logger.Int("targetBands", cfg.TargetBands))

	if err := client.Health(ctx); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}
	cost, err := client.Cost(ctx)
	if err != nil {
		return fmt.Errorf("cost quote failed: %w", err)
	}

	var (
		started, scored, busted, stuck, bands int64
		wg                                    sync.WaitGroup
	)
	for i := 0; i < cfg.Players; i++ {
		wg.Add(1)
		go func(player string) {
			defer wg.Done()
			for j := 0; j < cfg.GamesPer; j++ {
				if ctx.Err() != nil {
					return
				}
				outcome, pushed := playOne(ctx, client, log, player, cost.Total, cfg)
				atomic.AddInt64(&started, 1)
				atomic.AddInt64(&bands, int64(pushed))
				switch outcome {
				case "scored":
					atomic.AddInt64(&scored, 1)
				case "exploded":
					atomic.AddInt64(&busted, 1)
				default:
					atomic.AddInt64(&stuck, 1)
				}
			}
		}(fmt.Sprintf("sim-player-%03d", i))
	}
	wg.Wait()

	board, err := client.Leaderboard(ctx)
	if err != nil {
		return fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	if err := verifyBoard(board); err != nil {
		return fmt.Errorf("leaderboard verification failed: %w", err)
	}

	stats.GamesStarted = int(started)
	stats.GamesScored = int(scored)
	stats.GamesBusted = int(busted)
	stats.GamesStuck = int(stuck)
	stats.BandsAdded = int(bands)
	stats.BoardEntries = len(board)
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	log.Info(ctx, "simulation complete",
		logger.Int("gamesStarted", stats.GamesStarted),
		logger.Int("gamesScored", stats.GamesScored),
		logger.Int("gamesBusted", stats.GamesBusted),
		logger.Int("gamesStuck", stats.GamesStuck),
		logger.Int("bandsAdded", stats.BandsAdded),
		logger.Int("boardEntries", stats.BoardEntries),
		logger.Duration("duration", stats.Duration))
	return nil
}

// playOne runs one game to completion: start, wait for activation, push
// bands until the target or a bust, then cash out. Returns the terminal
// state and the number of bands pushed.
func playOne(ctx context.Context, client *Client, log logger.Logger, player string, payment int64, cfg *Config) (string, int) {
	g, err := client.StartGame(ctx, player, payment)
	if err != nil {
		if cfg.Verbose {
			log.Warn(ctx, "start failed", logger.String("player", player), logger.Error(err))
		}
		return "stuck", 0
	}

	if !waitActive(ctx, client, g.ID) {
		return "stuck", 0
	}

	pushed := 0
	for pushed < cfg.TargetBands {
		g, err = client.AddBand(ctx, player, g.ID)
		if err != nil {
			return "stuck", pushed
		}
		pushed++
		if g.State == "exploded" {
			return "exploded", pushed
		}
	}

	g, err = client.CashOut(ctx, player, g.ID)
	if err != nil {
		return "stuck", pushed
	}
	return g.State, pushed
}

// waitActive polls the game until randomness resolves it out of the
// pending state.
func waitActive(ctx context.Context, client *Client, id uint64) bool {
	deadline := time.Now().Add(defaultActivateLimit)
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return false
		}
		g, err := client.Game(ctx, id)
		if err != nil {
			return false
		}
		if g.State == "active" {
			return true
		}
		if g.State != "pending_randomness" {
			return false
		}
		time.Sleep(defaultActivatePoll)
	}
	return false
}

// verifyBoard checks rank contiguity and descending score order.
func verifyBoard(board []EntryView) error {
	for i, e := range board {
		if e.Rank != i+1 {
			return fmt.Errorf("rank %d at position %d", e.Rank, i)
		}
		if i > 0 && e.Score > board[i-1].Score {
			return fmt.Errorf("score %d above higher-ranked %d", e.Score, board[i-1].Score)
		}
	}
	return nil
}
