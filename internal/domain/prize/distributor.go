// Package prize computes per-rank payout shares and settles a finished
// season. Settlement is push-then-pull: direct payment is attempted first
// and a failed transfer becomes a pending prize the winner claims
// explicitly, so one rejecting recipient can never block the rest of the
// batch or abort finalization.
package prize

import (
	"context"
	"fmt"
	"sync"

	"github.com/kyral/bandrush/internal/domain/model"
)

// basisPoints is the fixed-point scale for shares (10000 = 100%).
const basisPoints = 10000

// defaultCallerIncentiveBP is the 1% reserved for whoever triggers
// distribution.
const defaultCallerIncentiveBP = 100

// defaultShares is the descending payout table by rank. It sums to 100% of
// the distributable remainder: 40, 25, 15, 8, 5, then 1.4 each for 6-10.
var defaultShares = []int64{4000, 2500, 1500, 800, 500, 140, 140, 140, 140, 140}

// Payer pushes funds to an account. A returned error means the recipient
// did not receive the amount.
type Payer interface {
	Credit(ctx context.Context, account string, amount int64) error
}

// Closer hands over a finished season's pool and winners exactly once.
type Closer interface {
	CloseForDistribution(ctx context.Context, number uint64) (int64, []model.LeaderboardEntry, error)
}

// Publisher receives outbound observer events.
type Publisher interface {
	Publish(ctx context.Context, typ string, fields map[string]any)
}

// Option applies a configuration option to the Distributor.
type Option func(*Distributor) error

// WithShares replaces the payout table. Shares must be non-negative and sum
// to exactly 10000 basis points.
func WithShares(shares []int64) Option {
	return func(d *Distributor) error {
		var sum int64
		for _, s := range shares {
			if s < 0 {
				return fmt.Errorf("share %d: %w", s, ErrNegativeAmounts)
			}
			sum += s
		}
		if sum != basisPoints {
			return fmt.Errorf("sum %d: %w", sum, ErrBadShareTable)
		}
		d.shares = append([]int64(nil), shares...)
		return nil
	}
}

// WithCallerIncentive sets the distribution trigger reward in basis points.
func WithCallerIncentive(bp int64) Option {
	return func(d *Distributor) error {
		if bp < 0 || bp >= basisPoints {
			return fmt.Errorf("incentive %d bp: %w", bp, ErrBadIncentive)
		}
		d.callerIncentiveBP = bp
		return nil
	}
}

// WithProtocolAccount sets where an unclaimed distributable (no winners at
// all) is parked.
func WithProtocolAccount(account string) Option {
	return func(d *Distributor) error {
		if account == "" {
			return ErrEmptyRecipient
		}
		d.protocolAccount = account
		return nil
	}
}

// WithPublisher sets the observer event sink.
func WithPublisher(p Publisher) Option {
	return func(d *Distributor) error {
		d.publisher = p
		return nil
	}
}

// Distributor settles seasons and tracks pending pull-credits.
type Distributor struct {
	payer             Payer
	closer            Closer
	publisher         Publisher
	shares            []int64
	callerIncentiveBP int64
	protocolAccount   string

	mu      sync.Mutex
	pending map[string]int64
}

// NewDistributor creates a distributor over the given payer and season
// closer.
func NewDistributor(payer Payer, closer Closer, opts ...Option) (*Distributor, error) {
	d := &Distributor{
		payer:             payer,
		closer:            closer,
		shares:            defaultShares,
		callerIncentiveBP: defaultCallerIncentiveBP,
		protocolAccount:   "protocol",
		pending:           make(map[string]int64),
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *Distributor) publish(ctx context.Context, typ string, fields map[string]any) {
	if d.publisher != nil {
		d.publisher.Publish(ctx, typ, fields)
	}
}

// pay pushes amount to account, converting a failed transfer into a
// pending pull-credit.
func (d *Distributor) pay(ctx context.Context, season uint64, account string, amount int64, rank int) {
	if amount <= 0 {
		return
	}
	if err := d.payer.Credit(ctx, account, amount); err != nil {
		d.mu.Lock()
		d.pending[account] += amount
		d.mu.Unlock()
		d.publish(ctx, model.EventPrizePending, map[string]any{
			"season": season, "player": account, "amount": amount, "rank": rank,
		})
		return
	}
	d.publish(ctx, model.EventPrizeDistributed, map[string]any{
		"season": season, "player": account, "amount": amount, "rank": rank,
	})
}

// Distribute settles the season: the caller incentive comes off the top,
// the remainder is split across the ranked winners by the share table, and
// when fewer winners than table slots exist the lowest-ranked actual winner
// absorbs the entire unused remainder so nothing stays undistributed.
func (d *Distributor) Distribute(ctx context.Context, seasonNumber uint64, caller string) error {
	if caller == "" {
		return ErrEmptyRecipient
	}
	pool, winners, err := d.closer.CloseForDistribution(ctx, seasonNumber)
	if err != nil {
		return err
	}
	if pool == 0 {
		return nil
	}

	incentive := pool * d.callerIncentiveBP / basisPoints
	d.pay(ctx, seasonNumber, caller, incentive, 0)

	distributable := pool - incentive
	if len(winners) == 0 {
		// Nobody scored all season; the distributable stays with the
		// protocol rather than vanishing.
		d.pay(ctx, seasonNumber, d.protocolAccount, distributable, 0)
		return nil
	}

	var paid int64
	for i, w := range winners {
		var amount int64
		if i == len(winners)-1 {
			amount = distributable - paid
		} else if i < len(d.shares) {
			amount = distributable * d.shares[i] / basisPoints
		}
		paid += amount
		d.pay(ctx, seasonNumber, w.Player, amount, w.Rank)
	}
	return nil
}

// Pending returns the amount owed to player but not yet delivered.
func (d *Distributor) Pending(_ context.Context, player string) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending[player]
}

// Claim lets a player pull a pending prize. The balance clears only after
// the transfer succeeds.
func (d *Distributor) Claim(ctx context.Context, player string) (int64, error) {
	d.mu.Lock()
	amount := d.pending[player]
	d.mu.Unlock()
	if amount == 0 {
		return 0, fmt.Errorf("player %s: %w", player, ErrNothingToClaim)
	}
	if err := d.payer.Credit(ctx, player, amount); err != nil {
		return 0, fmt.Errorf("player %s: %w: %w", player, ErrClaimFailed, err)
	}
	d.mu.Lock()
	d.pending[player] -= amount
	if d.pending[player] == 0 {
		delete(d.pending, player)
	}
	d.mu.Unlock()
	d.publish(ctx, model.EventPrizeClaimed, map[string]any{
		"player": player, "amount": amount,
	})
	return amount, nil
}
