// Package randomness bridges the settlement core to an external verifiable
// randomness provider. The adapter keeps the pending request table and
// guarantees each request id resolves at most once; fulfillment callbacks
// are untrusted input, so anything that does not match a live pending
// request is discarded silently.
package randomness

import (
	"context"
	"fmt"
	"sync"

	"github.com/kyral/bandrush/internal/domain/replay"
	"github.com/kyral/bandrush/pkg/metrics"
)

// defaultMaxThreshold bounds the hidden explosion threshold; the revealed
// value lands in [1, maxThreshold].
const defaultMaxThreshold = 15

// Provider is the external randomness source contract.
type Provider interface {
	// QuoteFee returns the provider's current fee in smallest units.
	QuoteFee(ctx context.Context) int64

	// Request issues a randomness request and returns its id. The value
	// arrives asynchronously through the fulfillment path.
	Request(ctx context.Context) (string, error)
}

// Activator consumes resolved thresholds. The game engine implements it.
type Activator interface {
	Activate(ctx context.Context, gameID uint64, threshold int) error
}

// Option applies a configuration option to the Adapter.
type Option func(*Adapter)

// WithMaxThreshold sets the threshold range upper bound.
func WithMaxThreshold(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.maxThreshold = n
		}
	}
}

// WithReplayGuard sets the resolved-id cache used to classify duplicate
// callbacks.
func WithReplayGuard(g replay.Guard) Option {
	return func(a *Adapter) {
		if g != nil {
			a.resolved = g
		}
	}
}

// Adapter owns the requestID -> gameID mapping.
type Adapter struct {
	mu      sync.Mutex
	pending map[string]uint64

	provider     Provider
	activator    Activator
	resolved     replay.Guard
	maxThreshold int
}

// NewAdapter creates an adapter over the given provider.
func NewAdapter(provider Provider, opts ...Option) *Adapter {
	a := &Adapter{
		pending:      make(map[string]uint64),
		provider:     provider,
		resolved:     replay.NewGuard(),
		maxThreshold: defaultMaxThreshold,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Bind attaches the activator. The engine and the adapter reference each
// other, so the activator arrives after construction.
func (a *Adapter) Bind(activator Activator) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.activator = activator
}

// QuoteFee returns the provider's current fee.
func (a *Adapter) QuoteFee(ctx context.Context) int64 {
	return a.provider.QuoteFee(ctx)
}

// Request issues a randomness request for gameID and records the pending
// mapping. It never blocks on the randomness value itself.
func (a *Adapter) Request(ctx context.Context, gameID uint64) (string, error) {
	requestID, err := a.provider.Request(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrProviderFailure, err)
	}
	a.mu.Lock()
	a.pending[requestID] = gameID
	a.mu.Unlock()
	metrics.UpdatePendingRequests(a.PendingCount())
	return requestID, nil
}

// Abandon drops the pending mapping for a request whose game never
// materialized. The id is recorded as resolved so a late fulfillment for it
// is classified as a replay, not a spoof.
func (a *Adapter) Abandon(ctx context.Context, requestID string) {
	a.mu.Lock()
	delete(a.pending, requestID)
	a.mu.Unlock()
	a.resolved.SeenAndRecord(ctx, requestID)
	metrics.UpdatePendingRequests(a.PendingCount())
}

// OnFulfilled handles an inbound provider callback. Unknown ids, ids bound
// to the unset game sentinel and replays of already-resolved ids are
// dropped without feedback because the caller is an untrusted external
// party. A matched callback derives the threshold and activates the game
// exactly once.
func (a *Adapter) OnFulfilled(ctx context.Context, requestID string, randomValue uint64) error {
	a.mu.Lock()
	gameID, ok := a.pending[requestID]
	if ok {
		delete(a.pending, requestID)
	}
	activator := a.activator
	a.mu.Unlock()

	if !ok || gameID == 0 {
		if a.resolved.SeenAndRecord(ctx, requestID) {
			metrics.RecordFulfillmentReplayed()
		} else {
			metrics.RecordFulfillmentDiscarded()
		}
		return nil
	}
	a.resolved.SeenAndRecord(ctx, requestID)
	metrics.UpdatePendingRequests(a.PendingCount())

	if activator == nil {
		return ErrNoActivator
	}
	threshold := int(randomValue%uint64(a.maxThreshold)) + 1
	if err := a.activator.Activate(ctx, gameID, threshold); err != nil {
		return fmt.Errorf("activate game %d: %w", gameID, err)
	}
	metrics.RecordFulfillmentResolved()
	return nil
}

// PendingCount returns the number of unresolved requests.
func (a *Adapter) PendingCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}
