package randomness

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kyral/bandrush/internal/domain/model"
)

// Default local provider configuration constants.
const (
	defaultProviderFee   = 5
	defaultFulfillDelay  = 50 * time.Millisecond
	randomValueByteCount = 8
)

// Sink receives fulfillments for asynchronous delivery; the bounded
// fulfillment queue implements it.
type Sink interface {
	Enqueue(ctx context.Context, f model.Fulfillment) bool
}

// LocalOption applies a configuration option to the LocalProvider.
type LocalOption func(*LocalProvider)

// WithFee sets the quoted randomness fee.
func WithFee(fee int64) LocalOption {
	return func(p *LocalProvider) {
		if fee >= 0 {
			p.fee = fee
		}
	}
}

// WithFulfillDelay sets how long the provider waits before delivering.
func WithFulfillDelay(d time.Duration) LocalOption {
	return func(p *LocalProvider) {
		if d >= 0 {
			p.delay = d
		}
	}
}

// LocalProvider is an in-process randomness source backed by crypto/rand.
// It mimics the real provider's shape: Request returns immediately and the
// value is delivered later through the fulfillment queue.
type LocalProvider struct {
	sink  Sink
	fee   int64
	delay time.Duration
}

// NewLocalProvider creates a local provider delivering into sink.
func NewLocalProvider(sink Sink, opts ...LocalOption) *LocalProvider {
	p := &LocalProvider{
		sink:  sink,
		fee:   defaultProviderFee,
		delay: defaultFulfillDelay,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// QuoteFee returns the fixed local fee.
func (p *LocalProvider) QuoteFee(_ context.Context) int64 {
	return p.fee
}

// Request draws a CSPRNG value and schedules its asynchronous delivery.
func (p *LocalProvider) Request(ctx context.Context) (string, error) {
	var buf [randomValueByteCount]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("draw randomness: %w", err)
	}
	requestID := uuid.NewString()
	value := binary.BigEndian.Uint64(buf[:])

	deliver := func() {
		// Delivery runs after the request call has returned. A full queue
		// drops the fulfillment; the stale-cancel path recovers the game.
		p.sink.Enqueue(context.WithoutCancel(ctx), model.Fulfillment{
			RequestID:   requestID,
			RandomValue: value,
		})
	}
	if p.delay > 0 {
		time.AfterFunc(p.delay, deliver)
	} else {
		go deliver()
	}
	return requestID, nil
}
