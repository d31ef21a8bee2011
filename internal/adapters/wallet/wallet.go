// Package wallet provides the balance ledger the settlement core debits
// entry fees from and credits refunds and prizes to. The default backend is
// an in-memory bank; an HTTP client for an external balance service lives in
// client.go.
package wallet

import (
	"context"
	"fmt"
	"sync"
)

// Ledger is the balance interface consumed by the engine and the prize
// distributor. All amounts are integer smallest units.
type Ledger interface {
	// Debit removes amount from the account, failing with
	// ErrInsufficientFunds when the balance would go negative.
	Debit(ctx context.Context, account string, amount int64) error

	// Credit adds amount to the account. Credit may fail for external
	// backends (recipient rejects the transfer); callers that must not
	// abort on a single bad recipient handle the error locally.
	Credit(ctx context.Context, account string, amount int64) error

	// Balance returns the current balance for the account.
	Balance(ctx context.Context, account string) (int64, error)
}

// Option applies a configuration option to the Bank.
type Option func(*Bank)

// WithStartingBalance seeds every account that has never been credited.
func WithStartingBalance(amount int64) Option {
	return func(b *Bank) {
		if amount > 0 {
			b.startingBalance = amount
		}
	}
}

// Bank is the in-memory Ledger. Accounts are created lazily on first use
// with the configured starting balance.
type Bank struct {
	mu              sync.Mutex
	balances        map[string]int64
	startingBalance int64
}

// NewBank creates an in-memory bank.
func NewBank(opts ...Option) *Bank {
	b := &Bank{
		balances: make(map[string]int64),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bank) balanceLocked(account string) int64 {
	bal, ok := b.balances[account]
	if !ok {
		bal = b.startingBalance
		b.balances[account] = bal
	}
	return bal
}

// Debit removes amount from account.
func (b *Bank) Debit(_ context.Context, account string, amount int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	bal := b.balanceLocked(account)
	if bal < amount {
		return fmt.Errorf("debit %s: %w", account, ErrInsufficientFunds)
	}
	b.balances[account] = bal - amount
	return nil
}

// Credit adds amount to account.
func (b *Bank) Credit(_ context.Context, account string, amount int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[account] = b.balanceLocked(account) + amount
	return nil
}

// Balance returns the account balance.
func (b *Bank) Balance(_ context.Context, account string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balanceLocked(account), nil
}
