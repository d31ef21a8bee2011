package auth

import (
	"context"
	"fmt"
	"sync"
)

// grant is one owner's operator authorization. Setting an allowance of
// zero means unlimited, kept for backward compatibility with pre-allowance
// grants; cappedness is tracked separately so an allowance spent down to
// exactly zero stays capped.
type grant struct {
	operator  string
	allowance int64
	capped    bool
}

// OperatorRegistry owns owner -> operator authorizations and their spend
// allowances.
type OperatorRegistry struct {
	mu     sync.Mutex
	grants map[string]*grant
}

// NewOperatorRegistry creates an empty registry.
func NewOperatorRegistry() *OperatorRegistry {
	return &OperatorRegistry{grants: make(map[string]*grant)}
}

// Authorize lets operator start games on owner's behalf. Re-authorizing
// replaces the operator and resets the allowance to unlimited.
func (r *OperatorRegistry) Authorize(_ context.Context, owner, operator string) error {
	if owner == "" || operator == "" {
		return ErrInvalidOperator
	}
	if owner == operator {
		return ErrSelfOperator
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grants[owner] = &grant{operator: operator}
	return nil
}

// SetAllowance caps the operator's remaining spend for owner. Zero restores
// unlimited spend. Fails when no operator is authorized.
func (r *OperatorRegistry) SetAllowance(_ context.Context, owner string, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("allowance %d: %w", amount, ErrInvalidOperator)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.grants[owner]
	if !ok {
		return fmt.Errorf("owner %s: %w", owner, ErrNotOperator)
	}
	g.allowance = amount
	g.capped = amount > 0
	return nil
}

// Consume verifies operator may spend cost for owner and decrements the
// allowance. It fails closed: a capped allowance never goes negative.
func (r *OperatorRegistry) Consume(_ context.Context, owner, operator string, cost int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.grants[owner]
	if !ok || g.operator != operator {
		return fmt.Errorf("operator %s for owner %s: %w", operator, owner, ErrNotOperator)
	}
	if !g.capped {
		return nil // unlimited
	}
	if cost > g.allowance {
		return fmt.Errorf("cost %d, remaining %d: %w", cost, g.allowance, ErrAllowanceExceeded)
	}
	g.allowance -= cost
	return nil
}

// Refund returns cost to a capped allowance after a failed proxied start.
func (r *OperatorRegistry) Refund(_ context.Context, owner, operator string, cost int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.grants[owner]
	if ok && g.operator == operator && g.capped {
		g.allowance += cost
	}
}

// Revoke clears both the authorization and the allowance atomically.
func (r *OperatorRegistry) Revoke(_ context.Context, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.grants[owner]; !ok {
		return fmt.Errorf("owner %s: %w", owner, ErrNotOperator)
	}
	delete(r.grants, owner)
	return nil
}

// Status reports the authorized operator, the remaining allowance and
// whether the spend is unlimited.
func (r *OperatorRegistry) Status(_ context.Context, owner string) (operator string, allowance int64, unlimited, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, found := r.grants[owner]
	if !found {
		return "", 0, false, false
	}
	return g.operator, g.allowance, !g.capped, true
}
