// Package auth implements the two delegation mechanisms: ephemeral session
// keys with narrow target/selector/game/time scoping, and longer-lived
// operator allowances with a spend cap. They are deliberately independent:
// a compromised session key is bounded by its scope and expiry, a
// compromised operator key by the remaining allowance.
package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/kyral/bandrush/internal/domain/model"
)

// Default session duration window.
const (
	defaultMinSessionDuration = 5 * time.Minute
	defaultMaxSessionDuration = 24 * time.Hour
)

// Call is the decoded payload an execute request carries: which operation
// on which game.
type Call struct {
	Selector string
	GameID   uint64
}

// SessionOption applies a configuration option to the SessionManager.
type SessionOption func(*SessionManager)

// WithClock sets the time source.
func WithClock(c clockwork.Clock) SessionOption {
	return func(m *SessionManager) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithDurationWindow sets the accepted [min, max] session duration.
func WithDurationWindow(minD, maxD time.Duration) SessionOption {
	return func(m *SessionManager) {
		if minD > 0 && maxD > minD {
			m.minDuration = minD
			m.maxDuration = maxD
		}
	}
}

// SessionManager owns session issuance, revocation and the execute-time
// scope checks. At most one active session exists per owner.
type SessionManager struct {
	mu          sync.Mutex
	clock       clockwork.Clock
	minDuration time.Duration
	maxDuration time.Duration
	sessions    map[string]model.Session
}

// NewSessionManager creates a session manager.
func NewSessionManager(opts ...SessionOption) *SessionManager {
	m := &SessionManager{
		clock:       clockwork.NewRealClock(),
		minDuration: defaultMinSessionDuration,
		maxDuration: defaultMaxSessionDuration,
		sessions:    make(map[string]model.Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateSession issues a session key scoped to one target, a selector set
// and optionally a single game. An expired session does not block a new
// one; a live session must be revoked first.
func (m *SessionManager) CreateSession(_ context.Context, owner, sessionKey string, duration time.Duration, target string, selectors []string, gameID uint64) (model.Session, error) {
	if owner == "" || sessionKey == "" || target == "" {
		return model.Session{}, ErrInvalidKey
	}
	if len(selectors) == 0 {
		return model.Session{}, ErrNoSelectors
	}
	if duration < m.minDuration || duration > m.maxDuration {
		return model.Session{}, fmt.Errorf("duration %s outside [%s, %s]: %w",
			duration, m.minDuration, m.maxDuration, ErrDurationOutOfRange)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()
	if existing, ok := m.sessions[owner]; ok && now.Before(existing.Expiry) {
		return model.Session{}, fmt.Errorf("owner %s: %w", owner, ErrSessionActive)
	}

	allowed := make(map[string]struct{}, len(selectors))
	for _, s := range selectors {
		allowed[s] = struct{}{}
	}
	session := model.Session{
		Owner:            owner,
		SessionKey:       sessionKey,
		Expiry:           now.Add(duration),
		AllowedTarget:    target,
		AllowedSelectors: allowed,
		GameID:           gameID,
	}
	m.sessions[owner] = session
	return session, nil
}

// RevokeSession clears the owner's session immediately.
func (m *SessionManager) RevokeSession(_ context.Context, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[owner]; !ok {
		return fmt.Errorf("owner %s: %w", owner, ErrNoSession)
	}
	delete(m.sessions, owner)
	return nil
}

// Authorize runs the execute-time scope checks. Each violated bound fails
// with its own error kind.
func (m *SessionManager) Authorize(_ context.Context, caller, owner, target string, call Call) error {
	m.mu.Lock()
	session, ok := m.sessions[owner]
	now := m.clock.Now()
	m.mu.Unlock()

	switch {
	case !ok:
		return fmt.Errorf("owner %s: %w", owner, ErrNoSession)
	case caller != session.SessionKey:
		return fmt.Errorf("owner %s: %w", owner, ErrNotSessionKey)
	case target != session.AllowedTarget:
		return fmt.Errorf("target %s: %w", target, ErrWrongTarget)
	}
	if _, allowed := session.AllowedSelectors[call.Selector]; !allowed {
		return fmt.Errorf("selector %s: %w", call.Selector, ErrSelectorNotAllowed)
	}
	if !now.Before(session.Expiry) {
		return fmt.Errorf("owner %s: %w", owner, ErrSessionExpired)
	}
	if session.GameID != 0 && session.GameID != call.GameID {
		return fmt.Errorf("game %d: %w", call.GameID, ErrGameMismatch)
	}
	return nil
}

// Session returns the owner's session and its remaining lifetime. Expired
// sessions report a zero remaining duration.
func (m *SessionManager) Session(_ context.Context, owner string) (model.Session, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[owner]
	if !ok {
		return model.Session{}, 0, fmt.Errorf("owner %s: %w", owner, ErrNoSession)
	}
	remaining := session.Expiry.Sub(m.clock.Now())
	if remaining < 0 {
		remaining = 0
	}
	return session, remaining, nil
}

// ActiveCount returns the number of unexpired sessions.
func (m *SessionManager) ActiveCount(_ context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()
	n := 0
	for _, session := range m.sessions {
		if now.Before(session.Expiry) {
			n++
		}
	}
	return n
}
