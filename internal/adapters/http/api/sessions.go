// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/kyral/bandrush/internal/domain/auth"
	"github.com/kyral/bandrush/internal/domain/model"
)

// SessionDependencies defines the interface for session operations.
type SessionDependencies interface {
	CreateSession(ctx context.Context, owner, sessionKey string, duration time.Duration, target string, selectors []string, gameID uint64) (model.Session, error)
	RevokeSession(ctx context.Context, owner string) error
	SessionStatus(ctx context.Context, owner string) (model.Session, time.Duration, error)
	Execute(ctx context.Context, caller, owner string, call auth.Call) (model.Game, error)
}

// SessionsHandler handles session key requests.
type SessionsHandler struct {
	deps SessionDependencies
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps SessionDependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps}
}

type createSessionRequest struct {
	SessionKey string   `json:"session_key"`
	Duration   string   `json:"duration"`
	Target     string   `json:"target"`
	Selectors  []string `json:"selectors"`
	GameID     uint64   `json:"game_id,omitempty"`
}

type sessionView struct {
	Owner      string    `json:"owner"`
	SessionKey string    `json:"session_key"`
	Expiry     time.Time `json:"expiry"`
	Target     string    `json:"target"`
	Selectors  []string  `json:"selectors"`
	GameID     uint64    `json:"game_id,omitempty"`
	Remaining  string    `json:"remaining,omitempty"`
}

func toSessionView(s model.Session, remaining time.Duration) sessionView {
	selectors := make([]string, 0, len(s.AllowedSelectors))
	for sel := range s.AllowedSelectors {
		selectors = append(selectors, sel)
	}
	v := sessionView{
		Owner:      s.Owner,
		SessionKey: s.SessionKey,
		Expiry:     s.Expiry,
		Target:     s.AllowedTarget,
		Selectors:  selectors,
		GameID:     s.GameID,
	}
	if remaining > 0 {
		v.Remaining = remaining.String()
	}
	return v
}

// HandleCreate handles POST /sessions requests. The caller is the owner
// granting the session.
func (h *SessionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	owner, err := caller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, ErrBadRequest)
		return
	}
	duration, err := time.ParseDuration(req.Duration)
	if err != nil {
		writeError(w, ErrBadRequest)
		return
	}
	session, err := h.deps.CreateSession(r.Context(), owner, req.SessionKey, duration, req.Target, req.Selectors, req.GameID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionView(session, duration))
}

// HandleStatus handles GET /sessions requests for the caller's session.
func (h *SessionsHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	owner, err := caller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	session, remaining, err := h.deps.SessionStatus(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionView(session, remaining))
}

// HandleRevoke handles DELETE /sessions requests.
func (h *SessionsHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	owner, err := caller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.deps.RevokeSession(r.Context(), owner); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

type executeRequest struct {
	Owner    string `json:"owner"`
	Selector string `json:"selector"`
	GameID   uint64 `json:"game_id"`
}

// HandleExecute handles POST /execute requests. The caller is the session
// key acting on behalf of the owner.
func (h *SessionsHandler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	key, err := caller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, ErrBadRequest)
		return
	}
	if req.Owner == "" || req.Selector == "" {
		writeError(w, ErrBadRequest)
		return
	}
	g, err := h.deps.Execute(r.Context(), key, req.Owner, auth.Call{
		Selector: req.Selector,
		GameID:   req.GameID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGameView(g))
}
