// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/kyral/bandrush/internal/domain/model"
)

// OperatorDependencies defines the interface for operator operations.
type OperatorDependencies interface {
	AuthorizeOperator(ctx context.Context, owner, operator string) error
	SetOperatorAllowance(ctx context.Context, owner string, amount int64) error
	RevokeOperator(ctx context.Context, owner string) error
	OperatorStatus(ctx context.Context, owner string) (operator string, allowance int64, unlimited, ok bool)
	StartGameFor(ctx context.Context, operator, player string, payment int64) (model.Game, error)
}

// OperatorsHandler handles operator grant requests.
type OperatorsHandler struct {
	deps OperatorDependencies
}

// NewOperatorsHandler creates a new operators handler.
func NewOperatorsHandler(deps OperatorDependencies) *OperatorsHandler {
	return &OperatorsHandler{deps: deps}
}

type authorizeOperatorRequest struct {
	Operator string `json:"operator"`
}

// HandleAuthorize handles POST /operators/authorize requests. The caller
// is the owner granting the operator.
func (h *OperatorsHandler) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	owner, err := caller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req authorizeOperatorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, ErrBadRequest)
		return
	}
	if err := h.deps.AuthorizeOperator(r.Context(), owner, req.Operator); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "authorized"})
}

type allowanceRequest struct {
	Amount int64 `json:"amount"`
}

// HandleAllowance handles POST /operators/allowance requests. Zero means
// unlimited.
func (h *OperatorsHandler) HandleAllowance(w http.ResponseWriter, r *http.Request) {
	owner, err := caller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req allowanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, ErrBadRequest)
		return
	}
	if err := h.deps.SetOperatorAllowance(r.Context(), owner, req.Amount); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// HandleRevoke handles DELETE /operators requests.
func (h *OperatorsHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	owner, err := caller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.deps.RevokeOperator(r.Context(), owner); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

type operatorStatusResponse struct {
	Operator  string `json:"operator,omitempty"`
	Allowance int64  `json:"allowance"`
	Unlimited bool   `json:"unlimited"`
	Granted   bool   `json:"granted"`
}

// HandleStatus handles GET /operators requests for the caller's grant.
func (h *OperatorsHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	owner, err := caller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	operator, allowance, unlimited, ok := h.deps.OperatorStatus(r.Context(), owner)
	writeJSON(w, http.StatusOK, operatorStatusResponse{
		Operator:  operator,
		Allowance: allowance,
		Unlimited: unlimited,
		Granted:   ok,
	})
}

type startForRequest struct {
	Player  string `json:"player"`
	Payment int64  `json:"payment"`
}

// HandleStartFor handles POST /operators/games requests. The caller is
// the operator paying for the player's game.
func (h *OperatorsHandler) HandleStartFor(w http.ResponseWriter, r *http.Request) {
	operator, err := caller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req startForRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, ErrBadRequest)
		return
	}
	if req.Player == "" {
		writeError(w, ErrBadRequest)
		return
	}
	g, err := h.deps.StartGameFor(r.Context(), operator, req.Player, req.Payment)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGameView(g))
}
