// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
)

// PrizeDependencies defines the interface for prize claim operations.
type PrizeDependencies interface {
	PendingPrize(ctx context.Context, player string) int64
	ClaimPrize(ctx context.Context, player string) (int64, error)
}

// PrizesHandler handles pending prize requests.
type PrizesHandler struct {
	deps PrizeDependencies
}

// NewPrizesHandler creates a new prizes handler.
func NewPrizesHandler(deps PrizeDependencies) *PrizesHandler {
	return &PrizesHandler{deps: deps}
}

type prizeResponse struct {
	Player  string `json:"player"`
	Pending int64  `json:"pending"`
	Claimed int64  `json:"claimed,omitempty"`
}

// HandlePending handles GET /prizes requests for the caller's unclaimed
// balance.
func (h *PrizesHandler) HandlePending(w http.ResponseWriter, r *http.Request) {
	player, err := caller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prizeResponse{
		Player:  player,
		Pending: h.deps.PendingPrize(r.Context(), player),
	})
}

// HandleClaim handles POST /prizes/claim requests.
func (h *PrizesHandler) HandleClaim(w http.ResponseWriter, r *http.Request) {
	player, err := caller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	amount, err := h.deps.ClaimPrize(r.Context(), player)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prizeResponse{Player: player, Claimed: amount})
}
