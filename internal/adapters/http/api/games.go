// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/kyral/bandrush/internal/domain/model"
)

// GameDependencies defines the interface for game operations.
type GameDependencies interface {
	Cost(ctx context.Context) model.CostBreakdown
	StartGame(ctx context.Context, player string, payment int64) (model.Game, error)
	Game(ctx context.Context, gameID uint64) (model.Game, error)
	AddBand(ctx context.Context, caller string, gameID uint64) (model.Game, error)
	CashOut(ctx context.Context, caller string, gameID uint64) (model.Game, error)
	CancelStale(ctx context.Context, gameID uint64) error
	Balance(ctx context.Context, account string) (int64, error)
}

// GamesHandler handles game lifecycle requests.
type GamesHandler struct {
	deps GameDependencies
}

// NewGamesHandler creates a new games handler.
func NewGamesHandler(deps GameDependencies) *GamesHandler {
	return &GamesHandler{deps: deps}
}

// gameView mirrors the read shape returned by game queries. Threshold is
// zero until the game reaches a terminal state.
type gameView struct {
	ID             uint64    `json:"id"`
	Owner          string    `json:"owner"`
	State          string    `json:"state"`
	Bands          int       `json:"bands"`
	Multiplier     int64     `json:"multiplier"`
	PotentialScore int64     `json:"potential_score"`
	FinalScore     int64     `json:"final_score"`
	Threshold      int       `json:"threshold,omitempty"`
	Season         uint64    `json:"season"`
	Paid           int64     `json:"paid"`
	CreatedAt      time.Time `json:"created_at"`
}

func toGameView(g model.Game) gameView {
	return gameView{
		ID:             g.ID,
		Owner:          g.Owner,
		State:          g.State.String(),
		Bands:          g.Bands,
		Multiplier:     g.Multiplier,
		PotentialScore: g.PotentialScore,
		FinalScore:     g.FinalScore,
		Threshold:      g.Threshold,
		Season:         g.Season,
		Paid:           g.Paid,
		CreatedAt:      g.CreatedAt,
	}
}

type startGameRequest struct {
	Payment int64 `json:"payment"`
}

// HandleCost handles GET /cost requests.
func (h *GamesHandler) HandleCost(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Cost(r.Context()))
}

// HandleStart handles POST /games requests. The caller pays and owns the
// new game.
func (h *GamesHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	player, err := caller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req startGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, ErrBadRequest)
		return
	}
	g, err := h.deps.StartGame(r.Context(), player, req.Payment)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGameView(g))
}

// HandleGet handles GET /games/{id} requests.
func (h *GamesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	g, err := h.deps.Game(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGameView(g))
}

// HandleAddBand handles POST /games/{id}/bands requests.
func (h *GamesHandler) HandleAddBand(w http.ResponseWriter, r *http.Request) {
	who, err := caller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	g, err := h.deps.AddBand(r.Context(), who, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGameView(g))
}

// HandleCashOut handles POST /games/{id}/cashout requests.
func (h *GamesHandler) HandleCashOut(w http.ResponseWriter, r *http.Request) {
	who, err := caller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	g, err := h.deps.CashOut(r.Context(), who, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGameView(g))
}

// HandleCancel handles POST /games/{id}/cancel requests. Anyone may
// cancel a stale game; the refund goes to the owner.
func (h *GamesHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.deps.CancelStale(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	g, err := h.deps.Game(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGameView(g))
}

type balanceResponse struct {
	Account string `json:"account"`
	Balance int64  `json:"balance"`
}

// HandleBalance handles GET /balance/{account} requests.
func (h *GamesHandler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	account := r.PathValue("account")
	if account == "" {
		writeError(w, ErrBadRequest)
		return
	}
	balance, err := h.deps.Balance(r.Context(), account)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Account: account, Balance: balance})
}
