// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/kyral/bandrush/internal/domain/model"
)

// SeasonDependencies defines the interface for season and leaderboard
// operations.
type SeasonDependencies interface {
	CurrentSeason(ctx context.Context) model.Season
	Season(ctx context.Context, number uint64) (model.Season, error)
	Leaderboard(ctx context.Context, number uint64) ([]model.LeaderboardEntry, error)
	Rank(ctx context.Context, number uint64, player string) int
	Best(ctx context.Context, number uint64, player string) (model.LeaderboardEntry, error)
	Rollover(ctx context.Context) (model.Season, error)
	Distribute(ctx context.Context, seasonNumber uint64, caller string) error
}

// SeasonsHandler handles season and leaderboard requests.
type SeasonsHandler struct {
	deps       SeasonDependencies
	adminToken string
}

// NewSeasonsHandler creates a new seasons handler. adminToken guards
// rollover; empty disables it.
func NewSeasonsHandler(deps SeasonDependencies, adminToken string) *SeasonsHandler {
	return &SeasonsHandler{deps: deps, adminToken: adminToken}
}

type seasonView struct {
	Number    uint64    `json:"number"`
	PrizePool int64     `json:"prize_pool"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Finalized bool      `json:"finalized"`
}

func toSeasonView(s model.Season) seasonView {
	return seasonView{
		Number:    s.Number,
		PrizePool: s.PrizePool,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		Finalized: s.Finalized,
	}
}

type entryView struct {
	Rank   int    `json:"rank"`
	Player string `json:"player"`
	Score  int64  `json:"score"`
	GameID uint64 `json:"game_id"`
}

func toEntryViews(entries []model.LeaderboardEntry) []entryView {
	views := make([]entryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, entryView{
			Rank:   e.Rank,
			Player: e.Player,
			Score:  e.Score,
			GameID: e.GameID,
		})
	}
	return views
}

func (h *SeasonsHandler) admin(r *http.Request) error {
	if h.adminToken == "" || r.Header.Get(adminHeader) != h.adminToken {
		return ErrUnauthorized
	}
	return nil
}

// HandleCurrent handles GET /seasons/current requests.
func (h *SeasonsHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toSeasonView(h.deps.CurrentSeason(r.Context())))
}

// HandleGet handles GET /seasons/{number} requests.
func (h *SeasonsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	number, err := pathID(r, "number")
	if err != nil {
		writeError(w, err)
		return
	}
	s, err := h.deps.Season(r.Context(), number)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSeasonView(s))
}

// HandleRollover handles POST /seasons/rollover requests. Admin only.
func (h *SeasonsHandler) HandleRollover(w http.ResponseWriter, r *http.Request) {
	if err := h.admin(r); err != nil {
		writeError(w, err)
		return
	}
	s, err := h.deps.Rollover(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSeasonView(s))
}

// HandleDistribute handles POST /seasons/{number}/distribute requests.
// Anyone may trigger a payout once the season's end time has passed; the
// caller earns the distribution incentive.
func (h *SeasonsHandler) HandleDistribute(w http.ResponseWriter, r *http.Request) {
	who, err := caller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	number, err := pathID(r, "number")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.deps.Distribute(r.Context(), number, who); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "distributed"})
}

// HandleLeaderboard handles GET /leaderboard?season=N requests.
func (h *SeasonsHandler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	number, err := seasonQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	board, err := h.deps.Leaderboard(r.Context(), number)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryViews(board))
}

type rankResponse struct {
	Player string `json:"player"`
	Rank   int    `json:"rank"`
	Score  int64  `json:"score,omitempty"`
	GameID uint64 `json:"game_id,omitempty"`
}

// HandleRank handles GET /rank/{player}?season=N requests. Rank is zero
// when the player is not on the board.
func (h *SeasonsHandler) HandleRank(w http.ResponseWriter, r *http.Request) {
	player := r.PathValue("player")
	if player == "" {
		writeError(w, ErrBadRequest)
		return
	}
	number, err := seasonQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := rankResponse{Player: player, Rank: h.deps.Rank(r.Context(), number, player)}
	if best, err := h.deps.Best(r.Context(), number, player); err == nil {
		resp.Score = best.Score
		resp.GameID = best.GameID
	}
	writeJSON(w, http.StatusOK, resp)
}
