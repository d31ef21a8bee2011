// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/kyral/bandrush/internal/adapters/events"
	"github.com/kyral/bandrush/internal/domain/auth"
	"github.com/kyral/bandrush/internal/domain/model"
)

// callerHeader carries the acting account on every mutating request.
const callerHeader = "X-Caller"

// adminHeader carries the shared token for privileged operations.
const adminHeader = "X-Admin-Token"

// Dependencies is the full service surface the HTTP handlers consume.
// Using an interface bundle keeps the handler layer loosely coupled to
// the app wiring.
type Dependencies interface {
	Cost(ctx context.Context) model.CostBreakdown
	StartGame(ctx context.Context, player string, payment int64) (model.Game, error)
	Game(ctx context.Context, gameID uint64) (model.Game, error)
	AddBand(ctx context.Context, caller string, gameID uint64) (model.Game, error)
	CashOut(ctx context.Context, caller string, gameID uint64) (model.Game, error)
	CancelStale(ctx context.Context, gameID uint64) error

	Fulfill(ctx context.Context, requestID string, randomValue uint64) bool

	Execute(ctx context.Context, caller, owner string, call auth.Call) (model.Game, error)
	CreateSession(ctx context.Context, owner, sessionKey string, duration time.Duration, target string, selectors []string, gameID uint64) (model.Session, error)
	RevokeSession(ctx context.Context, owner string) error
	SessionStatus(ctx context.Context, owner string) (model.Session, time.Duration, error)

	AuthorizeOperator(ctx context.Context, owner, operator string) error
	SetOperatorAllowance(ctx context.Context, owner string, amount int64) error
	RevokeOperator(ctx context.Context, owner string) error
	OperatorStatus(ctx context.Context, owner string) (operator string, allowance int64, unlimited, ok bool)
	StartGameFor(ctx context.Context, operator, player string, payment int64) (model.Game, error)

	CurrentSeason(ctx context.Context) model.Season
	Season(ctx context.Context, number uint64) (model.Season, error)
	Leaderboard(ctx context.Context, number uint64) ([]model.LeaderboardEntry, error)
	Rank(ctx context.Context, number uint64, player string) int
	Best(ctx context.Context, number uint64, player string) (model.LeaderboardEntry, error)
	Rollover(ctx context.Context) (model.Season, error)
	Distribute(ctx context.Context, seasonNumber uint64, caller string) error

	PendingPrize(ctx context.Context, player string) int64
	ClaimPrize(ctx context.Context, player string) (int64, error)

	Balance(ctx context.Context, account string) (int64, error)
	Events() (<-chan events.Event, func())
	Stats(ctx context.Context) map[string]any
}

// Server wires HTTP routes for the business API.
type Server struct {
	games     *GamesHandler
	sessions  *SessionsHandler
	operators *OperatorsHandler
	seasons   *SeasonsHandler
	prizes    *PrizesHandler
	callbacks *FulfillmentHandler
	events    *EventsHandler
	stats     *StatsHandler
	health    *HealthHandler
}

// NewServer creates a new API server with all handlers. adminToken guards
// the privileged season endpoints; empty disables them.
func NewServer(deps Dependencies, adminToken string) *Server {
	return &Server{
		games:     NewGamesHandler(deps),
		sessions:  NewSessionsHandler(deps),
		operators: NewOperatorsHandler(deps),
		seasons:   NewSeasonsHandler(deps, adminToken),
		prizes:    NewPrizesHandler(deps),
		callbacks: NewFulfillmentHandler(deps),
		events:    NewEventsHandler(deps),
		stats:     NewStatsHandler(deps),
		health:    NewHealthHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.health.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.stats.HandleStats, "stats"))
	mux.HandleFunc("GET /events", s.events.HandleStream)

	mux.HandleFunc("GET /cost", MetricsMiddleware(s.games.HandleCost, "cost"))
	mux.HandleFunc("POST /games", MetricsMiddleware(s.games.HandleStart, "games"))
	mux.HandleFunc("GET /games/{id}", MetricsMiddleware(s.games.HandleGet, "games"))
	mux.HandleFunc("POST /games/{id}/bands", MetricsMiddleware(s.games.HandleAddBand, "bands"))
	mux.HandleFunc("POST /games/{id}/cashout", MetricsMiddleware(s.games.HandleCashOut, "cashout"))
	mux.HandleFunc("POST /games/{id}/cancel", MetricsMiddleware(s.games.HandleCancel, "cancel"))
	mux.HandleFunc("GET /balance/{account}", MetricsMiddleware(s.games.HandleBalance, "balance"))

	mux.HandleFunc("POST /randomness/fulfillments", MetricsMiddleware(s.callbacks.HandleFulfillment, "fulfillments"))

	mux.HandleFunc("POST /sessions", MetricsMiddleware(s.sessions.HandleCreate, "sessions"))
	mux.HandleFunc("GET /sessions", MetricsMiddleware(s.sessions.HandleStatus, "sessions"))
	mux.HandleFunc("DELETE /sessions", MetricsMiddleware(s.sessions.HandleRevoke, "sessions"))
	mux.HandleFunc("POST /execute", MetricsMiddleware(s.sessions.HandleExecute, "execute"))

	mux.HandleFunc("POST /operators/authorize", MetricsMiddleware(s.operators.HandleAuthorize, "operators"))
	mux.HandleFunc("POST /operators/allowance", MetricsMiddleware(s.operators.HandleAllowance, "operators"))
	mux.HandleFunc("DELETE /operators", MetricsMiddleware(s.operators.HandleRevoke, "operators"))
	mux.HandleFunc("GET /operators", MetricsMiddleware(s.operators.HandleStatus, "operators"))
	mux.HandleFunc("POST /operators/games", MetricsMiddleware(s.operators.HandleStartFor, "operators"))

	mux.HandleFunc("GET /seasons/current", MetricsMiddleware(s.seasons.HandleCurrent, "seasons"))
	mux.HandleFunc("GET /seasons/{number}", MetricsMiddleware(s.seasons.HandleGet, "seasons"))
	mux.HandleFunc("POST /seasons/rollover", MetricsMiddleware(s.seasons.HandleRollover, "rollover"))
	mux.HandleFunc("POST /seasons/{number}/distribute", MetricsMiddleware(s.seasons.HandleDistribute, "distribute"))
	mux.HandleFunc("GET /leaderboard", MetricsMiddleware(s.seasons.HandleLeaderboard, "leaderboard"))
	mux.HandleFunc("GET /rank/{player}", MetricsMiddleware(s.seasons.HandleRank, "rank"))

	mux.HandleFunc("GET /prizes", MetricsMiddleware(s.prizes.HandlePending, "prizes"))
	mux.HandleFunc("POST /prizes/claim", MetricsMiddleware(s.prizes.HandleClaim, "prizes"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: codeFor(status), Message: msg})
}

// caller extracts the acting account from the request headers.
func caller(r *http.Request) (string, error) {
	c := r.Header.Get(callerHeader)
	if c == "" {
		return "", ErrNoCaller
	}
	return c, nil
}

// pathID parses a uint64 path segment.
func pathID(r *http.Request, name string) (uint64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, ErrBadRequest
	}
	return id, nil
}

// seasonQuery parses the optional ?season= query parameter. Zero selects
// the current season downstream.
func seasonQuery(r *http.Request) (uint64, error) {
	raw := r.URL.Query().Get("season")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, ErrBadRequest
	}
	return n, nil
}
