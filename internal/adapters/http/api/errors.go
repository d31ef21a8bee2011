package api

import (
	"errors"
	"net/http"

	"github.com/kyral/bandrush/internal/adapters/wallet"
	service "github.com/kyral/bandrush/internal/app"
	"github.com/kyral/bandrush/internal/domain/auth"
	"github.com/kyral/bandrush/internal/domain/game"
	"github.com/kyral/bandrush/internal/domain/prize"
	"github.com/kyral/bandrush/internal/domain/season"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("backpressure")
	ErrNoCaller     = errors.New("missing X-Caller header")
	ErrUnauthorized = errors.New("unauthorized")
)

// statusFor translates domain errors to HTTP status codes. Unknown errors
// map to 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, ErrNoCaller),
		errors.Is(err, game.ErrEmptyPlayer),
		errors.Is(err, auth.ErrInvalidKey),
		errors.Is(err, auth.ErrNoSelectors),
		errors.Is(err, auth.ErrDurationOutOfRange),
		errors.Is(err, auth.ErrInvalidOperator),
		errors.Is(err, auth.ErrSelfOperator),
		errors.Is(err, prize.ErrEmptyRecipient),
		errors.Is(err, prize.ErrNegativeAmounts),
		errors.Is(err, service.ErrUnknownSelector),
		errors.Is(err, service.ErrUnknownTarget):
		return http.StatusBadRequest

	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized

	case errors.Is(err, game.ErrInsufficientPayment),
		errors.Is(err, wallet.ErrInsufficientFunds):
		return http.StatusPaymentRequired

	case errors.Is(err, game.ErrNotOwner),
		errors.Is(err, auth.ErrNoSession),
		errors.Is(err, auth.ErrNotSessionKey),
		errors.Is(err, auth.ErrWrongTarget),
		errors.Is(err, auth.ErrSelectorNotAllowed),
		errors.Is(err, auth.ErrSessionExpired),
		errors.Is(err, auth.ErrGameMismatch),
		errors.Is(err, auth.ErrNotOperator),
		errors.Is(err, auth.ErrAllowanceExceeded):
		return http.StatusForbidden

	case errors.Is(err, game.ErrUnknownGame),
		errors.Is(err, season.ErrUnknownSeason),
		errors.Is(err, season.ErrPlayerNotRanked),
		errors.Is(err, prize.ErrNothingToClaim),
		errors.Is(err, wallet.ErrUnknownAccount):
		return http.StatusNotFound

	case errors.Is(err, game.ErrWrongState),
		errors.Is(err, game.ErrNoBands),
		errors.Is(err, game.ErrNotStaleYet),
		errors.Is(err, auth.ErrSessionActive),
		errors.Is(err, season.ErrSeasonFinalized),
		errors.Is(err, season.ErrSeasonNotOver):
		return http.StatusConflict

	case errors.Is(err, ErrBackpressure):
		return http.StatusTooManyRequests

	case errors.Is(err, game.ErrRandomnessRequest),
		errors.Is(err, prize.ErrClaimFailed),
		errors.Is(err, wallet.ErrTransferRejected):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}

// codeFor returns the machine-readable error code for a status.
func codeFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusPaymentRequired:
		return "payment_required"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusTooManyRequests:
		return "backpressure"
	case http.StatusBadGateway:
		return "upstream_error"
	default:
		return "internal_error"
	}
}
