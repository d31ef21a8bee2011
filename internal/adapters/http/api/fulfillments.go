// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
)

// FulfillmentDependencies defines the interface for randomness callbacks.
type FulfillmentDependencies interface {
	Fulfill(ctx context.Context, requestID string, randomValue uint64) bool
}

// FulfillmentHandler handles randomness provider callbacks.
type FulfillmentHandler struct {
	deps FulfillmentDependencies
}

// NewFulfillmentHandler creates a new fulfillment handler.
func NewFulfillmentHandler(deps FulfillmentDependencies) *FulfillmentHandler {
	return &FulfillmentHandler{deps: deps}
}

type fulfillmentRequest struct {
	RequestID   string `json:"request_id"`
	RandomValue uint64 `json:"random_value"`
}

type ackResponse struct {
	Status string `json:"status"`
}

// HandleFulfillment handles POST /randomness/fulfillments requests.
// Delivery is accepted for async resolution; unknown or replayed request
// ids are discarded downstream without error.
func (h *FulfillmentHandler) HandleFulfillment(w http.ResponseWriter, r *http.Request) {
	var req fulfillmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, ErrBadRequest)
		return
	}
	if req.RequestID == "" {
		writeError(w, ErrBadRequest)
		return
	}
	if ok := h.deps.Fulfill(r.Context(), req.RequestID, req.RandomValue); !ok {
		writeError(w, ErrBackpressure)
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}
