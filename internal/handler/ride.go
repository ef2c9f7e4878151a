package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ridecore/internal/apperr"
	"ridecore/internal/domain"
	"ridecore/internal/orchestrator"
	"ridecore/internal/store"
)

// RideHandler handles HTTP requests for rides.
type RideHandler struct {
	orchestrator *orchestrator.Orchestrator
	rides        store.RideStore
	assignments  store.AssignmentStore
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(o *orchestrator.Orchestrator, rides store.RideStore, assignments store.AssignmentStore) *RideHandler {
	return &RideHandler{orchestrator: o, rides: rides, assignments: assignments}
}

// CreateRideRequest is the HTTP request body for POST /v1/rides.
type CreateRideRequest struct {
	RiderID       string       `json:"rider_id,omitempty"`
	Pickup        domain.Point `json:"pickup"`
	Destination   domain.Point `json:"destination"`
	Tier          string       `json:"tier,omitempty"`
	PaymentMethod string       `json:"payment_method,omitempty"`
}

// AssignmentSummary is the nested assignment shape in a ride response.
type AssignmentSummary struct {
	ID       string `json:"id"`
	DriverID string `json:"driver_id"`
	Status   string `json:"status"`
}

// RideResponse is the HTTP response shape for ride endpoints.
type RideResponse struct {
	ID          string             `json:"id"`
	Status      string             `json:"status"`
	Pickup      domain.Point       `json:"pickup"`
	Destination domain.Point       `json:"destination"`
	Assignment  *AssignmentSummary `json:"assignment,omitempty"`
}

// CreateRide handles POST /v1/rides.
func (h *RideHandler) CreateRide(c *gin.Context) {
	var req CreateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	paymentMethod := domain.PaymentMethod(req.PaymentMethod)
	if paymentMethod == "" {
		paymentMethod = domain.PaymentMethodCash
	}
	tier := domain.DriverTier(req.Tier)
	if tier == "" {
		tier = domain.DriverTierBasic
	}

	idempotencyKey := c.GetHeader("Idempotency-Key")

	out, err := h.orchestrator.CreateRide(c.Request.Context(), orchestrator.CreateRideRequest{
		RiderID:       req.RiderID,
		Pickup:        req.Pickup,
		Destination:   req.Destination,
		Tier:          tier,
		PaymentMethod: paymentMethod,
	}, idempotencyKey)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, RideResponse{
		ID:          out.ID,
		Status:      string(out.Status),
		Pickup:      out.Pickup,
		Destination: out.Destination,
	})
}

// GetRide handles GET /v1/rides/:id.
func (h *RideHandler) GetRide(c *gin.Context) {
	rideID := c.Param("id")

	ride, err := h.rides.GetByID(c.Request.Context(), rideID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(c, apperr.ErrNotFound)
			return
		}
		respondError(c, err)
		return
	}

	resp := RideResponse{
		ID:          ride.ID,
		Status:      string(ride.Status),
		Pickup:      ride.Pickup,
		Destination: ride.Destination,
	}

	if a, err := h.assignments.GetLatestForRide(c.Request.Context(), rideID); err == nil {
		resp.Assignment = &AssignmentSummary{ID: a.ID, DriverID: a.DriverID, Status: string(a.Status)}
	}

	respondJSON(c, http.StatusOK, resp)
}
