package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ridecore/internal/apperr"
	"ridecore/internal/domain"
	"ridecore/internal/store"
)

// PaymentHandler handles HTTP requests for payments.
type PaymentHandler struct {
	payments store.PaymentStore
	trips    store.TripStore
	rides    store.RideStore
	now      func() time.Time
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(payments store.PaymentStore, trips store.TripStore, rides store.RideStore, now func() time.Time) *PaymentHandler {
	if now == nil {
		now = time.Now
	}
	return &PaymentHandler{payments: payments, trips: trips, rides: rides, now: now}
}

// CreatePaymentRequest is the HTTP request body for POST /v1/payments.
type CreatePaymentRequest struct {
	TripID string `json:"trip_id"`
	Method string `json:"method,omitempty"`
}

// PaymentReceipt is the HTTP response shape for a payment lookup.
type PaymentReceipt struct {
	PaymentID     string       `json:"payment_id"`
	TripID        string       `json:"trip_id"`
	RiderID       string       `json:"rider_id"`
	DriverID      string       `json:"driver_id"`
	Amount        float64      `json:"amount"`
	PaymentMethod string       `json:"payment_method"`
	Status        string       `json:"status"`
	DistanceKm    float64      `json:"distance_km"`
	DurationSec   int64        `json:"duration_sec"`
	Pickup        domain.Point `json:"pickup"`
	Destination   domain.Point `json:"destination"`
	Timestamp     time.Time    `json:"timestamp"`
}

// Get handles POST /v1/payments — it looks up the payment settled (or still
// pending) for a trip and assembles the receipt from the trip and ride it
// belongs to. The payment itself is created by TripManager.Close, not here.
func (h *PaymentHandler) Get(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ctx := c.Request.Context()

	payment, err := h.payments.GetByTripID(ctx, req.TripID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(c, apperr.ErrNotFound)
			return
		}
		respondError(c, err)
		return
	}

	t, err := h.trips.GetByID(ctx, req.TripID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(c, apperr.ErrNotFound)
			return
		}
		respondError(c, err)
		return
	}

	r, err := h.rides.GetByID(ctx, t.RideID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(c, apperr.ErrNotFound)
			return
		}
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, PaymentReceipt{
		PaymentID:     payment.ID,
		TripID:        t.ID,
		RiderID:       r.RiderID,
		DriverID:      t.DriverID,
		Amount:        payment.Amount,
		PaymentMethod: string(r.PaymentMethod),
		Status:        string(payment.Status),
		DistanceKm:    t.DistanceKm,
		DurationSec:   t.DurationSec,
		Pickup:        r.Pickup,
		Destination:   r.Destination,
		Timestamp:     h.now(),
	})
}
