package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ridecore/internal/apperr"
	"ridecore/internal/domain"
	"ridecore/internal/trip"
)

// TripHandler handles HTTP requests for trips.
type TripHandler struct {
	trips *trip.Manager
	now   func() time.Time
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(trips *trip.Manager, now func() time.Time) *TripHandler {
	if now == nil {
		now = time.Now
	}
	return &TripHandler{trips: trips, now: now}
}

// EndTripRequest is the HTTP request body for POST /v1/trips/:id/end.
type EndTripRequest struct {
	EndLat *float64 `json:"end_lat,omitempty"`
	EndLon *float64 `json:"end_lon,omitempty"`
}

// EndTripResponse is the HTTP response for ending a trip.
type EndTripResponse struct {
	TripID string  `json:"trip_id"`
	Fare   float64 `json:"fare"`
	Status string  `json:"status"`
}

// End handles POST /v1/trips/:id/end.
func (h *TripHandler) End(c *gin.Context) {
	tripID := c.Param("id")

	var req EndTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	var endLoc *domain.Point
	if req.EndLat != nil && req.EndLon != nil {
		endLoc = &domain.Point{Lat: *req.EndLat, Lon: *req.EndLon}
	}

	t, _, err := h.trips.Close(c.Request.Context(), tripID, endLoc, h.now())
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
			return
		}
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, EndTripResponse{TripID: t.ID, Fare: t.Fare, Status: string(t.Status)})
}
