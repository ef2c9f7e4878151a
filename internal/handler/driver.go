package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ridecore/internal/apperr"
	"ridecore/internal/assignment"
	"ridecore/internal/domain"
	"ridecore/internal/geoindex"
)

// DriverHandler handles HTTP requests for drivers.
type DriverHandler struct {
	index       geoindex.GeoIndex
	assignments *assignment.Manager
	now         func() time.Time
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(index geoindex.GeoIndex, assignments *assignment.Manager, now func() time.Time) *DriverHandler {
	if now == nil {
		now = time.Now
	}
	return &DriverHandler{index: index, assignments: assignments, now: now}
}

// LocationRequest is the HTTP request body for POST /v1/drivers/:id/location.
type LocationRequest struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// UpdateLocation handles POST /v1/drivers/:id/location.
func (h *DriverHandler) UpdateLocation(c *gin.Context) {
	driverID := c.Param("id")

	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if req.Lat < -90 || req.Lat > 90 || req.Lon < -180 || req.Lon > 180 {
		respondError(c, apperr.ErrValidationFailed)
		return
	}

	if err := h.index.Upsert(c.Request.Context(), driverID, domain.Point{Lat: req.Lat, Lon: req.Lon}, h.now()); err != nil {
		respondError(c, apperr.ErrBackendUnavailable)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"status": "ok"})
}

// AcceptRequest is the HTTP request body for POST /v1/drivers/:id/accept.
type AcceptRequest struct {
	AssignmentID string `json:"assignment_id"`
}

// AcceptResponse is the HTTP response for a successful accept.
type AcceptResponse struct {
	TripID string `json:"trip_id"`
	Status string `json:"status"`
}

// Accept handles POST /v1/drivers/:id/accept.
func (h *DriverHandler) Accept(c *gin.Context) {
	driverID := c.Param("id")

	var req AcceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	trip, err := h.assignments.Accept(c.Request.Context(), driverID, req.AssignmentID)
	if err != nil {
		if errors.Is(err, apperr.ErrCannotAccept) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, AcceptResponse{TripID: trip.ID, Status: string(trip.Status)})
}
