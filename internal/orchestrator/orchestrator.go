// Package orchestrator implements the idempotent create_ride façade that
// ties GeoIndex matching, Store persistence, and assignment offering
// together.
package orchestrator

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"ridecore/internal/apperr"
	"ridecore/internal/assignment"
	"ridecore/internal/domain"
	"ridecore/internal/matcher"
	"ridecore/internal/store"
	"ridecore/internal/store/postgres"
)

// DefaultMatchRadiusKm is the default pickup search radius.
const DefaultMatchRadiusKm = 5.0

// CreateRideRequest is the input to CreateRide.
type CreateRideRequest struct {
	RiderID       string
	Pickup        domain.Point
	Destination   domain.Point
	Tier          domain.DriverTier
	PaymentMethod domain.PaymentMethod
}

// RideOut is the response produced by CreateRide.
type RideOut struct {
	ID          string            `json:"id"`
	Status      domain.RideStatus `json:"status"`
	Pickup      domain.Point      `json:"pickup"`
	Destination domain.Point      `json:"destination"`
}

// Orchestrator wires the create-ride flow end to end.
type Orchestrator struct {
	db           *sql.DB
	rides        store.RideStore
	idempotency  store.IdempotencyStore
	matcher      *matcher.Matcher
	assignments  *assignment.Manager
	matchRadius  float64
	now          func() time.Time
}

// New builds an Orchestrator. matchRadiusKm of 0 uses DefaultMatchRadiusKm.
func New(db *sql.DB, rides store.RideStore, idempotency store.IdempotencyStore, m *matcher.Matcher, assignments *assignment.Manager, matchRadiusKm float64, now func() time.Time) *Orchestrator {
	if matchRadiusKm <= 0 {
		matchRadiusKm = DefaultMatchRadiusKm
	}
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{db: db, rides: rides, idempotency: idempotency, matcher: m, assignments: assignments, matchRadius: matchRadiusKm, now: now}
}

// CreateRide runs the create-ride flow. When idempotencyKey is non-empty,
// a repeat call with the same key returns the first call's response
// unchanged, without re-running matching or creating a second ride.
func (o *Orchestrator) CreateRide(ctx context.Context, req CreateRideRequest, idempotencyKey string) (*RideOut, error) {
	if req.Pickup.Lat < -90 || req.Pickup.Lat > 90 || req.Pickup.Lon < -180 || req.Pickup.Lon > 180 ||
		req.Destination.Lat < -90 || req.Destination.Lat > 90 || req.Destination.Lon < -180 || req.Destination.Lon > 180 {
		return nil, apperr.ErrValidationFailed
	}

	if idempotencyKey == "" {
		return o.createRide(ctx, req)
	}

	won, err := o.idempotency.Claim(ctx, idempotencyKey)
	if err != nil {
		return nil, err
	}
	if !won {
		stored, err := o.idempotency.WaitForResponse(ctx, idempotencyKey)
		if err != nil {
			return nil, err
		}
		var cached RideOut
		if err := json.Unmarshal(stored, &cached); err != nil {
			return nil, err
		}
		return &cached, nil
	}

	out, err := o.createRide(ctx, req)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	if err := o.idempotency.Complete(ctx, idempotencyKey, encoded); err != nil {
		return nil, err
	}
	return out, nil
}

func (o *Orchestrator) createRide(ctx context.Context, req CreateRideRequest) (*RideOut, error) {
	rideID := uuid.NewString()
	now := o.now()

	ride := &domain.Ride{
		ID:            rideID,
		RiderID:       req.RiderID,
		Pickup:        req.Pickup,
		Destination:   req.Destination,
		Tier:          req.Tier,
		PaymentMethod: req.PaymentMethod,
		Status:        domain.RideStatusSearching,
		CreatedAt:     now,
	}

	if err := store.WithTx(ctx, o.db, func(tx *sql.Tx) error {
		return postgres.NewRideRepositoryWithTx(tx).Create(ctx, ride)
	}); err != nil {
		return nil, err
	}

	driverID, found, err := o.matcher.FindNearest(ctx, req.Pickup, o.matchRadius)
	if err != nil {
		// Store/GeoIndex trouble during matching: abandon the match and
		// surface NoDriver rather than a partial state.
		_ = o.rides.UpdateStatus(ctx, rideID, domain.RideStatusNoDriver)
		ride.Status = domain.RideStatusNoDriver
		return toRideOut(ride), nil
	}

	if !found {
		if err := o.rides.UpdateStatus(ctx, rideID, domain.RideStatusNoDriver); err != nil {
			return nil, err
		}
		ride.Status = domain.RideStatusNoDriver
		return toRideOut(ride), nil
	}

	if _, err := o.assignments.Offer(ctx, rideID, driverID); err != nil {
		if err := o.rides.UpdateStatus(ctx, rideID, domain.RideStatusNoDriver); err != nil {
			return nil, err
		}
		ride.Status = domain.RideStatusNoDriver
		return toRideOut(ride), nil
	}

	ride.Status = domain.RideStatusAssigned
	return toRideOut(ride), nil
}

func toRideOut(ride *domain.Ride) *RideOut {
	return &RideOut{
		ID:          ride.ID,
		Status:      ride.Status,
		Pickup:      ride.Pickup,
		Destination: ride.Destination,
	}
}
