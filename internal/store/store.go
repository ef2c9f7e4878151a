// Package store defines the persistence interfaces used by the matching,
// assignment, trip, and payment pipeline. Concrete implementations live in
// store/postgres.
package store

import (
	"context"
	"errors"

	"ridecore/internal/domain"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("store: entity not found")

// ErrConflict is returned when an update's WHERE clause (typically a status
// guard) matches zero rows — the row exists but was not in the expected
// state.
var ErrConflict = errors.New("store: conflicting update")

// RideStore persists rides.
type RideStore interface {
	Create(ctx context.Context, ride *domain.Ride) error
	GetByID(ctx context.Context, id string) (*domain.Ride, error)
	UpdateStatus(ctx context.Context, id string, status domain.RideStatus) error
}

// DriverStore persists driver metadata (tier, name). Driver position lives
// in the geoindex, not here.
type DriverStore interface {
	GetByID(ctx context.Context, id string) (*domain.Driver, error)
	Upsert(ctx context.Context, driver *domain.Driver) error
}

// AssignmentStore persists ride-to-driver assignment offers.
type AssignmentStore interface {
	Create(ctx context.Context, a *domain.Assignment) error
	GetByID(ctx context.Context, id string) (*domain.Assignment, error)
	// GetByIDForUpdate locks the row for the caller's transaction, so that
	// Accept and Expire racing on the same assignment serialize on it.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Assignment, error)
	// GetOfferedForRide returns the current OFFERED assignment for a ride,
	// if any.
	GetOfferedForRide(ctx context.Context, rideID string) (*domain.Assignment, error)
	// GetLatestForRide returns the most recently offered assignment for a
	// ride regardless of status.
	GetLatestForRide(ctx context.Context, rideID string) (*domain.Assignment, error)
	// TransitionStatus moves an assignment from fromStatus to toStatus.
	// Returns ErrConflict if the row is not currently in fromStatus — the
	// caller relies on this to resolve the accept-vs-expire race.
	TransitionStatus(ctx context.Context, id string, fromStatus, toStatus domain.AssignmentStatus) error
}

// TripStore persists trips.
type TripStore interface {
	Create(ctx context.Context, trip *domain.Trip) error
	GetByID(ctx context.Context, id string) (*domain.Trip, error)
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Trip, error)
	GetByRideID(ctx context.Context, rideID string) (*domain.Trip, error)
	Update(ctx context.Context, trip *domain.Trip) error
}

// PaymentStore persists payments.
type PaymentStore interface {
	Create(ctx context.Context, payment *domain.Payment) error
	GetByID(ctx context.Context, id string) (*domain.Payment, error)
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Payment, error)
	GetByTripID(ctx context.Context, tripID string) (*domain.Payment, error)
	UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus, providerResponse string) error
}

// IdempotencyStore caches the response produced by the first create_ride
// call made under a given idempotency key, gating the side-effecting work
// itself rather than just its cached result.
type IdempotencyStore interface {
	// Claim attempts to reserve key for the caller. won=true means this
	// call is the one that should do the work and call Complete; won=false
	// means another caller already claimed it, and the caller should wait
	// for (and return) its eventual response via WaitForResponse.
	Claim(ctx context.Context, key string) (won bool, err error)

	// Complete stores the response produced by the winning caller.
	Complete(ctx context.Context, key string, response []byte) error

	// WaitForResponse polls for a completed response under key, for
	// callers that lost the Claim race.
	WaitForResponse(ctx context.Context, key string) (response []byte, err error)
}
