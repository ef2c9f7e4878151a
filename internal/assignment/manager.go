// Package assignment implements the Offered/Accepted/Declined/Expired
// state machine for ride-to-driver offers.
package assignment

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"ridecore/internal/apperr"
	"ridecore/internal/domain"
	"ridecore/internal/store"
	"ridecore/internal/store/postgres"
	"ridecore/internal/trip"
)

// DefaultTTL is the default offer expiry window.
const DefaultTTL = 10 * time.Second

// Manager drives the Assignment state machine and owns the offer-expiry
// timers. One logical timer exists per outstanding offer; Accept and
// Expire race on the assignment row lock, so at most one of them commits
// the terminal transition.
type Manager struct {
	db      *sql.DB
	assign  store.AssignmentStore
	rides   store.RideStore
	trips   *trip.Manager
	ttl     time.Duration
	now     func() time.Time

	timers sync.Map // assignmentID -> *time.Timer
}

// New builds a Manager. ttl of 0 uses DefaultTTL.
func New(db *sql.DB, assign store.AssignmentStore, rides store.RideStore, trips *trip.Manager, ttl time.Duration, now func() time.Time) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Manager{db: db, assign: assign, rides: rides, trips: trips, ttl: ttl, now: now}
}

// Offer creates an Offered assignment for rideID/driverID, sets the ride to
// Assigned, and arms the expiry timer after the transaction commits.
func (m *Manager) Offer(ctx context.Context, rideID, driverID string) (assignmentID string, err error) {
	assignmentID = uuid.NewString()
	now := m.now()

	err = store.WithTx(ctx, m.db, func(tx *sql.Tx) error {
		txAssign := postgres.NewAssignmentRepositoryWithTx(tx)
		txRides := postgres.NewRideRepositoryWithTx(tx)

		a := &domain.Assignment{
			ID:        assignmentID,
			RideID:    rideID,
			DriverID:  driverID,
			Status:    domain.AssignmentStatusOffered,
			OfferedAt: now,
		}
		if err := txAssign.Create(ctx, a); err != nil {
			return err
		}
		return txRides.UpdateStatus(ctx, rideID, domain.RideStatusAssigned)
	})
	if err != nil {
		return "", err
	}

	m.armTimer(assignmentID)
	return assignmentID, nil
}

// armTimer schedules Expire after m.ttl, strictly after the caller's
// transaction has already committed.
func (m *Manager) armTimer(assignmentID string) {
	timer := time.AfterFunc(m.ttl, func() {
		m.timers.Delete(assignmentID)
		_ = m.Expire(context.Background(), assignmentID)
	})
	m.timers.Store(assignmentID, timer)
}

// Accept transitions an Offered assignment owned by driverID to Accepted
// and opens the trip. Returns apperr.ErrCannotAccept if the assignment is
// not Offered, or is owned by another driver.
func (m *Manager) Accept(ctx context.Context, driverID, assignmentID string) (*domain.Trip, error) {
	var openedTrip *domain.Trip
	now := m.now()

	err := store.WithTx(ctx, m.db, func(tx *sql.Tx) error {
		txAssign := postgres.NewAssignmentRepositoryWithTx(tx)

		a, err := txAssign.GetByIDForUpdate(ctx, assignmentID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.ErrCannotAccept
			}
			return err
		}
		if a.Status != domain.AssignmentStatusOffered || a.DriverID != driverID {
			return apperr.ErrCannotAccept
		}

		if err := txAssign.TransitionStatus(ctx, assignmentID, domain.AssignmentStatusOffered, domain.AssignmentStatusAccepted); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return apperr.ErrCannotAccept
			}
			return err
		}

		t, err := m.trips.OpenTx(ctx, tx, a.RideID, driverID, now)
		if err != nil {
			return err
		}
		openedTrip = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.clearTimer(assignmentID)
	return openedTrip, nil
}

// Decline transitions an Offered assignment owned by driverID to Declined
// and frees the ride back to Searching. Mirrors Expire's transition, with
// the caller asserting driver ownership.
func (m *Manager) Decline(ctx context.Context, driverID, assignmentID string) error {
	err := store.WithTx(ctx, m.db, func(tx *sql.Tx) error {
		txAssign := postgres.NewAssignmentRepositoryWithTx(tx)
		txRides := postgres.NewRideRepositoryWithTx(tx)

		a, err := txAssign.GetByIDForUpdate(ctx, assignmentID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.ErrCannotAccept
			}
			return err
		}
		if a.Status != domain.AssignmentStatusOffered || a.DriverID != driverID {
			return apperr.ErrCannotAccept
		}

		if err := txAssign.TransitionStatus(ctx, assignmentID, domain.AssignmentStatusOffered, domain.AssignmentStatusDeclined); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return apperr.ErrCannotAccept
			}
			return err
		}

		return txRides.UpdateStatus(ctx, a.RideID, domain.RideStatusSearching)
	})
	if err != nil {
		return err
	}

	m.clearTimer(assignmentID)
	return nil
}

// Expire transitions an Offered assignment to Expired and frees the ride.
// Idempotent: a no-op if the assignment is already terminal.
func (m *Manager) Expire(ctx context.Context, assignmentID string) error {
	err := store.WithTx(ctx, m.db, func(tx *sql.Tx) error {
		txAssign := postgres.NewAssignmentRepositoryWithTx(tx)
		txRides := postgres.NewRideRepositoryWithTx(tx)

		a, err := txAssign.GetByIDForUpdate(ctx, assignmentID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			return err
		}
		if a.Status != domain.AssignmentStatusOffered {
			return nil
		}

		if err := txAssign.TransitionStatus(ctx, assignmentID, domain.AssignmentStatusOffered, domain.AssignmentStatusExpired); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return nil
			}
			return err
		}

		return txRides.UpdateStatus(ctx, a.RideID, domain.RideStatusSearching)
	})
	if err != nil {
		return err
	}

	m.clearTimer(assignmentID)
	return nil
}

func (m *Manager) clearTimer(assignmentID string) {
	if v, ok := m.timers.LoadAndDelete(assignmentID); ok {
		v.(*time.Timer).Stop()
	}
}
