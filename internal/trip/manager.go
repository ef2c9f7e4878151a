// Package trip implements the Ongoing/Paused/Completed trip lifecycle and
// the fare computation handed off to payment settlement.
package trip

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"

	"ridecore/internal/apperr"
	"ridecore/internal/domain"
	"ridecore/internal/geo"
	"ridecore/internal/geoindex"
	"ridecore/internal/store"
	"ridecore/internal/store/postgres"
)

const (
	fareBase       = 2.0
	farePerKm      = 1.5
	farePerMinute  = 0.2
)

// Manager drives the Trip lifecycle.
type Manager struct {
	db      *sql.DB
	trips   store.TripStore
	payments store.PaymentStore
	index   geoindex.GeoIndex
	now     func() time.Time

	// onClosed is called with the id of every Payment inserted by Close,
	// so the caller can hand it off to settlement without this package
	// depending on the payment package.
	onClosed func(paymentID string)
}

// New builds a Manager. now defaults to time.Now if nil.
func New(db *sql.DB, trips store.TripStore, payments store.PaymentStore, index geoindex.GeoIndex, now func() time.Time, onClosed func(paymentID string)) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{db: db, trips: trips, payments: payments, index: index, now: now, onClosed: onClosed}
}

// Open inserts a new Ongoing trip in its own transaction.
func (m *Manager) Open(ctx context.Context, rideID, driverID string, now time.Time) (*domain.Trip, error) {
	var t *domain.Trip
	err := store.WithTx(ctx, m.db, func(tx *sql.Tx) error {
		opened, err := m.OpenTx(ctx, tx, rideID, driverID, now)
		t = opened
		return err
	})
	return t, err
}

// OpenTx inserts a new Ongoing trip using the caller's transaction — used
// by AssignmentManager.Accept so trip creation is part of the same commit
// as the assignment transition.
func (m *Manager) OpenTx(ctx context.Context, tx *sql.Tx, rideID, driverID string, now time.Time) (*domain.Trip, error) {
	t := &domain.Trip{
		ID:       uuid.NewString(),
		RideID:   rideID,
		DriverID: driverID,
		Status:   domain.TripStatusOngoing,
		StartAt:  now,
	}
	txTrips := postgres.NewTripRepositoryWithTx(tx)
	if err := txTrips.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Pause marks an Ongoing trip Paused, recording the pause start time.
func (m *Manager) Pause(ctx context.Context, tripID string, now time.Time) (*domain.Trip, error) {
	var result *domain.Trip
	err := store.WithTx(ctx, m.db, func(tx *sql.Tx) error {
		txTrips := postgres.NewTripRepositoryWithTx(tx)

		t, err := txTrips.GetByIDForUpdate(ctx, tripID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.ErrNotFound
			}
			return err
		}
		if t.Status != domain.TripStatusOngoing {
			return apperr.ErrIllegalState
		}

		t.Status = domain.TripStatusPaused
		t.PausedAt = now
		if err := txTrips.Update(ctx, t); err != nil {
			return err
		}
		result = t
		return nil
	})
	return result, err
}

// Resume marks a Paused trip Ongoing again, accumulating the elapsed pause
// duration into TotalPaused so it can be excluded from the fare-relevant
// duration at Close.
func (m *Manager) Resume(ctx context.Context, tripID string, now time.Time) (*domain.Trip, error) {
	var result *domain.Trip
	err := store.WithTx(ctx, m.db, func(tx *sql.Tx) error {
		txTrips := postgres.NewTripRepositoryWithTx(tx)

		t, err := txTrips.GetByIDForUpdate(ctx, tripID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.ErrNotFound
			}
			return err
		}
		if t.Status != domain.TripStatusPaused {
			return apperr.ErrIllegalState
		}

		t.TotalPaused += now.Sub(t.PausedAt)
		t.PausedAt = time.Time{}
		t.Status = domain.TripStatusOngoing
		if err := txTrips.Update(ctx, t); err != nil {
			return err
		}
		result = t
		return nil
	})
	return result, err
}

// Close completes an Ongoing trip, computes the fare, and inserts a
// Pending payment in the same transaction. endLoc is optional; when
// provided and the driver's position is fresh, distance is recomputed via
// Haversine against it (a known simplification: this treats the driver's
// last reported position as the trip's start-side reference, rather than
// tracking the pickup-to-dropoff path).
func (m *Manager) Close(ctx context.Context, tripID string, endLoc *domain.Point, now time.Time) (*domain.Trip, *domain.Payment, error) {
	var resultTrip *domain.Trip
	var resultPayment *domain.Payment

	err := store.WithTx(ctx, m.db, func(tx *sql.Tx) error {
		txTrips := postgres.NewTripRepositoryWithTx(tx)
		txPayments := postgres.NewPaymentRepositoryWithTx(tx)

		t, err := txTrips.GetByIDForUpdate(ctx, tripID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.ErrNotFound
			}
			return err
		}
		if t.Status != domain.TripStatusOngoing {
			return apperr.ErrIllegalState
		}

		distanceKm := t.DistanceKm
		if endLoc != nil {
			if ref, fresh, gerr := m.index.Get(ctx, t.DriverID, now); gerr == nil && fresh {
				distanceKm = geo.Haversine(ref, *endLoc)
			}
		}

		elapsed := now.Sub(t.StartAt) - t.TotalPaused
		if elapsed < 0 {
			elapsed = 0
		}
		durationSec := int64(math.Floor(elapsed.Seconds()))

		fare := fareBase + distanceKm*farePerKm + (float64(durationSec)/60.0)*farePerMinute

		t.Status = domain.TripStatusCompleted
		t.EndAt = now
		t.DistanceKm = distanceKm
		t.DurationSec = durationSec
		t.Fare = fare
		if err := txTrips.Update(ctx, t); err != nil {
			return err
		}

		p := &domain.Payment{
			ID:     uuid.NewString(),
			TripID: t.ID,
			Amount: fare,
			Status: domain.PaymentStatusPending,
		}
		if err := txPayments.Create(ctx, p); err != nil {
			return err
		}

		resultTrip = t
		resultPayment = p
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if m.onClosed != nil {
		m.onClosed(resultPayment.ID)
	}
	return resultTrip, resultPayment, nil
}
