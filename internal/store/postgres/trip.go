package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"ridecore/internal/domain"
	"ridecore/internal/store"
)

// TripRepository is a PostgreSQL implementation of store.TripStore.
type TripRepository struct {
	q Querier
}

func NewTripRepository(db *sql.DB) *TripRepository {
	return &TripRepository{q: db}
}

func NewTripRepositoryWithTx(tx *sql.Tx) *TripRepository {
	return &TripRepository{q: tx}
}

func (r *TripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	query := `
		INSERT INTO trips (id, ride_id, driver_id, status, start_at, distance_km, duration_sec, fare, total_paused_sec)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.q.ExecContext(ctx, query,
		trip.ID, trip.RideID, trip.DriverID, trip.Status, trip.StartAt,
		trip.DistanceKm, trip.DurationSec, trip.Fare, int64(trip.TotalPaused.Seconds()),
	)
	return err
}

func (r *TripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	return r.scanOne(ctx, `
		SELECT id, ride_id, driver_id, status, start_at, end_at, paused_at, total_paused_sec, distance_km, duration_sec, fare
		FROM trips WHERE id = $1
	`, id)
}

func (r *TripRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Trip, error) {
	return r.scanOne(ctx, `
		SELECT id, ride_id, driver_id, status, start_at, end_at, paused_at, total_paused_sec, distance_km, duration_sec, fare
		FROM trips WHERE id = $1 FOR UPDATE
	`, id)
}

func (r *TripRepository) GetByRideID(ctx context.Context, rideID string) (*domain.Trip, error) {
	return r.scanOne(ctx, `
		SELECT id, ride_id, driver_id, status, start_at, end_at, paused_at, total_paused_sec, distance_km, duration_sec, fare
		FROM trips WHERE ride_id = $1
	`, rideID)
}

func (r *TripRepository) scanOne(ctx context.Context, query string, args ...any) (*domain.Trip, error) {
	var t domain.Trip
	var endAt, pausedAt sql.NullTime
	var totalPausedSec int64

	err := r.q.QueryRowContext(ctx, query, args...).Scan(
		&t.ID, &t.RideID, &t.DriverID, &t.Status, &t.StartAt, &endAt, &pausedAt,
		&totalPausedSec, &t.DistanceKm, &t.DurationSec, &t.Fare,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if endAt.Valid {
		t.EndAt = endAt.Time
	}
	if pausedAt.Valid {
		t.PausedAt = pausedAt.Time
	}
	t.TotalPaused = time.Duration(totalPausedSec) * time.Second
	return &t, nil
}

func (r *TripRepository) Update(ctx context.Context, trip *domain.Trip) error {
	query := `
		UPDATE trips
		SET status = $1, end_at = $2, paused_at = $3, total_paused_sec = $4,
			distance_km = $5, duration_sec = $6, fare = $7
		WHERE id = $8
	`
	var endAt, pausedAt sql.NullTime
	if !trip.EndAt.IsZero() {
		endAt = sql.NullTime{Time: trip.EndAt, Valid: true}
	}
	if !trip.PausedAt.IsZero() {
		pausedAt = sql.NullTime{Time: trip.PausedAt, Valid: true}
	}

	result, err := r.q.ExecContext(ctx, query,
		trip.Status, endAt, pausedAt, int64(trip.TotalPaused.Seconds()),
		trip.DistanceKm, trip.DurationSec, trip.Fare, trip.ID,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return store.ErrNotFound
	}
	return nil
}
