package postgres

import (
	"context"
	"database/sql"
	"errors"

	"ridecore/internal/domain"
	"ridecore/internal/store"
)

// RideRepository is a PostgreSQL implementation of store.RideStore.
type RideRepository struct {
	q Querier
}

// NewRideRepository creates a ride repository bound to the pool.
func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{q: db}
}

// NewRideRepositoryWithTx creates a ride repository scoped to a transaction.
func NewRideRepositoryWithTx(tx *sql.Tx) *RideRepository {
	return &RideRepository{q: tx}
}

func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	query := `
		INSERT INTO rides (id, rider_id, pickup_lat, pickup_lon, destination_lat, destination_lon,
			tier, payment_method, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.q.ExecContext(ctx, query,
		ride.ID,
		ride.RiderID,
		ride.Pickup.Lat,
		ride.Pickup.Lon,
		ride.Destination.Lat,
		ride.Destination.Lon,
		ride.Tier,
		ride.PaymentMethod,
		ride.Status,
		ride.CreatedAt,
	)
	return err
}

func (r *RideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	query := `
		SELECT id, rider_id, pickup_lat, pickup_lon, destination_lat, destination_lon,
			tier, payment_method, status, cancelled_at, cancel_reason, created_at
		FROM rides WHERE id = $1
	`
	var ride domain.Ride
	var cancelledAt sql.NullTime
	var cancelReason sql.NullString

	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&ride.ID,
		&ride.RiderID,
		&ride.Pickup.Lat,
		&ride.Pickup.Lon,
		&ride.Destination.Lat,
		&ride.Destination.Lon,
		&ride.Tier,
		&ride.PaymentMethod,
		&ride.Status,
		&cancelledAt,
		&cancelReason,
		&ride.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if cancelledAt.Valid {
		ride.CancelledAt = cancelledAt.Time
	}
	if cancelReason.Valid {
		ride.CancelReason = cancelReason.String
	}
	return &ride, nil
}

func (r *RideRepository) UpdateStatus(ctx context.Context, id string, status domain.RideStatus) error {
	result, err := r.q.ExecContext(ctx, `UPDATE rides SET status = $1 WHERE id = $2`, status, id)
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
