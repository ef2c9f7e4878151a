package postgres

import (
	"context"
	"database/sql"
	"errors"

	"ridecore/internal/domain"
	"ridecore/internal/store"
)

// AssignmentRepository is a PostgreSQL implementation of store.AssignmentStore.
type AssignmentRepository struct {
	q Querier
}

func NewAssignmentRepository(db *sql.DB) *AssignmentRepository {
	return &AssignmentRepository{q: db}
}

func NewAssignmentRepositoryWithTx(tx *sql.Tx) *AssignmentRepository {
	return &AssignmentRepository{q: tx}
}

func (r *AssignmentRepository) Create(ctx context.Context, a *domain.Assignment) error {
	query := `
		INSERT INTO assignments (id, ride_id, driver_id, status, offered_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.q.ExecContext(ctx, query, a.ID, a.RideID, a.DriverID, a.Status, a.OfferedAt)
	return err
}

func (r *AssignmentRepository) GetByID(ctx context.Context, id string) (*domain.Assignment, error) {
	return r.scanOne(ctx, `
		SELECT id, ride_id, driver_id, status, offered_at FROM assignments WHERE id = $1
	`, id)
}

// GetByIDForUpdate locks the row for the duration of the caller's
// transaction. Accept and Expire both call this before deciding whether to
// transition the row, so only one of them can observe status = Offered.
func (r *AssignmentRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Assignment, error) {
	return r.scanOne(ctx, `
		SELECT id, ride_id, driver_id, status, offered_at FROM assignments WHERE id = $1 FOR UPDATE
	`, id)
}

func (r *AssignmentRepository) GetOfferedForRide(ctx context.Context, rideID string) (*domain.Assignment, error) {
	return r.scanOne(ctx, `
		SELECT id, ride_id, driver_id, status, offered_at FROM assignments
		WHERE ride_id = $1 AND status = 'OFFERED'
		ORDER BY offered_at DESC LIMIT 1
	`, rideID)
}

// GetLatestForRide returns the most recently offered assignment for a
// ride regardless of status, for read paths like GET /v1/rides/{id} that
// want to surface the current or most recent offer.
func (r *AssignmentRepository) GetLatestForRide(ctx context.Context, rideID string) (*domain.Assignment, error) {
	return r.scanOne(ctx, `
		SELECT id, ride_id, driver_id, status, offered_at FROM assignments
		WHERE ride_id = $1
		ORDER BY offered_at DESC LIMIT 1
	`, rideID)
}

func (r *AssignmentRepository) scanOne(ctx context.Context, query string, args ...any) (*domain.Assignment, error) {
	var a domain.Assignment
	err := r.q.QueryRowContext(ctx, query, args...).Scan(&a.ID, &a.RideID, &a.DriverID, &a.Status, &a.OfferedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *AssignmentRepository) TransitionStatus(ctx context.Context, id string, fromStatus, toStatus domain.AssignmentStatus) error {
	result, err := r.q.ExecContext(ctx, `
		UPDATE assignments SET status = $1 WHERE id = $2 AND status = $3
	`, toStatus, id, fromStatus)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return store.ErrConflict
	}
	return nil
}
