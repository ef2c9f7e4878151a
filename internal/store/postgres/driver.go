package postgres

import (
	"context"
	"database/sql"
	"errors"

	"ridecore/internal/domain"
	"ridecore/internal/store"
)

// DriverRepository is a PostgreSQL implementation of store.DriverStore.
// Drivers are registered implicitly: Upsert is called on first location
// report, there is no delete operation.
type DriverRepository struct {
	q Querier
}

func NewDriverRepository(db *sql.DB) *DriverRepository {
	return &DriverRepository{q: db}
}

func NewDriverRepositoryWithTx(tx *sql.Tx) *DriverRepository {
	return &DriverRepository{q: tx}
}

func (r *DriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	query := `SELECT id, COALESCE(name, ''), tier, available FROM drivers WHERE id = $1`

	var driver domain.Driver
	err := r.q.QueryRowContext(ctx, query, id).Scan(&driver.ID, &driver.Name, &driver.Tier, &driver.Available)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &driver, nil
}

func (r *DriverRepository) Upsert(ctx context.Context, driver *domain.Driver) error {
	query := `
		INSERT INTO drivers (id, name, tier, available)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET available = EXCLUDED.available
	`
	_, err := r.q.ExecContext(ctx, query, driver.ID, driver.Name, driver.Tier, driver.Available)
	return err
}
