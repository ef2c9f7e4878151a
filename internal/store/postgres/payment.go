package postgres

import (
	"context"
	"database/sql"
	"errors"

	"ridecore/internal/domain"
	"ridecore/internal/store"
)

// PaymentRepository is a PostgreSQL implementation of store.PaymentStore.
type PaymentRepository struct {
	q Querier
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{q: db}
}

func NewPaymentRepositoryWithTx(tx *sql.Tx) *PaymentRepository {
	return &PaymentRepository{q: tx}
}

func (r *PaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	query := `
		INSERT INTO payments (id, trip_id, amount, status, provider_response)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.q.ExecContext(ctx, query, p.ID, p.TripID, p.Amount, p.Status, p.ProviderResponse)
	return err
}

func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	var p domain.Payment
	err := r.q.QueryRowContext(ctx, `
		SELECT id, trip_id, amount, status, provider_response FROM payments WHERE id = $1
	`, id).Scan(&p.ID, &p.TripID, &p.Amount, &p.Status, &p.ProviderResponse)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetByTripID(ctx context.Context, tripID string) (*domain.Payment, error) {
	var p domain.Payment
	err := r.q.QueryRowContext(ctx, `
		SELECT id, trip_id, amount, status, provider_response FROM payments WHERE trip_id = $1
	`, tripID).Scan(&p.ID, &p.TripID, &p.Amount, &p.Status, &p.ProviderResponse)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Payment, error) {
	var p domain.Payment
	err := r.q.QueryRowContext(ctx, `
		SELECT id, trip_id, amount, status, provider_response FROM payments WHERE id = $1 FOR UPDATE
	`, id).Scan(&p.ID, &p.TripID, &p.Amount, &p.Status, &p.ProviderResponse)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus, providerResponse string) error {
	result, err := r.q.ExecContext(ctx, `
		UPDATE payments SET status = $1, provider_response = $2
		WHERE id = $3 AND (status = 'PENDING' OR status = $1)
	`, status, providerResponse, id)
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
