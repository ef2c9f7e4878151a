package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// IdempotencyRepository is a PostgreSQL implementation of
// store.IdempotencyStore, backed by a unique index on idempotency_keys.key.
// response is nullable: a claimed-but-not-yet-completed key has a row with
// a NULL response.
type IdempotencyRepository struct {
	db *sql.DB
}

func NewIdempotencyRepository(db *sql.DB) *IdempotencyRepository {
	return &IdempotencyRepository{db: db}
}

// Claim races concurrent callers against the unique index: the
// INSERT ... ON CONFLICT DO NOTHING either lands the placeholder row (this
// caller wins) or is silently dropped (another caller already claimed it).
func (r *IdempotencyRepository) Claim(ctx context.Context, key string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO idempotency_keys (key, response, created_at)
		VALUES ($1, NULL, now())
		ON CONFLICT (key) DO NOTHING
	`, key)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *IdempotencyRepository) Complete(ctx context.Context, key string, response []byte) error {
	_, err := r.db.ExecContext(ctx, `UPDATE idempotency_keys SET response = $1 WHERE key = $2`, string(response), key)
	return err
}

const (
	waitPollInterval = 20 * time.Millisecond
	waitMaxAttempts  = 100
)

// WaitForResponse polls for the winner's response. This is a simplification
// of the linearizable wait a production system would implement with
// LISTEN/NOTIFY or an advisory lock: the claim race itself is still
// strictly linearizable (the unique index), only the loser's wait is
// polling.
func (r *IdempotencyRepository) WaitForResponse(ctx context.Context, key string) ([]byte, error) {
	for attempt := 0; attempt < waitMaxAttempts; attempt++ {
		var response sql.NullString
		err := r.db.QueryRowContext(ctx, `SELECT response FROM idempotency_keys WHERE key = $1`, key).Scan(&response)
		if err != nil {
			return nil, err
		}
		if response.Valid {
			return []byte(response.String), nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(waitPollInterval):
		}
	}
	return nil, errors.New("idempotency: timed out waiting for response")
}
