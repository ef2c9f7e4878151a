package domain

import "time"

// IdempotencyKey caches the response produced by the first create_ride
// call for a given client-supplied key. Response is NULL until the
// claiming caller completes its work.
type IdempotencyKey struct {
	Key        string
	Response   []byte
	CreatedAt  time.Time
}
