// Package geoindex implements the live driver-position registry described
// in the matching pipeline: upsert/get/radius/evict/sweep over a set of
// driver coordinates, with Haversine as the canonical distance metric.
package geoindex

import (
	"context"
	"errors"
	"time"

	"ridecore/internal/domain"
)

// MaxPositionAge is the default freshness window for a driver position.
const MaxPositionAge = 300 * time.Second

// ErrBackendUnavailable is returned by Upsert when the backing store
// cannot be reached.
var ErrBackendUnavailable = errors.New("geoindex: backend unavailable")

// ErrDegraded is not returned to callers as an error value from Radius —
// Radius degrades silently to an empty slice — but is exposed so callers
// that want to distinguish "no candidates" from "backend down" can check
// the boolean return instead of inspecting an error.
var ErrDegraded = errors.New("geoindex: degraded")

// Candidate is a driver returned by a Radius query, carrying the
// approximate distance computed at query time. Callers MUST re-verify the
// distance against a fresh Get() before relying on it (§4.3).
type Candidate struct {
	DriverID    string
	ApproxKm    float64
}

// GeoIndex is the live registry of driver positions.
type GeoIndex interface {
	// Upsert records a driver's position, timestamped now, and (re)arms
	// the freshness TTL.
	Upsert(ctx context.Context, driverID string, p domain.Point, now time.Time) error

	// Get returns the driver's position if it is fresh as of now, or
	// ok=false if absent or stale. A stale entry is removed as a side
	// effect.
	Get(ctx context.Context, driverID string, now time.Time) (pos domain.Point, ok bool, err error)

	// Radius returns up to limit candidates within radiusKm of center,
	// ordered by increasing approximate distance. On backend failure it
	// returns an empty slice and degraded=true rather than an error.
	Radius(ctx context.Context, center domain.Point, radiusKm float64, limit int) (candidates []Candidate, degraded bool, err error)

	// Evict unconditionally removes a driver's position.
	Evict(ctx context.Context, driverID string) error

	// Sweep removes entries older than MaxPositionAge. Safe to call
	// periodically; it is a secondary-index GC, not the source of
	// freshness truth (Get's own age check enforces that; no Redis key
	// expiry is set).
	Sweep(ctx context.Context, now time.Time) (evicted int, err error)
}
