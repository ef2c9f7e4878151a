// Package matcher implements nearest-driver search over the live GeoIndex,
// re-verifying every candidate's position before trusting it.
package matcher

import (
	"context"
	"sort"
	"time"

	"ridecore/internal/domain"
	"ridecore/internal/geo"
	"ridecore/internal/geoindex"
)

const candidateLimit = 50

// Matcher finds the nearest eligible driver for a pickup location.
type Matcher struct {
	index geoindex.GeoIndex
	now   func() time.Time
}

// New builds a Matcher over index. Pass nil for now to default to
// time.Now.
func New(index geoindex.GeoIndex, now func() time.Time) *Matcher {
	if now == nil {
		now = time.Now
	}
	return &Matcher{index: index, now: now}
}

// FindNearest returns the driver ID of the nearest verified driver within
// maxKm of pickup, or ok=false if none qualifies.
func (m *Matcher) FindNearest(ctx context.Context, pickup domain.Point, maxKm float64) (driverID string, ok bool, err error) {
	now := m.now()

	candidates, degraded, err := m.index.Radius(ctx, pickup, maxKm, candidateLimit)
	if err != nil {
		return "", false, err
	}
	if degraded {
		return "", false, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].ApproxKm != candidates[j].ApproxKm {
			return candidates[i].ApproxKm < candidates[j].ApproxKm
		}
		return candidates[i].DriverID < candidates[j].DriverID
	})

	for _, c := range candidates {
		pos, fresh, err := m.index.Get(ctx, c.DriverID, now)
		if err != nil {
			return "", false, err
		}
		if !fresh {
			continue
		}

		dist := geo.Haversine(pickup, pos)
		if dist <= maxKm {
			return c.DriverID, true, nil
		}
	}

	return "", false, nil
}
