package geoindex

import (
	"sync"
	"time"

	"github.com/uber/h3-go/v4"

	"ridecore/internal/domain"
)

// h3Resolution matches the ~460m hexagon size used for city-scale driver
// matching.
const h3Resolution = 8

type bucketEntry struct {
	cell     h3.Cell
	updated  time.Time
}

// h3Bucketer tracks, in process memory, which H3 cell each driver last
// reported into. It exists purely so Sweep can find stale drivers without
// scanning the whole Redis hash: it keeps an independent, approximate
// timestamp per driver and reports the ones that have aged out.
//
// It is an accelerator, not a source of truth — Get() always re-checks the
// Redis-side timestamp before trusting a position.
type h3Bucketer struct {
	mu      sync.Mutex
	drivers map[string]bucketEntry
}

func newH3Bucketer() *h3Bucketer {
	return &h3Bucketer{drivers: make(map[string]bucketEntry)}
}

func (b *h3Bucketer) track(driverID string, p domain.Point, now time.Time) {
	cell := h3.LatLngToCell(h3.LatLng{Lat: p.Lat, Lng: p.Lon}, h3Resolution)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.drivers[driverID] = bucketEntry{cell: cell, updated: now}
}

func (b *h3Bucketer) forget(driverID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.drivers, driverID)
}

func (b *h3Bucketer) stale(now time.Time, maxAge time.Duration) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []string
	for driverID, entry := range b.drivers {
		if now.Sub(entry.updated) > maxAge {
			out = append(out, driverID)
			delete(b.drivers, driverID)
		}
	}
	return out
}
