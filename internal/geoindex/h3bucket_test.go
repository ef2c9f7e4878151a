package geoindex

import (
	"testing"
	"time"

	"ridecore/internal/domain"
)

func TestH3Bucketer_StaleAfterMaxAge(t *testing.T) {
	b := newH3Bucketer()
	base := time.Unix(1_700_000_000, 0)
	b.track("d1", domain.Point{Lat: 12.97, Lon: 77.59}, base)

	if got := b.stale(base.Add(1*time.Second), MaxPositionAge); len(got) != 0 {
		t.Fatalf("expected no stale drivers yet, got %v", got)
	}

	stale := b.stale(base.Add(MaxPositionAge+time.Second), MaxPositionAge)
	if len(stale) != 1 || stale[0] != "d1" {
		t.Fatalf("expected [d1] stale, got %v", stale)
	}

	// A driver reported stale once is removed from tracking.
	if got := b.stale(base.Add(10*MaxPositionAge), MaxPositionAge); len(got) != 0 {
		t.Fatalf("expected driver removed after first stale report, got %v", got)
	}
}

func TestH3Bucketer_ForgetRemovesDriver(t *testing.T) {
	b := newH3Bucketer()
	base := time.Unix(1_700_000_000, 0)
	b.track("d1", domain.Point{Lat: 12.97, Lon: 77.59}, base)
	b.forget("d1")

	if got := b.stale(base.Add(10*MaxPositionAge), MaxPositionAge); len(got) != 0 {
		t.Fatalf("expected no tracked drivers after forget, got %v", got)
	}
}
