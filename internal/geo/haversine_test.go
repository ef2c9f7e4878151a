package geo

import (
	"math"
	"testing"

	"ridecore/internal/domain"
)

func TestHaversine_SamePointIsZero(t *testing.T) {
	p := domain.Point{Lat: 12.9716, Lon: 77.5946}
	if d := Haversine(p, p); d != 0 {
		t.Errorf("expected 0, got %f", d)
	}
}

func TestHaversine_Symmetric(t *testing.T) {
	a := domain.Point{Lat: 12.9716, Lon: 77.5946}
	b := domain.Point{Lat: 12.975, Lon: 77.599}

	if math.Abs(Haversine(a, b)-Haversine(b, a)) > 1e-9 {
		t.Errorf("expected Haversine to be symmetric")
	}
}

func TestHaversine_KnownDistance(t *testing.T) {
	// Roughly 6.5km between these two Bangalore coordinates.
	a := domain.Point{Lat: 12.9716, Lon: 77.5946}
	b := domain.Point{Lat: 13.0100, Lon: 77.6400}

	d := Haversine(a, b)
	if d < 5.0 || d > 7.0 {
		t.Errorf("expected distance in [5,7]km, got %f", d)
	}
}
