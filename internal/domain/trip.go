package domain

import "time"

// TripStatus represents the current status of a trip.
type TripStatus string

const (
	TripStatusOngoing   TripStatus = "ONGOING"
	TripStatusPaused    TripStatus = "PAUSED"
	TripStatusCompleted TripStatus = "COMPLETED"
)

// Trip represents an active or completed trip.
type Trip struct {
	ID          string
	RideID      string
	DriverID    string
	Status      TripStatus
	StartAt     time.Time
	EndAt       time.Time
	PausedAt    time.Time
	TotalPaused time.Duration
	DistanceKm  float64
	DurationSec int64
	Fare        float64
}
