package domain

import "time"

// AssignmentStatus represents the current status of an assignment offer.
type AssignmentStatus string

const (
	AssignmentStatusOffered  AssignmentStatus = "OFFERED"
	AssignmentStatusAccepted AssignmentStatus = "ACCEPTED"
	AssignmentStatusDeclined AssignmentStatus = "DECLINED"
	AssignmentStatusExpired  AssignmentStatus = "EXPIRED"
)

// Assignment is a time-bounded offer of a ride to a driver.
type Assignment struct {
	ID         string
	RideID     string
	DriverID   string
	Status     AssignmentStatus
	OfferedAt  time.Time
}
