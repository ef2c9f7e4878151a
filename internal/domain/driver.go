package domain

import "time"

// Driver represents a driver known to the system. Drivers are registered
// implicitly on first location report; there is no delete operation.
type Driver struct {
	ID        string
	Name      string
	Tier      DriverTier
	Available bool
}

// DriverPosition is a driver's last reported coordinate. A position older
// than MaxPositionAge is treated as absent by GeoIndex.
type DriverPosition struct {
	DriverID  string
	Point     Point
	UpdatedAt time.Time
}
