package domain

import "time"

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// RideRequestedEvent is raised when a new ride is created
type RideRequestedEvent struct {
	RideID         string
	ClientID       string
	PickupAddress  string
	DropoffAddress string
	ExpectedFare   float64
	RequestedAt    time.Time
}

func (e RideRequestedEvent) EventType() string {
	return "ride.requested"
}

func (e RideRequestedEvent) OccurredAt() time.Time {
	return e.RequestedAt
}

// RideStatusChangedEvent is raised after a successful transition commits
type RideStatusChangedEvent struct {
	RideID          string
	ClientID        string
	DriverProfileID *string
	NewStatus       Status
	ActorID         string
	ActorRole       ActorRole
	Reason          *string
	ChangedAt       time.Time
}

func (e RideStatusChangedEvent) EventType() string {
	return "ride.status." + e.NewStatus.String()
}

func (e RideStatusChangedEvent) OccurredAt() time.Time {
	return e.ChangedAt
}
