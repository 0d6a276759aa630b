package domain

import (
	"encoding/json"
	"errors"
	"time"
)

// Domain errors
var (
	ErrValidation         = errors.New("invalid ride input")
	ErrInvalidStatus      = errors.New("invalid ride status")
	ErrRoleNotPermitted   = errors.New("role is not permitted to perform this transition")
	ErrRideNotFound       = errors.New("ride not found")
	ErrTransitionRejected = errors.New("ride is not in an eligible status for this transition")
	ErrLockTimeout        = errors.New("ride row is locked, try again")
)

// Status represents the state of a ride
type Status string

const (
	StatusRequested      Status = "requested"
	StatusDriverAssigned Status = "driver_assigned"
	StatusAccepted       Status = "accepted"
	StatusArrived        Status = "arrived"
	StatusStarted        Status = "started"
	StatusCompleted      Status = "completed"
	StatusCanceled       Status = "canceled"
)

// String returns string representation of status
func (s Status) String() string {
	return string(s)
}

// IsValid checks if status is a member of the fixed status set
func (s Status) IsValid() bool {
	switch s {
	case StatusRequested, StatusDriverAssigned, StatusAccepted, StatusArrived,
		StatusStarted, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

// IsTerminal reports whether the status has no outgoing transitions
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// ActorRole identifies who requests a transition
type ActorRole string

const (
	RoleClient ActorRole = "client"
	RoleDriver ActorRole = "driver"
	RoleSystem ActorRole = "system"
)

// String returns string representation of the role
func (r ActorRole) String() string {
	return string(r)
}

// IsValid checks if the role is one of the known actor roles
func (r ActorRole) IsValid() bool {
	switch r {
	case RoleClient, RoleDriver, RoleSystem:
		return true
	}
	return false
}

// Ride is the core entity: one trip request tracked through the status lifecycle.
// Status is only ever written by the lifecycle engine; every other field may be
// read freely and the trip-detail fields updated through UpdateTripDetails.
type Ride struct {
	ID                  string          `json:"id"`
	ClientID            string          `json:"client_id"`
	DriverProfileID     *string         `json:"driver_profile_id,omitempty"`
	Status              Status          `json:"status"`
	StatusReason        *string         `json:"status_reason,omitempty"`
	ScheduledAt         *time.Time      `json:"scheduled_at,omitempty"`
	StartedAt           *time.Time      `json:"started_at,omitempty"`
	CompletedAt         *time.Time      `json:"completed_at,omitempty"`
	CanceledAt          *time.Time      `json:"canceled_at,omitempty"`
	CancellationReason  *string         `json:"cancellation_reason,omitempty"`
	PickupAddress       string          `json:"pickup_address"`
	PickupLat           float64         `json:"pickup_lat"`
	PickupLng           float64         `json:"pickup_lng"`
	DropoffAddress      string          `json:"dropoff_address"`
	DropoffLat          float64         `json:"dropoff_lat"`
	DropoffLng          float64         `json:"dropoff_lng"`
	ExpectedFare        float64         `json:"expected_fare"`
	ExpectedFareDetails json.RawMessage `json:"expected_fare_snapshot,omitempty"`
	DriverFare          *float64        `json:"driver_fare,omitempty"`
	ActualFare          *float64        `json:"actual_fare,omitempty"`
	DistanceMeters      *int64          `json:"distance_meters,omitempty"`
	DurationSeconds     *int64          `json:"duration_seconds,omitempty"`
	IsAnomaly           bool            `json:"is_anomaly"`
	AnomalyReason       *string         `json:"anomaly_reason,omitempty"`
	Metadata            json.RawMessage `json:"metadata,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// IsActive checks if the ride is still in a non-terminal status
func (r *Ride) IsActive() bool {
	return !r.Status.IsTerminal()
}

// HasDriver checks if a driver profile is attached
func (r *Ride) HasDriver() bool {
	return r.DriverProfileID != nil
}

// ValidateCoordinates checks latitude/longitude bounds
func ValidateCoordinates(lat, lng float64) error {
	if lat < -90 || lat > 90 {
		return ErrValidation
	}
	if lng < -180 || lng > 180 {
		return ErrValidation
	}
	return nil
}
