package domain

import (
	"context"
	"encoding/json"
	"time"
)

// TransitionRequest carries one status-change attempt into the store. The
// AllowedFrom set is computed by the transition policy; the store applies the
// change only while the ride's locked current status is a member of that set,
// and appends the matching history entry in the same atomic unit.
type TransitionRequest struct {
	RideID      string
	Target      Status
	AllowedFrom []Status
	ActorID     string
	ActorRole   ActorRole
	Reason      *string
	Meta        json.RawMessage
}

// TripDetailsUpdate is a partial update of non-status ride fields. Nil fields
// are left untouched. There is deliberately no status field here: status moves
// only through Transition.
type TripDetailsUpdate struct {
	DriverProfileID *string
	ScheduledAt     *time.Time
	DriverFare      *float64
	ActualFare      *float64
	DistanceMeters  *int64
	DurationSeconds *int64
	IsAnomaly       *bool
	AnomalyReason   *string
	Metadata        json.RawMessage
}

// IsEmpty reports whether the update carries no fields.
func (u TripDetailsUpdate) IsEmpty() bool {
	return u.DriverProfileID == nil && u.ScheduledAt == nil &&
		u.DriverFare == nil && u.ActualFare == nil &&
		u.DistanceMeters == nil && u.DurationSeconds == nil &&
		u.IsAnomaly == nil && u.AnomalyReason == nil && u.Metadata == nil
}

// RideRepository is the port for ride persistence. The implementation owns
// atomicity: Create pairs the ride insert with its genesis history entry, and
// Transition pairs the conditional status update with exactly one history
// entry, so either both writes happen or neither does.
type RideRepository interface {
	// Create persists a new ride in status requested together with its
	// genesis history entry.
	Create(ctx context.Context, ride *Ride) (*Ride, error)

	// FindByID retrieves a ride by its ID. Returns ErrRideNotFound if absent.
	FindByID(ctx context.Context, rideID string) (*Ride, error)

	// Transition applies one conditional status change. Returns the updated
	// ride, or ErrRideNotFound / ErrTransitionRejected / ErrLockTimeout.
	Transition(ctx context.Context, req TransitionRequest) (*Ride, error)

	// History returns all status history entries for a ride ordered by
	// creation time, genesis first.
	History(ctx context.Context, rideID string) ([]*StatusHistoryEntry, error)

	// UpdateTripDetails applies a partial non-status update and returns the
	// updated ride. Returns ErrRideNotFound if absent.
	UpdateTripDetails(ctx context.Context, rideID string, upd TripDetailsUpdate) (*Ride, error)
}
