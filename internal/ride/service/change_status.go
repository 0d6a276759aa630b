package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ride-backend/internal/ride/domain"
	"ride-backend/pkg/logger"
)

// ChangeStatusCommand represents one requested transition.
type ChangeStatusCommand struct {
	RideID    string
	Target    domain.Status
	ActorID   string
	ActorRole domain.ActorRole
	Reason    *string
	Meta      json.RawMessage
}

// ChangeStatusUseCase is the lifecycle engine: it validates a transition
// against the policy, hands the conditional update to the store, and reports
// a definitive result. It is the only component that writes ride status.
type ChangeStatusUseCase struct {
	rideRepo       domain.RideRepository
	eventPublisher EventPublisher
	logger         logger.Logger
}

// NewChangeStatusUseCase creates the lifecycle engine.
func NewChangeStatusUseCase(
	rideRepo domain.RideRepository,
	eventPublisher EventPublisher,
	logger logger.Logger,
) *ChangeStatusUseCase {
	return &ChangeStatusUseCase{
		rideRepo:       rideRepo,
		eventPublisher: eventPublisher,
		logger:         logger,
	}
}

// Execute runs exactly one transition attempt. It never retries: losing a
// race surfaces as ErrTransitionRejected and the retry decision belongs to
// the caller.
func (uc *ChangeStatusUseCase) Execute(ctx context.Context, cmd ChangeStatusCommand) (*domain.Ride, error) {
	log := uc.logger.WithFields(logger.LogFields{
		"ride_id":    cmd.RideID,
		"target":     cmd.Target.String(),
		"actor_role": cmd.ActorRole.String(),
	})

	// Target outside the fixed status set is rejected before any store access.
	if !cmd.Target.IsValid() {
		log.Debug("transition_invalid_status", "Unknown target status")
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, cmd.Target)
	}

	// Reverse policy query: which current statuses let this role reach the
	// target. Empty means structurally impossible, again without storage.
	allowedFrom := domain.AllowedFrom(cmd.ActorRole, cmd.Target)
	if len(allowedFrom) == 0 {
		log.Debug("transition_role_not_permitted", "No current status permits this transition")
		return nil, fmt.Errorf("%w: role %s cannot reach %s", domain.ErrRoleNotPermitted, cmd.ActorRole, cmd.Target)
	}

	ride, err := uc.rideRepo.Transition(ctx, domain.TransitionRequest{
		RideID:      cmd.RideID,
		Target:      cmd.Target,
		AllowedFrom: allowedFrom,
		ActorID:     cmd.ActorID,
		ActorRole:   cmd.ActorRole,
		Reason:      cmd.Reason,
		Meta:        cmd.Meta,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRideNotFound):
			log.Debug("transition_ride_not_found", "Ride does not exist")
		case errors.Is(err, domain.ErrTransitionRejected):
			log.Info("transition_rejected", "Ride is not in an eligible status")
		case errors.Is(err, domain.ErrLockTimeout):
			log.Info("transition_lock_timeout", "Ride row contended, caller may retry")
		default:
			log.Error("transition_failed", err)
		}
		return nil, err
	}

	log.Info("transition_applied", fmt.Sprintf("Ride moved to %s", ride.Status))

	if uc.eventPublisher != nil {
		event := domain.RideStatusChangedEvent{
			RideID:          ride.ID,
			ClientID:        ride.ClientID,
			DriverProfileID: ride.DriverProfileID,
			NewStatus:       ride.Status,
			ActorID:         cmd.ActorID,
			ActorRole:       cmd.ActorRole,
			Reason:          cmd.Reason,
			ChangedAt:       ride.UpdatedAt,
		}
		// The transition is already committed; a publish failure is logged
		// and the updated ride still returns to the caller.
		if err := uc.eventPublisher.Publish(ctx, event); err != nil {
			log.Error("publish_status_event_failed", err)
		}
	}

	return ride, nil
}
