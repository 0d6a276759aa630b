package service

import (
	"context"
	"encoding/json"
	"fmt"

	"ride-backend/internal/ride/domain"
	"ride-backend/pkg/logger"
	"ride-backend/pkg/uuid"
)

// EventPublisher is the interface for publishing domain events
type EventPublisher interface {
	Publish(ctx context.Context, event domain.DomainEvent) error
}

// CreateRideCommand represents the input for creating a ride
type CreateRideCommand struct {
	ClientID       string
	PickupAddress  string
	PickupLat      float64
	PickupLng      float64
	DropoffAddress string
	DropoffLat     float64
	DropoffLng     float64
	ExpectedFare   float64
	FareSnapshot   json.RawMessage
	Metadata       json.RawMessage
}

// CreateRideUseCase constructs a new ride in status requested together with
// its genesis history entry.
type CreateRideUseCase struct {
	rideRepo       domain.RideRepository
	eventPublisher EventPublisher
	logger         logger.Logger
}

// NewCreateRideUseCase creates a new use case instance
func NewCreateRideUseCase(
	rideRepo domain.RideRepository,
	eventPublisher EventPublisher,
	logger logger.Logger,
) *CreateRideUseCase {
	return &CreateRideUseCase{
		rideRepo:       rideRepo,
		eventPublisher: eventPublisher,
		logger:         logger,
	}
}

// Execute validates the input and persists the ride. The store pairs the ride
// insert with the genesis history entry atomically.
func (uc *CreateRideUseCase) Execute(ctx context.Context, cmd CreateRideCommand) (*domain.Ride, error) {
	if err := validateCreate(cmd); err != nil {
		uc.logger.Error("create_ride_invalid", err)
		return nil, err
	}

	ride := &domain.Ride{
		ID:                  uuid.NewString(),
		ClientID:            cmd.ClientID,
		Status:              domain.StatusRequested,
		PickupAddress:       cmd.PickupAddress,
		PickupLat:           cmd.PickupLat,
		PickupLng:           cmd.PickupLng,
		DropoffAddress:      cmd.DropoffAddress,
		DropoffLat:          cmd.DropoffLat,
		DropoffLng:          cmd.DropoffLng,
		ExpectedFare:        cmd.ExpectedFare,
		ExpectedFareDetails: cmd.FareSnapshot,
		Metadata:            cmd.Metadata,
	}

	created, err := uc.rideRepo.Create(ctx, ride)
	if err != nil {
		uc.logger.Error("create_ride_failed", err)
		return nil, fmt.Errorf("failed to create ride: %w", err)
	}

	uc.logger.WithFields(logger.LogFields{
		"ride_id":   created.ID,
		"client_id": created.ClientID,
	}).Info("ride_created", "Ride created in status requested")

	if uc.eventPublisher != nil {
		event := domain.RideRequestedEvent{
			RideID:         created.ID,
			ClientID:       created.ClientID,
			PickupAddress:  created.PickupAddress,
			DropoffAddress: created.DropoffAddress,
			ExpectedFare:   created.ExpectedFare,
			RequestedAt:    created.CreatedAt,
		}
		// Ride is already persisted; publish failure must not fail creation.
		if err := uc.eventPublisher.Publish(ctx, event); err != nil {
			uc.logger.WithFields(logger.LogFields{
				"ride_id": created.ID,
			}).Error("publish_requested_event_failed", err)
		}
	}

	return created, nil
}

func validateCreate(cmd CreateRideCommand) error {
	if cmd.ClientID == "" {
		return fmt.Errorf("%w: client_id is required", domain.ErrValidation)
	}
	if cmd.PickupAddress == "" || cmd.DropoffAddress == "" {
		return fmt.Errorf("%w: pickup and dropoff addresses are required", domain.ErrValidation)
	}
	if err := domain.ValidateCoordinates(cmd.PickupLat, cmd.PickupLng); err != nil {
		return fmt.Errorf("%w: pickup coordinates out of range", domain.ErrValidation)
	}
	if err := domain.ValidateCoordinates(cmd.DropoffLat, cmd.DropoffLng); err != nil {
		return fmt.Errorf("%w: dropoff coordinates out of range", domain.ErrValidation)
	}
	if cmd.ExpectedFare < 0 {
		return fmt.Errorf("%w: expected_fare must not be negative", domain.ErrValidation)
	}
	return nil
}
