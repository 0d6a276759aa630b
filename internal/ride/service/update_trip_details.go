package service

import (
	"context"

	"ride-backend/internal/ride/domain"
	"ride-backend/pkg/logger"
)

// UpdateTripDetailsUseCase applies partial updates to non-status ride fields
// (driver assignment id, fares, distance, anomaly flag). Status never moves
// through this path; the store's column list for it has no status member.
type UpdateTripDetailsUseCase struct {
	rideRepo domain.RideRepository
	logger   logger.Logger
}

func NewUpdateTripDetailsUseCase(rideRepo domain.RideRepository, logger logger.Logger) *UpdateTripDetailsUseCase {
	return &UpdateTripDetailsUseCase{rideRepo: rideRepo, logger: logger}
}

// Execute applies the update and returns the refreshed ride.
func (uc *UpdateTripDetailsUseCase) Execute(ctx context.Context, rideID string, upd domain.TripDetailsUpdate) (*domain.Ride, error) {
	ride, err := uc.rideRepo.UpdateTripDetails(ctx, rideID, upd)
	if err != nil {
		return nil, err
	}
	uc.logger.WithFields(logger.LogFields{"ride_id": rideID}).Info("trip_details_updated", "Ride trip details updated")
	return ride, nil
}
