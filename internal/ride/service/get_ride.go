package service

import (
	"context"

	"ride-backend/internal/ride/domain"
	"ride-backend/pkg/logger"
)

// GetRideUseCase serves the read surface: the ride projection and its status
// history. Consumers of this path (reporting, notifications) never write.
type GetRideUseCase struct {
	rideRepo domain.RideRepository
	logger   logger.Logger
}

func NewGetRideUseCase(rideRepo domain.RideRepository, logger logger.Logger) *GetRideUseCase {
	return &GetRideUseCase{rideRepo: rideRepo, logger: logger}
}

// ByID returns the ride or domain.ErrRideNotFound.
func (uc *GetRideUseCase) ByID(ctx context.Context, rideID string) (*domain.Ride, error) {
	return uc.rideRepo.FindByID(ctx, rideID)
}

// History returns the full status path of a ride, genesis first.
func (uc *GetRideUseCase) History(ctx context.Context, rideID string) ([]*domain.StatusHistoryEntry, error) {
	// The history endpoint 404s on unknown rides rather than returning an
	// empty list.
	if _, err := uc.rideRepo.FindByID(ctx, rideID); err != nil {
		return nil, err
	}
	return uc.rideRepo.History(ctx, rideID)
}
