package service

import (
	"context"
	"encoding/json"
	"testing"

	"ride-backend/internal/ride/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRide_GenesisEntry(t *testing.T) {
	repo := newMemoryRideRepo()
	publisher := &capturingPublisher{}
	uc := NewCreateRideUseCase(repo, publisher, testLogger())

	snapshot := json.RawMessage(`{"base":5.0,"per_km":1.2}`)
	ride, err := uc.Execute(context.Background(), CreateRideCommand{
		ClientID:       "client-7",
		PickupAddress:  "1 Main St",
		PickupLat:      40.71,
		PickupLng:      -74.0,
		DropoffAddress: "99 Broadway",
		DropoffLat:     40.75,
		DropoffLng:     -73.98,
		ExpectedFare:   18.40,
		FareSnapshot:   snapshot,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, ride.ID)
	assert.Equal(t, domain.StatusRequested, ride.Status)
	assert.Nil(t, ride.StartedAt)
	assert.Nil(t, ride.CompletedAt)
	assert.Nil(t, ride.CanceledAt)
	assert.Nil(t, ride.CancellationReason)

	history, err := repo.History(context.Background(), ride.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	genesis := history[0]
	assert.True(t, genesis.IsGenesis())
	assert.Nil(t, genesis.FromStatus)
	assert.Equal(t, domain.StatusRequested, genesis.ToStatus)
	assert.Equal(t, "client-7", genesis.ChangedBy)
	assert.Equal(t, domain.RoleClient, genesis.ActorRole)

	events := publisher.published()
	require.Len(t, events, 1)
	assert.Equal(t, "ride.requested", events[0].EventType())
}

func TestCreateRide_Validation(t *testing.T) {
	valid := CreateRideCommand{
		ClientID:       "client-1",
		PickupAddress:  "1 Main St",
		PickupLat:      40.71,
		PickupLng:      -74.0,
		DropoffAddress: "99 Broadway",
		DropoffLat:     40.75,
		DropoffLng:     -73.98,
		ExpectedFare:   10,
	}

	tests := []struct {
		name   string
		mutate func(cmd *CreateRideCommand)
	}{
		{"missing client_id", func(cmd *CreateRideCommand) { cmd.ClientID = "" }},
		{"missing pickup address", func(cmd *CreateRideCommand) { cmd.PickupAddress = "" }},
		{"missing dropoff address", func(cmd *CreateRideCommand) { cmd.DropoffAddress = "" }},
		{"pickup latitude out of range", func(cmd *CreateRideCommand) { cmd.PickupLat = 91 }},
		{"dropoff longitude out of range", func(cmd *CreateRideCommand) { cmd.DropoffLng = -181 }},
		{"negative fare", func(cmd *CreateRideCommand) { cmd.ExpectedFare = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemoryRideRepo()
			uc := NewCreateRideUseCase(repo, nil, testLogger())

			cmd := valid
			tt.mutate(&cmd)

			_, err := uc.Execute(context.Background(), cmd)
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Zero(t, repo.writeCount())
		})
	}
}

func TestUpdateTripDetails_CannotTouchStatus(t *testing.T) {
	repo := newMemoryRideRepo()
	ride := newTestRide(t, repo)
	uc := NewUpdateTripDetailsUseCase(repo, testLogger())

	driverID := "driver-42"
	fare := 21.75
	updated, err := uc.Execute(context.Background(), ride.ID, domain.TripDetailsUpdate{
		DriverProfileID: &driverID,
		ActualFare:      &fare,
	})
	require.NoError(t, err)

	require.NotNil(t, updated.DriverProfileID)
	assert.Equal(t, driverID, *updated.DriverProfileID)
	require.NotNil(t, updated.ActualFare)
	assert.Equal(t, fare, *updated.ActualFare)

	// Status and history are untouched by the trip-details path.
	assert.Equal(t, domain.StatusRequested, updated.Status)
	history, err := repo.History(context.Background(), ride.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestUpdateTripDetails_NotFound(t *testing.T) {
	repo := newMemoryRideRepo()
	uc := NewUpdateTripDetailsUseCase(repo, testLogger())

	driverID := "driver-42"
	_, err := uc.Execute(context.Background(), "no-such-ride", domain.TripDetailsUpdate{
		DriverProfileID: &driverID,
	})
	assert.ErrorIs(t, err, domain.ErrRideNotFound)
}
