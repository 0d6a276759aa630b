package service

import (
	"context"
	"sync"
	"time"

	"ride-backend/internal/ride/domain"
)

// memoryRideRepo implements domain.RideRepository in memory with the same
// conditional contract as the Postgres store: the status check and the write
// happen under one lock, and a history entry is appended only when the
// conditional update matched.
type memoryRideRepo struct {
	mu      sync.Mutex
	rides   map[string]*domain.Ride
	history map[string][]*domain.StatusHistoryEntry

	transitionCalls int
	writes          int
}

func newMemoryRideRepo() *memoryRideRepo {
	return &memoryRideRepo{
		rides:   make(map[string]*domain.Ride),
		history: make(map[string][]*domain.StatusHistoryEntry),
	}
}

func (m *memoryRideRepo) Create(ctx context.Context, ride *domain.Ride) (*domain.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	stored := *ride
	stored.Status = domain.StatusRequested
	stored.CreatedAt = now
	stored.UpdatedAt = now
	m.rides[stored.ID] = &stored
	m.writes++

	m.history[stored.ID] = append(m.history[stored.ID], &domain.StatusHistoryEntry{
		ID:        int64(len(m.history[stored.ID]) + 1),
		RideID:    stored.ID,
		ToStatus:  domain.StatusRequested,
		ChangedBy: stored.ClientID,
		ActorRole: domain.RoleClient,
		CreatedAt: now,
	})
	m.writes++

	out := stored
	return &out, nil
}

func (m *memoryRideRepo) FindByID(ctx context.Context, rideID string) (*domain.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ride, ok := m.rides[rideID]
	if !ok {
		return nil, domain.ErrRideNotFound
	}
	out := *ride
	return &out, nil
}

func (m *memoryRideRepo) Transition(ctx context.Context, req domain.TransitionRequest) (*domain.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitionCalls++

	ride, ok := m.rides[req.RideID]
	if !ok {
		return nil, domain.ErrRideNotFound
	}

	allowed := false
	for _, s := range req.AllowedFrom {
		if ride.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, domain.ErrTransitionRejected
	}

	from := ride.Status
	now := time.Now().UTC()
	ride.Status = req.Target
	ride.StatusReason = req.Reason
	ride.UpdatedAt = now
	switch req.Target {
	case domain.StatusStarted:
		if ride.StartedAt == nil {
			ride.StartedAt = &now
		}
	case domain.StatusCompleted:
		if ride.CompletedAt == nil {
			ride.CompletedAt = &now
		}
	case domain.StatusCanceled:
		if ride.CanceledAt == nil {
			ride.CanceledAt = &now
		}
		ride.CancellationReason = req.Reason
	}
	m.writes++

	m.history[req.RideID] = append(m.history[req.RideID], &domain.StatusHistoryEntry{
		ID:         int64(len(m.history[req.RideID]) + 1),
		RideID:     req.RideID,
		FromStatus: &from,
		ToStatus:   req.Target,
		ChangedBy:  req.ActorID,
		ActorRole:  req.ActorRole,
		Reason:     req.Reason,
		Meta:       req.Meta,
		CreatedAt:  now,
	})
	m.writes++

	out := *ride
	return &out, nil
}

func (m *memoryRideRepo) History(ctx context.Context, rideID string) ([]*domain.StatusHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.history[rideID]
	out := make([]*domain.StatusHistoryEntry, len(entries))
	for i, e := range entries {
		copied := *e
		out[i] = &copied
	}
	return out, nil
}

func (m *memoryRideRepo) UpdateTripDetails(ctx context.Context, rideID string, upd domain.TripDetailsUpdate) (*domain.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ride, ok := m.rides[rideID]
	if !ok {
		return nil, domain.ErrRideNotFound
	}
	if upd.DriverProfileID != nil {
		ride.DriverProfileID = upd.DriverProfileID
	}
	if upd.DriverFare != nil {
		ride.DriverFare = upd.DriverFare
	}
	if upd.ActualFare != nil {
		ride.ActualFare = upd.ActualFare
	}
	if upd.DistanceMeters != nil {
		ride.DistanceMeters = upd.DistanceMeters
	}
	if upd.DurationSeconds != nil {
		ride.DurationSeconds = upd.DurationSeconds
	}
	if upd.IsAnomaly != nil {
		ride.IsAnomaly = *upd.IsAnomaly
	}
	if upd.AnomalyReason != nil {
		ride.AnomalyReason = upd.AnomalyReason
	}
	if upd.Metadata != nil {
		ride.Metadata = upd.Metadata
	}
	ride.UpdatedAt = time.Now().UTC()
	m.writes++

	out := *ride
	return &out, nil
}

func (m *memoryRideRepo) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *memoryRideRepo) transitionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transitionCalls
}

// capturingPublisher records published events.
type capturingPublisher struct {
	mu     sync.Mutex
	events []domain.DomainEvent
}

func (p *capturingPublisher) Publish(ctx context.Context, event domain.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) published() []domain.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.DomainEvent, len(p.events))
	copy(out, p.events)
	return out
}
