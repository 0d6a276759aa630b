package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"ride-backend/internal/ride/domain"
	"ride-backend/pkg/logger"
	"ride-backend/pkg/rabbitmq"
)

// RabbitMQEventPublisher implements service.EventPublisher on the ride topic
// exchange.
type RabbitMQEventPublisher struct {
	rabbit *rabbitmq.Connection
	logger logger.Logger
}

func NewRabbitMQEventPublisher(rabbit *rabbitmq.Connection, logger logger.Logger) *RabbitMQEventPublisher {
	return &RabbitMQEventPublisher{
		rabbit: rabbit,
		logger: logger,
	}
}

// Publish serializes a domain event and publishes it with the event type as
// routing key (ride.requested, ride.status.<to_status>).
func (p *RabbitMQEventPublisher) Publish(ctx context.Context, event domain.DomainEvent) error {
	message := p.eventToMessage(event)
	if message == nil {
		return fmt.Errorf("unsupported event type: %s", event.EventType())
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	routingKey := event.EventType()
	if err := p.rabbit.Publish(ctx, rabbitmq.ExchangeRideTopic, routingKey, body); err != nil {
		return fmt.Errorf("publish to rabbitmq: %w", err)
	}

	p.logger.WithFields(logger.LogFields{
		"routing_key": routingKey,
	}).Debug("event_published", "Domain event published")
	return nil
}

func (p *RabbitMQEventPublisher) eventToMessage(event domain.DomainEvent) interface{} {
	switch e := event.(type) {
	case domain.RideRequestedEvent:
		return map[string]interface{}{
			"ride_id":         e.RideID,
			"client_id":       e.ClientID,
			"pickup_address":  e.PickupAddress,
			"dropoff_address": e.DropoffAddress,
			"expected_fare":   e.ExpectedFare,
			"requested_at":    e.RequestedAt,
		}

	case domain.RideStatusChangedEvent:
		return map[string]interface{}{
			"ride_id":           e.RideID,
			"client_id":         e.ClientID,
			"driver_profile_id": e.DriverProfileID,
			"status":            e.NewStatus.String(),
			"actor_id":          e.ActorID,
			"actor_role":        e.ActorRole.String(),
			"reason":            e.Reason,
			"changed_at":        e.ChangedAt,
		}

	default:
		return nil
	}
}
