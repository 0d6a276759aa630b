package consumer

import (
	"encoding/json"
	"fmt"

	"ride-backend/pkg/logger"
	"ride-backend/pkg/rabbitmq"
	"ride-backend/pkg/websocket"

	amqp "github.com/rabbitmq/amqp091-go"
)

// statusMessage mirrors the payload the publisher emits on ride.status.*.
type statusMessage struct {
	RideID          string  `json:"ride_id"`
	ClientID        string  `json:"client_id"`
	DriverProfileID *string `json:"driver_profile_id"`
	Status          string  `json:"status"`
	Reason          *string `json:"reason"`
	ChangedAt       string  `json:"changed_at"`
}

// StatusConsumer bridges committed status-change events to the websocket hub.
// It is strictly read-side: it forwards post-transition state and never calls
// back into the lifecycle engine.
type StatusConsumer struct {
	rabbit *rabbitmq.Connection
	hub    *websocket.Hub
	log    logger.Logger
}

func New(rabbit *rabbitmq.Connection, hub *websocket.Hub, log logger.Logger) *StatusConsumer {
	return &StatusConsumer{rabbit: rabbit, hub: hub, log: log}
}

// Start begins consuming the ride status queue.
func (c *StatusConsumer) Start() error {
	return c.rabbit.Consume(rabbitmq.QueueRideStatus, c.handleStatus)
}

func (c *StatusConsumer) handleStatus(msg amqp.Delivery) {
	var event statusMessage
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		c.log.Error("status_message_malformed", fmt.Errorf("unmarshal status message: %w", err))
		msg.Nack(false, false) // unparseable, do not requeue
		return
	}

	log := c.log.WithFields(logger.LogFields{"ride_id": event.RideID})

	notification := map[string]interface{}{
		"type":              "ride_status_changed",
		"ride_id":           event.RideID,
		"status":            event.Status,
		"driver_profile_id": event.DriverProfileID,
		"reason":            event.Reason,
		"changed_at":        event.ChangedAt,
	}

	// The client always hears about their ride; room members (driver,
	// dispatchers) get the same payload.
	if err := c.hub.SendToUser(event.ClientID, notification); err != nil {
		log.Error("notify_client_failed", err)
	}
	if err := c.hub.SendToRide(event.RideID, notification); err != nil {
		log.Error("notify_ride_room_failed", err)
	}

	msg.Ack(false)
}
