package rabbitmq

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ride-backend/pkg/config"
	"ride-backend/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	maxRetries    = 10
	retryInterval = 3 * time.Second
)

// Exchange and queue names used by the ride service.
const (
	ExchangeRideTopic = "ride_topic"

	QueueRideStatus   = "ride_status"
	QueueRideRequests = "ride_requests"
)

// Connection wraps amqp.Connection with automatic reconnection.
type Connection struct {
	logger      logger.Logger
	dsn         string
	conn        *amqp.Connection
	pubChannel  *amqp.Channel // dedicated channel for publishing
	mu          sync.RWMutex  // protects conn and pubChannel during reconnects
	isConnected bool
	notifyClose chan *amqp.Error
	done        chan bool
}

func NewConnection(cfg *config.Config, log logger.Logger) (*Connection, error) {
	dsn := fmt.Sprintf("amqp://%s:%s@%s:%d/",
		cfg.RabbitMQ.User,
		cfg.RabbitMQ.Password,
		cfg.RabbitMQ.Host,
		cfg.RabbitMQ.Port,
	)
	c := &Connection{
		logger: log,
		dsn:    dsn,
		done:   make(chan bool),
	}

	var err error
	for i := 0; i < maxRetries; i++ {
		err = c.connect()
		if err != nil {
			log.Error("rabbitmq_connect_retry", fmt.Errorf("connect attempt %d/%d: %w", i+1, maxRetries, err))
			time.Sleep(retryInterval)
			continue
		}
		log.Info("rabbitmq_connect", "Initial RabbitMQ connection established")
		if setupErr := c.setupTopology(); setupErr != nil {
			c.Close()
			return nil, fmt.Errorf("failed to setup RabbitMQ topology: %w", setupErr)
		}
		go c.reconnectLoop()
		return c, nil
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d retries: %w", maxRetries, err)
}

func (c *Connection) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	c.conn, err = amqp.Dial(c.dsn)
	if err != nil {
		return fmt.Errorf("failed to dial: %w", err)
	}
	c.pubChannel, err = c.conn.Channel()
	if err != nil {
		c.conn.Close()
		return fmt.Errorf("failed to open publisher channel: %w", err)
	}

	c.isConnected = true
	c.notifyClose = make(chan *amqp.Error, 1)
	c.conn.NotifyClose(c.notifyClose)
	return nil
}

func (c *Connection) reconnectLoop() {
	for {
		select {
		case <-c.done:
			return
		case err := <-c.notifyClose:
			if err == nil {
				return // graceful close
			}
			c.logger.Error("rabbitmq_disconnect", fmt.Errorf("connection lost: %w", err))
			c.mu.Lock()
			c.isConnected = false
			c.mu.Unlock()

			backoff := time.Second
			for {
				time.Sleep(backoff)
				if err := c.connect(); err != nil {
					c.logger.Error("rabbitmq_reconnect_failed", err)
					backoff = time.Duration(float64(backoff) * 1.5)
					if backoff > 30*time.Second {
						backoff = 30 * time.Second
					}
					continue
				}
				if setupErr := c.setupTopology(); setupErr != nil {
					c.logger.Error("rabbitmq_reconnect_setup_failed", setupErr)
					continue
				}
				c.logger.Info("rabbitmq_reconnect_success", "RabbitMQ connection re-established")
				break
			}
		}
	}
}

// setupTopology declares the exchange, queues and bindings for ride events.
func (c *Connection) setupTopology() error {
	c.mu.RLock()
	if !c.isConnected {
		c.mu.RUnlock()
		return fmt.Errorf("rabbitmq is not connected")
	}
	ch, err := c.conn.Channel()
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to open setup channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(ExchangeRideTopic, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", ExchangeRideTopic, err)
	}

	bindings := []struct {
		Queue      string
		RoutingKey string
	}{
		{QueueRideRequests, "ride.requested"},
		{QueueRideStatus, "ride.status.*"},
	}
	for _, b := range bindings {
		if _, err := ch.QueueDeclare(b.Queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", b.Queue, err)
		}
		if err := ch.QueueBind(b.Queue, b.RoutingKey, ExchangeRideTopic, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s: %w", b.Queue, err)
		}
	}
	return nil
}

// Publish sends a message to the ride topic exchange. Goroutine-safe.
func (c *Connection) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.isConnected {
		return fmt.Errorf("rabbitmq is not connected")
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	}
	return c.pubChannel.PublishWithContext(ctx, exchange, routingKey, false, false, msg)
}

// Consume starts a consumer goroutine on a queue. The handler runs once per
// delivery; the consumer re-opens its channel after connection loss.
func (c *Connection) Consume(queueName string, handler func(amqp.Delivery)) error {
	log := c.logger.WithFields(logger.LogFields{"queue": queueName})
	log.Info("consumer_start", "Starting consumer goroutine")

	go func() {
		for {
			c.mu.RLock()
			if !c.isConnected {
				c.mu.RUnlock()
				select {
				case <-c.done:
					return
				case <-time.After(retryInterval):
				}
				continue
			}
			ch, err := c.conn.Channel()
			c.mu.RUnlock()
			if err != nil {
				log.Error("consumer_channel_fail", err)
				time.Sleep(retryInterval)
				continue
			}

			msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
			if err != nil {
				log.Error("consumer_consume_fail", err)
				ch.Close()
				time.Sleep(retryInterval)
				continue
			}

			notifyChanClose := ch.NotifyClose(make(chan *amqp.Error, 1))

		consumerLoop:
			for {
				select {
				case <-c.done:
					ch.Close()
					return
				case err := <-notifyChanClose:
					log.Error("consumer_channel_closed", fmt.Errorf("consumer channel closed: %v", err))
					break consumerLoop
				case msg, ok := <-msgs:
					if !ok {
						break consumerLoop
					}
					go handler(msg)
				}
			}
		}
	}()
	return nil
}

// Close shuts down the connection and the reconnect loop.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isConnected {
		return
	}
	c.isConnected = false
	close(c.done)

	if c.pubChannel != nil {
		c.pubChannel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}
