package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ExerciseQueueName is the durable queue exercise lifecycle events are routed to.
const ExerciseQueueName = "gptutor.exercises"

// exerciseTTL bounds how long an unconsumed event waits in the queue.
const exerciseTTL = 24 * time.Hour

const maxReconnectAttempts = 10

// Connection manages a RabbitMQ connection and its single channel.
type Connection struct {
	url        string
	conn       *amqp.Connection
	channel    *amqp.Channel
	mu         sync.RWMutex
	closed     bool
	reconnects int
}

// NewConnection dials the broker and declares the exercise queue.
func NewConnection(amqpURL string) (*Connection, error) {
	c := &Connection{url: amqpURL}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Connection) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareQueues(ch); err != nil {
		ch.Close()
		conn.Close()
		return err
	}

	c.conn = conn
	c.channel = ch

	go c.handleReconnect(conn.NotifyClose(make(chan *amqp.Error, 1)))

	slog.Info("connected to RabbitMQ", "url", sanitizeURL(c.url))
	return nil
}

func declareQueues(ch *amqp.Channel) error {
	_, err := ch.QueueDeclare(
		ExerciseQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-message-ttl": int32(exerciseTTL / time.Millisecond),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to declare exercise queue: %w", err)
	}
	return nil
}

// handleReconnect waits for the connection to drop and redials with
// exponential backoff capped at 30s.
func (c *Connection) handleReconnect(notifyClose <-chan *amqp.Error) {
	err, ok := <-notifyClose
	if !ok || err == nil {
		return // normal close
	}

	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return
	}

	slog.Warn("RabbitMQ connection closed, attempting to reconnect", "error", err)

	for i := 0; i < maxReconnectAttempts; i++ {
		time.Sleep(backoff(i))

		c.mu.Lock()
		c.reconnects++
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}

		if err := c.connect(); err != nil {
			slog.Error("reconnection failed", "error", err, "attempt", i+1)
			continue
		}
		slog.Info("reconnected to RabbitMQ", "attempts", i+1)
		return
	}

	slog.Error("failed to reconnect to RabbitMQ", "attempts", maxReconnectAttempts)
}

func backoff(attempt int) time.Duration {
	d := time.Duration(1<<attempt) * time.Second
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	return d
}

// Close closes the channel and the connection. Reconnection stops.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true

	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected reports whether the underlying connection is open.
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && !c.conn.IsClosed()
}

// PublishJSON publishes data as a persistent JSON message on the default
// exchange, routed to queue.
func (c *Connection) PublishJSON(ctx context.Context, queue, messageType string, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	c.mu.RLock()
	ch := c.channel
	c.mu.RUnlock()
	if ch == nil {
		return fmt.Errorf("publish to %s: no open channel", queue)
	}

	return ch.PublishWithContext(
		ctx,
		"",    // exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Type:         messageType,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// sanitizeURL masks the password so the URL can be logged.
func sanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "<invalid url>"
	}
	return u.Redacted()
}
