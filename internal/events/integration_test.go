//go:build integration

package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/felixgeelhaar/gptutor/internal/events"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
)

func setupRabbitMQ(t *testing.T) (string, func()) {
	ctx := context.Background()

	container, err := rabbitmq.Run(ctx, "rabbitmq:3.12-management")
	if err != nil {
		t.Fatalf("failed to start RabbitMQ container: %v", err)
	}

	amqpURL, err := container.AmqpURL(ctx)
	if err != nil {
		testcontainers.TerminateContainer(container)
		t.Fatalf("failed to get AMQP URL: %v", err)
	}

	cleanup := func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}
	return amqpURL, cleanup
}

func TestIntegration_Connection_ConnectAndClose(t *testing.T) {
	amqpURL, cleanup := setupRabbitMQ(t)
	defer cleanup()

	conn, err := events.NewConnection(amqpURL)
	if err != nil {
		t.Fatalf("failed to create connection: %v", err)
	}
	if !conn.IsConnected() {
		t.Error("expected connection to be active")
	}
	if err := conn.Close(); err != nil {
		t.Errorf("failed to close connection: %v", err)
	}
}

func TestIntegration_Connection_InvalidURL(t *testing.T) {
	if _, err := events.NewConnection("amqp://invalid:5672"); err == nil {
		t.Error("expected error for invalid URL")
	}
}

func TestIntegration_Publisher_ExerciseStarted(t *testing.T) {
	amqpURL, cleanup := setupRabbitMQ(t)
	defer cleanup()

	conn, err := events.NewConnection(amqpURL)
	if err != nil {
		t.Fatalf("failed to create connection: %v", err)
	}
	defer conn.Close()

	evt := events.ExerciseStarted{
		ExerciseID: uuid.New(),
		UserID:     uuid.New(),
		Level:      "Beginner",
		Topic:      "Go",
		Duration:   "10 minutes",
		Title:      "Reverse a string",
		StartedAt:  time.Now().UTC().Truncate(time.Second),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := events.NewAMQPPublisher(conn).PublishExerciseStarted(ctx, evt); err != nil {
		t.Fatalf("PublishExerciseStarted() error = %v", err)
	}

	// Read it back on a separate connection.
	reader, err := amqp.Dial(amqpURL)
	if err != nil {
		t.Fatalf("dial reader: %v", err)
	}
	defer reader.Close()
	ch, err := reader.Channel()
	if err != nil {
		t.Fatalf("open reader channel: %v", err)
	}
	defer ch.Close()

	var msg amqp.Delivery
	var ok bool
	for deadline := time.Now().Add(5 * time.Second); time.Now().Before(deadline); {
		msg, ok, err = ch.Get(events.ExerciseQueueName, true)
		if err != nil {
			t.Fatalf("get message: %v", err)
		}
		if ok {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if !ok {
		t.Fatal("no message received")
	}

	if msg.Type != events.TypeExerciseStarted {
		t.Errorf("message type = %q; want %q", msg.Type, events.TypeExerciseStarted)
	}
	if msg.ContentType != "application/json" {
		t.Errorf("content type = %q", msg.ContentType)
	}

	var got events.ExerciseStarted
	if err := json.Unmarshal(msg.Body, &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got.ExerciseID != evt.ExerciseID || got.Title != evt.Title || !got.StartedAt.Equal(evt.StartedAt) {
		t.Errorf("event = %+v; want %+v", got, evt)
	}
}
