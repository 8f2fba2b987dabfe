// Package service holds adapters between the booking engine and outside
// systems.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/studyroom-reservation/internal/booking"
	"github.com/iliyamo/studyroom-reservation/internal/queue"
)

// AMQPPublisher sends booking events to the reservations queue.  Each
// publish opens its own connection; events are rare enough that pooling
// is not worth the reconnect handling.
type AMQPPublisher struct {
	URL string
}

var _ booking.EventPublisher = (*AMQPPublisher)(nil)

// toQueueEvent converts an engine event to its wire form.
func toQueueEvent(ev booking.Event) queue.ReservationEvent {
	return queue.ReservationEvent{
		Type:          ev.Type,
		ReservationID: ev.ReservationID,
		RoomID:        ev.RoomID,
		Date:          ev.Date,
		StartHour:     ev.StartHour,
		Student1ID:    ev.Student1ID,
		Student2ID:    ev.Student2ID,
		ActorID:       ev.ActorID,
		Count:         ev.Count,
		OccurredAt:    ev.OccurredAt.UTC().Format(time.RFC3339),
	}
}

// Publish implements booking.EventPublisher.  Errors are returned for the
// caller to log; the engine never blocks a request on them.  Messages are
// marked as persistent.
func (p *AMQPPublisher) Publish(ctx context.Context, ev booking.Event) error {
	body, err := json.Marshal(toQueueEvent(ev))
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal event: %w", err)
	}

	conn, err := amqp.Dial(p.URL)
	if err != nil {
		return fmt.Errorf("rabbitmq: dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq: open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queue.ReservationsQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq: declare queue: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.OccurredAt.UTC(),
		Type:         ev.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue.ReservationsQueue, false, false, pub); err != nil {
		return fmt.Errorf("rabbitmq: publish: %w", err)
	}
	return nil
}
