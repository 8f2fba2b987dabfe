package booking

import (
	"context"
	"time"
)

// Event types published after a state change commits.
const (
	EventReservationCreated = "reservation.created"
	EventReservationDeleted = "reservation.deleted"
	EventReservationsReset  = "reservations.reset"
	EventReservationsPurged = "reservations.purged"
)

// Event describes a committed change to the reservation calendar.
// Single-reservation events fill the reservation fields; bulk events fill
// Count.
type Event struct {
	Type          string
	ReservationID uint64
	RoomID        uint64
	Date          string
	StartHour     int
	Student1ID    uint64
	Student2ID    uint64
	ActorID       *uint64
	Count         int64
	OccurredAt    time.Time
}

// EventPublisher delivers events to downstream consumers.  Delivery is
// best effort: a failure is logged and never undoes the change.
type EventPublisher interface {
	Publish(ctx context.Context, ev Event) error
}

type discardEvents struct{}

func (discardEvents) Publish(context.Context, Event) error { return nil }
