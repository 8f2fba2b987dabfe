// Package queue defines message payloads exchanged over the message broker
// and the consumer that records them.
package queue

// ReservationsQueue is the durable queue every reservation event is
// routed to.
const ReservationsQueue = "studyroom.reservations"

// ReservationEvent is published after a reservation is created or deleted
// and after the bulk reset and purge jobs.  Single-reservation events fill
// the reservation fields; bulk events fill Count instead.
type ReservationEvent struct {
	Type          string  `json:"type"`
	ReservationID uint64  `json:"reservation_id,omitempty"`
	RoomID        uint64  `json:"room_id,omitempty"`
	Date          string  `json:"date,omitempty"`
	StartHour     int     `json:"start_hour,omitempty"`
	Student1ID    uint64  `json:"student1_id,omitempty"`
	Student2ID    uint64  `json:"student2_id,omitempty"`
	ActorID       *uint64 `json:"actor_id,omitempty"`
	Count         int64   `json:"count,omitempty"`
	OccurredAt    string  `json:"occurred_at"`
}
