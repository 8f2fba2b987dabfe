package model

import "time"

// Reservation is a one-hour occupancy of a room by two students on a
// calendar date.  Date is always midnight in the service's local zone.
// EndHour is derived (StartHour + 1) and stored for display and quota
// sums.  CreatedBy is nil for anonymous bookings.
//
// Fields:
//
//	ID         – primary key identifier.
//	RoomID     – room being reserved.
//	Date       – calendar day of the reservation.
//	StartHour  – first hour of the slot (8..23).
//	EndHour    – StartHour + 1.
//	Student1ID – first participant.
//	Student2ID – second participant.
//	CreatedBy  – user who created the reservation (nullable).
//	CreatedAt  – creation timestamp.
//	UpdatedAt  – last update timestamp.
type Reservation struct {
	ID         uint64    // reservations.id
	RoomID     uint64    // reservations.room_id
	Date       time.Time // reservations.reservation_date
	StartHour  int       // reservations.start_time
	EndHour    int       // reservations.end_time
	Student1ID uint64    // reservations.student1_id
	Student2ID uint64    // reservations.student2_id
	CreatedBy  *uint64   // reservations.created_by (nullable)
	CreatedAt  time.Time // reservations.created_at
	UpdatedAt  time.Time // reservations.updated_at
}

// Hours returns the length of the reservation in hours.
func (r Reservation) Hours() int { return r.EndHour - r.StartHour }

// Involves reports whether the student takes part in the reservation in
// either role.
func (r Reservation) Involves(studentID uint64) bool {
	return r.Student1ID == studentID || r.Student2ID == studentID
}

// ReservationDetail bundles a reservation with the display information
// of its room and both students.
type ReservationDetail struct {
	Reservation
	RoomNumber string
	Student1   Student
	Student2   Student
}
