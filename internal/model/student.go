package model

import "time"

// Student identifies a participant of a reservation.  Students are
// created lazily the first time a booking names them and are unique by
// (Name, ClassNumber).
//
// Fields:
//
//	ID          – primary key identifier.
//	Name        – student name as typed on the booking form.
//	ClassNumber – cohort/class identifier.
//	CreatedAt   – creation timestamp.
type Student struct {
	ID          uint64    // students.id
	Name        string    // students.name
	ClassNumber string    // students.class_number
	CreatedAt   time.Time // students.created_at
}
