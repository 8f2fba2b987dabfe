package model

import "time"

// Room is one of the fixed study rooms.  Rooms are seeded once when the
// store is empty and are never deleted.  The room number is the label
// printed on the door; Floor is corrected when the seed runs again.
//
// Fields:
//
//	ID         – primary key identifier.
//	RoomNumber – unique door label (e.g. "407").
//	Floor      – floor the room is on.
//	CreatedAt  – creation timestamp.
type Room struct {
	ID         uint64    // study_rooms.id
	RoomNumber string    // study_rooms.room_number
	Floor      int       // study_rooms.floor
	CreatedAt  time.Time // study_rooms.created_at
}

// DefaultRooms is the seed list of bookable rooms.
var DefaultRooms = []Room{
	{RoomNumber: "407", Floor: 4},
	{RoomNumber: "408", Floor: 4},
	{RoomNumber: "409", Floor: 4},
	{RoomNumber: "523", Floor: 5},
	{RoomNumber: "524", Floor: 5},
	{RoomNumber: "525", Floor: 5},
}
