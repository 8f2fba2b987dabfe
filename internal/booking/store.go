package booking

import (
	"context"
	"time"

	"github.com/iliyamo/studyroom-reservation/internal/model"
)

// Store is the persistence capability the engine and the scheduler need.
// Implementations return ErrNotFound for missing rows and ErrDuplicate
// for unique-key violations; any other error is treated as the store
// being unavailable.
//
// Dates passed in are calendar days; only their year, month and day are
// significant.
type Store interface {
	ListRooms(ctx context.Context) ([]model.Room, error)
	GetRoom(ctx context.Context, id uint64) (model.Room, error)
	// UpsertRooms inserts missing rooms and corrects the floor of existing
	// ones, matching on RoomNumber.
	UpsertRooms(ctx context.Context, rooms []model.Room) error

	FindStudent(ctx context.Context, name, classNumber string) (model.Student, error)
	CreateStudent(ctx context.Context, name, classNumber string) (model.Student, error)

	ReservationsOn(ctx context.Context, day time.Time) ([]model.Reservation, error)
	ReservationDetailsOn(ctx context.Context, day time.Time) ([]model.ReservationDetail, error)
	GetReservation(ctx context.Context, id uint64) (model.Reservation, error)
	// InsertReservation stores r and fills in ID and timestamps.
	InsertReservation(ctx context.Context, r *model.Reservation) error
	DeleteReservation(ctx context.Context, id uint64) error
	DeleteReservationsBefore(ctx context.Context, day time.Time) (int64, error)
	DeleteAllReservations(ctx context.Context) (int64, error)
}
