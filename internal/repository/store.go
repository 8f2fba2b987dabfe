package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/studyroom-reservation/internal/booking"
	"github.com/iliyamo/studyroom-reservation/internal/model"
)

// UserStore is what the auth handlers need from user persistence.
type UserStore interface {
	CreateUser(ctx context.Context, email, password, role string, cost int) (uint64, error)
	UserByEmail(ctx context.Context, email string) (model.User, error)
	UserByID(ctx context.Context, id uint64) (model.User, error)
	SetUserRole(ctx context.Context, id uint64, role string) error
}

// TokenStore is what the auth handlers need from refresh-token persistence.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// Store bundles the SQL repositories into a booking.Store.
type Store struct {
	*RoomRepo
	*StudentRepo
	*ReservationRepo
}

var (
	_ booking.Store = (*Store)(nil)
	_ UserStore     = (*UserRepo)(nil)
	_ TokenStore    = (*TokenRepo)(nil)
)

// NewStore returns a Store whose repositories share db.
func NewStore(db *sql.DB) *Store {
	return &Store{
		RoomRepo:        NewRoomRepo(db),
		StudentRepo:     NewStudentRepo(db),
		ReservationRepo: NewReservationRepo(db),
	}
}
