package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/studyroom-reservation/internal/model"
)

// RoomRepo reads and seeds the study_rooms table.
type RoomRepo struct{ db *sql.DB }

func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{db: db} }

// ListRooms returns every room ordered by room number.
func (r *RoomRepo) ListRooms(ctx context.Context) ([]model.Room, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, room_number, floor, created_at FROM study_rooms ORDER BY room_number")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	rooms := []model.Room{}
	for rows.Next() {
		var rm model.Room
		if err := rows.Scan(&rm.ID, &rm.RoomNumber, &rm.Floor, dbTime{&rm.CreatedAt}); err != nil {
			return nil, err
		}
		rooms = append(rooms, rm)
	}
	return rooms, rows.Err()
}

// GetRoom fetches a room by id.
func (r *RoomRepo) GetRoom(ctx context.Context, id uint64) (model.Room, error) {
	var rm model.Room
	err := r.db.QueryRowContext(ctx,
		"SELECT id, room_number, floor, created_at FROM study_rooms WHERE id=? LIMIT 1", id).
		Scan(&rm.ID, &rm.RoomNumber, &rm.Floor, dbTime{&rm.CreatedAt})
	if errors.Is(err, sql.ErrNoRows) {
		return model.Room{}, ErrNotFound
	}
	return rm, err
}

// UpsertRooms inserts rooms that are missing and corrects the floor of
// those that exist.  A concurrent seeder inserting the same room first is
// not an error.
func (r *RoomRepo) UpsertRooms(ctx context.Context, rooms []model.Room) error {
	for _, want := range rooms {
		var (
			id    uint64
			floor int
		)
		err := r.db.QueryRowContext(ctx,
			"SELECT id, floor FROM study_rooms WHERE room_number=? LIMIT 1", want.RoomNumber).
			Scan(&id, &floor)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			_, err = r.db.ExecContext(ctx,
				"INSERT INTO study_rooms (room_number, floor) VALUES (?, ?)", want.RoomNumber, want.Floor)
			if err != nil && !isDuplicate(err) {
				return err
			}
		case err != nil:
			return err
		case floor != want.Floor:
			if _, err := r.db.ExecContext(ctx,
				"UPDATE study_rooms SET floor=? WHERE id=?", want.Floor, id); err != nil {
				return err
			}
		}
	}
	return nil
}
