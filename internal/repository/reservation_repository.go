package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/studyroom-reservation/internal/booking"
	"github.com/iliyamo/studyroom-reservation/internal/model"
)

// ReservationRepo provides CRUD operations for reservations.  The
// reservation_date column holds a calendar day written as YYYY-MM-DD; the
// unique (room_id, reservation_date, start_time) key is the last line of
// defence against double booking.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `r.id, r.room_id, r.reservation_date, r.start_time, r.end_time,
	r.student1_id, r.student2_id, r.created_by, r.created_at, r.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner, extra ...any) (model.Reservation, error) {
	var (
		res       model.Reservation
		createdBy sql.NullInt64
	)
	dest := []any{
		&res.ID, &res.RoomID, dbTime{&res.Date}, &res.StartHour, &res.EndHour,
		&res.Student1ID, &res.Student2ID, &createdBy, dbTime{&res.CreatedAt}, dbTime{&res.UpdatedAt},
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return model.Reservation{}, err
	}
	if createdBy.Valid {
		uid := uint64(createdBy.Int64)
		res.CreatedBy = &uid
	}
	return res, nil
}

// ReservationsOn returns the reservations of one calendar day.
func (r *ReservationRepo) ReservationsOn(ctx context.Context, day time.Time) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+reservationColumns+" FROM reservations r WHERE r.reservation_date=? ORDER BY r.start_time, r.room_id",
		booking.DayKey(day))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Reservation{}
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// ReservationDetailsOn is ReservationsOn joined with the room number and
// both students.
func (r *ReservationRepo) ReservationDetailsOn(ctx context.Context, day time.Time) ([]model.ReservationDetail, error) {
	const q = `SELECT ` + reservationColumns + `,
		sr.room_number,
		s1.id, s1.name, s1.class_number, s1.created_at,
		s2.id, s2.name, s2.class_number, s2.created_at
	FROM reservations r
	JOIN study_rooms sr ON sr.id = r.room_id
	JOIN students s1 ON s1.id = r.student1_id
	JOIN students s2 ON s2.id = r.student2_id
	WHERE r.reservation_date = ?
	ORDER BY r.start_time, r.room_id`
	rows, err := r.db.QueryContext(ctx, q, booking.DayKey(day))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ReservationDetail{}
	for rows.Next() {
		var d model.ReservationDetail
		res, err := scanReservation(rows,
			&d.RoomNumber,
			&d.Student1.ID, &d.Student1.Name, &d.Student1.ClassNumber, dbTime{&d.Student1.CreatedAt},
			&d.Student2.ID, &d.Student2.Name, &d.Student2.ClassNumber, dbTime{&d.Student2.CreatedAt},
		)
		if err != nil {
			return nil, err
		}
		d.Reservation = res
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetReservation fetches one reservation by id.
func (r *ReservationRepo) GetReservation(ctx context.Context, id uint64) (model.Reservation, error) {
	res, err := scanReservation(r.db.QueryRowContext(ctx,
		"SELECT "+reservationColumns+" FROM reservations r WHERE r.id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Reservation{}, ErrNotFound
	}
	return res, err
}

// InsertReservation stores res and fills in its ID and timestamps.  A
// taken slot surfaces as ErrDuplicate.
func (r *ReservationRepo) InsertReservation(ctx context.Context, res *model.Reservation) error {
	var createdBy sql.NullInt64
	if res.CreatedBy != nil {
		createdBy = sql.NullInt64{Int64: int64(*res.CreatedBy), Valid: true}
	}
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO reservations (room_id, reservation_date, start_time, end_time, student1_id, student2_id, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		res.RoomID, booking.DayKey(res.Date), res.StartHour, res.EndHour, res.Student1ID, res.Student2ID, createdBy)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	// Query back the timestamps filled in by column defaults
	return r.db.QueryRowContext(ctx,
		"SELECT created_at, updated_at FROM reservations WHERE id=?", res.ID).
		Scan(dbTime{&res.CreatedAt}, dbTime{&res.UpdatedAt})
}

// DeleteReservation removes one reservation.
func (r *ReservationRepo) DeleteReservation(ctx context.Context, id uint64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM reservations WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteReservationsBefore removes reservations dated strictly before day.
func (r *ReservationRepo) DeleteReservationsBefore(ctx context.Context, day time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM reservations WHERE reservation_date < ?", booking.DayKey(day))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DeleteAllReservations empties the reservations table.
func (r *ReservationRepo) DeleteAllReservations(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM reservations")
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
