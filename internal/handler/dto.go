package handler

import (
	"time"

	"github.com/iliyamo/studyroom-reservation/internal/booking"
	"github.com/iliyamo/studyroom-reservation/internal/model"
)

type roomDTO struct {
	ID         uint64 `json:"id"`
	RoomNumber string `json:"room_number"`
	Floor      int    `json:"floor"`
}

type studentDTO struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Class string `json:"class"`
}

type reservationDTO struct {
	ID         uint64     `json:"id"`
	RoomID     uint64     `json:"room_id"`
	RoomNumber string     `json:"room_number"`
	Date       string     `json:"date"`
	StartHour  int        `json:"start_hour"`
	EndHour    int        `json:"end_hour"`
	Student1   studentDTO `json:"student1"`
	Student2   studentDTO `json:"student2"`
	CreatedBy  *uint64    `json:"created_by,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

type dayDTO struct {
	Date         string           `json:"date"`
	Weekday      string           `json:"weekday"`
	Reservations []reservationDTO `json:"reservations"`
}

func toRoomDTOs(rooms []model.Room) []roomDTO {
	out := make([]roomDTO, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, roomDTO{ID: r.ID, RoomNumber: r.RoomNumber, Floor: r.Floor})
	}
	return out
}

func toStudentDTO(s model.Student) studentDTO {
	return studentDTO{ID: s.ID, Name: s.Name, Class: s.ClassNumber}
}

func toReservationDTO(d model.ReservationDetail) reservationDTO {
	return reservationDTO{
		ID:         d.ID,
		RoomID:     d.RoomID,
		RoomNumber: d.RoomNumber,
		Date:       d.Date.Format(booking.DateLayout),
		StartHour:  d.StartHour,
		EndHour:    d.EndHour,
		Student1:   toStudentDTO(d.Student1),
		Student2:   toStudentDTO(d.Student2),
		CreatedBy:  d.CreatedBy,
		CreatedAt:  d.CreatedAt,
	}
}

func toReservationDTOs(ds []model.ReservationDetail) []reservationDTO {
	out := make([]reservationDTO, 0, len(ds))
	for _, d := range ds {
		out = append(out, toReservationDTO(d))
	}
	return out
}
