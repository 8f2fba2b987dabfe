package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studyroom-reservation/internal/booking"
	"github.com/iliyamo/studyroom-reservation/internal/metrics"
	"github.com/iliyamo/studyroom-reservation/internal/middleware"
)

// ReservationHandler exposes the booking engine over HTTP.  Identity, when
// present, has already been placed in the context by the JWT middleware.
type ReservationHandler struct {
	Engine        *booking.Engine
	RetentionDays int
}

func NewReservationHandler(engine *booking.Engine, retentionDays int) *ReservationHandler {
	if engine == nil {
		panic("nil engine passed to NewReservationHandler")
	}
	return &ReservationHandler{Engine: engine, RetentionDays: retentionDays}
}

type studentReq struct {
	Name  string `json:"name" validate:"required,max=100"`
	Class string `json:"class" validate:"required,max=32"`
}

type createReservationReq struct {
	RoomID    uint64     `json:"room_id" validate:"required"`
	Date      string     `json:"date" validate:"required"`
	StartHour int        `json:"start_hour"`
	Student1  studentReq `json:"student1"`
	Student2  studentReq `json:"student2"`
}

func (h *ReservationHandler) dateParam(c echo.Context) (time.Time, error) {
	return booking.ParseDate(c.QueryParam("date"), h.Engine.Location())
}

// List handles GET /v1/reservations?date=YYYY-MM-DD.
func (h *ReservationHandler) List(c echo.Context) error {
	day, err := h.dateParam(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rs, err := h.Engine.ReservationsOn(ctx, day)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"date":  booking.DayKey(day),
		"items": toReservationDTOs(rs),
	})
}

// Week handles GET /v1/reservations/week?date=YYYY-MM-DD and returns
// Monday through Saturday of the week containing date.
func (h *ReservationHandler) Week(c echo.Context) error {
	day, err := h.dateParam(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	week, err := h.Engine.Week(ctx, day)
	if err != nil {
		return writeError(c, err)
	}
	days := make([]dayDTO, 0, len(week))
	for _, d := range week {
		days = append(days, dayDTO{
			Date:         booking.DayKey(d.Date),
			Weekday:      d.Date.Weekday().String(),
			Reservations: toReservationDTOs(d.Reservations),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"week_start": booking.DayKey(week[0].Date),
		"items":      days,
	})
}

// Create handles POST /v1/reservations.  Anonymous callers are allowed;
// a bearer token records the caller as the creator.
func (h *ReservationHandler) Create(c echo.Context) error {
	var req createReservationReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, validationMessage(err))
	}
	day, err := booking.ParseDate(req.Date, h.Engine.Location())
	if err != nil {
		return writeError(c, err)
	}

	breq := booking.BookingRequest{
		RoomID:    req.RoomID,
		Date:      day,
		StartHour: req.StartHour,
		Student1:  booking.StudentRef{Name: req.Student1.Name, ClassNumber: req.Student1.Class},
		Student2:  booking.StudentRef{Name: req.Student2.Name, ClassNumber: req.Student2.Class},
	}
	if uid, ok := middleware.UserID(c); ok {
		breq.CreatedBy = &uid
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d, err := h.Engine.Book(ctx, breq)
	if err != nil {
		metrics.RecordBooking(booking.KindName(err))
		return writeError(c, err)
	}
	metrics.RecordBooking(metrics.OutcomeCreated)
	return c.JSON(http.StatusCreated, toReservationDTO(d))
}

// Delete handles DELETE /v1/reservations/:id.  Admins may delete any
// reservation, other users only their own.
func (h *ReservationHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid reservation id")
	}
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Engine.Delete(ctx, id, booking.Actor{UserID: uid, Admin: middleware.IsAdmin(c)}); err != nil {
		return writeError(c, err)
	}
	metrics.RecordDeleted(metrics.ReasonManual, 1)
	return c.NoContent(http.StatusNoContent)
}

// Cleanup handles POST /v1/reservations/cleanup, deleting reservations
// older than the retention window.
func (h *ReservationHandler) Cleanup(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	n, err := h.Engine.PurgeOlderThan(ctx, h.RetentionDays)
	if err != nil {
		return writeError(c, err)
	}
	metrics.RecordDeleted(metrics.ReasonCleanup, n)
	return c.JSON(http.StatusOK, echo.Map{"success": true, "deleted": n})
}
