// Package booking implements the study room reservation rules: who may
// book which (room, day, hour) slot, the per-student daily quota, and the
// bulk deletions run by the janitor and the weekly reset.
//
// The package owns no storage.  Everything persistent goes through the
// Store interface, which the SQL repository and the in-memory store both
// implement.
package booking

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/iliyamo/studyroom-reservation/internal/clock"
	"github.com/iliyamo/studyroom-reservation/internal/model"
)

// Booking limits.
const (
	FirstHour       = 8
	LastHour        = 23
	SlotHours       = 1
	DailyQuotaHours = 2

	// Column widths of students.name and students.class_number, in characters.
	MaxNameLen  = 100
	MaxClassLen = 32
)

func logf(format string, args ...any) { log.Printf("booking: "+format, args...) }

// StudentRef names a participant as typed on the booking form.
type StudentRef struct {
	Name        string
	ClassNumber string
}

// BookingRequest is the input of Engine.Book.  CreatedBy is nil for
// anonymous bookings.
type BookingRequest struct {
	RoomID    uint64
	Date      time.Time
	StartHour int
	Student1  StudentRef
	Student2  StudentRef
	CreatedBy *uint64
}

// Actor identifies who asks for a deletion.
type Actor struct {
	UserID uint64
	Admin  bool
}

// CanDelete reports whether the actor may delete r: admins always, other
// users only their own reservations.  Anonymous reservations have no
// creator and are therefore admin-only.
func (a Actor) CanDelete(r model.Reservation) bool {
	if a.Admin {
		return true
	}
	return r.CreatedBy != nil && *r.CreatedBy == a.UserID
}

// DaySchedule is one column of the week view.
type DaySchedule struct {
	Date         time.Time
	Reservations []model.ReservationDetail
}

// Engine validates and commits bookings and performs deletions.
type Engine struct {
	store    Store
	registry *Registry
	calendar *Calendar
	locker   Locker
	clock    clock.Clock
	loc      *time.Location
	events   EventPublisher
	inflight sync.WaitGroup
}

// Option configures an Engine.
type Option func(*Engine)

// WithLocker replaces the default in-process KeyedMutex.
func WithLocker(l Locker) Option { return func(e *Engine) { e.locker = l } }

// WithClock sets the time source used to decide what "today" is.
func WithClock(c clock.Clock) Option { return func(e *Engine) { e.clock = c } }

// WithLocation sets the zone that defines calendar days.
func WithLocation(loc *time.Location) Option { return func(e *Engine) { e.loc = loc } }

// WithEvents sets the publisher notified after each committed change.
func WithEvents(p EventPublisher) Option { return func(e *Engine) { e.events = p } }

// NewEngine builds an Engine over store.
func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		locker: NewKeyedMutex(),
		clock:  clock.Real(),
		loc:    time.Local,
		events: discardEvents{},
	}
	for _, o := range opts {
		o(e)
	}
	e.registry = NewRegistry(store)
	e.calendar = NewCalendar(store)
	return e
}

// Location returns the zone calendar days are interpreted in.
func (e *Engine) Location() *time.Location { return e.loc }

// Today returns midnight of the current local day.
func (e *Engine) Today() time.Time { return DayOf(e.clock.Now(), e.loc) }

// Registry returns the student registry used by the engine.
func (e *Engine) Registry() *Registry { return e.registry }

// Calendar returns the availability and quota checker used by the engine.
func (e *Engine) Calendar() *Calendar { return e.calendar }

// Book validates req and stores a one-hour reservation.  Checks run in
// order and the first failure is returned; nothing is written on any
// failure except possibly the two student rows.
func (e *Engine) Book(ctx context.Context, req BookingRequest) (model.ReservationDetail, error) {
	s1 := normalizeRef(req.Student1)
	s2 := normalizeRef(req.Student2)
	if req.StartHour < FirstHour || req.StartHour > LastHour {
		return model.ReservationDetail{}, newError(ErrInvalidInput, "start hour %d is outside %d..%d", req.StartHour, FirstHour, LastHour)
	}
	if s1.Name == "" || s1.ClassNumber == "" || s2.Name == "" || s2.ClassNumber == "" {
		return model.ReservationDetail{}, newError(ErrInvalidInput, "both students need a name and a class")
	}
	for _, s := range []StudentRef{s1, s2} {
		if utf8.RuneCountInString(s.Name) > MaxNameLen || utf8.RuneCountInString(s.ClassNumber) > MaxClassLen {
			return model.ReservationDetail{}, newError(ErrInvalidInput, "names are limited to %d characters and classes to %d", MaxNameLen, MaxClassLen)
		}
	}
	room, err := e.store.GetRoom(ctx, req.RoomID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.ReservationDetail{}, newError(ErrInvalidInput, "room %d does not exist", req.RoomID)
		}
		return model.ReservationDetail{}, storageError("get room", err)
	}

	day := DayOf(req.Date, e.loc)
	if day.Before(e.Today()) {
		return model.ReservationDetail{}, newError(ErrInvalidDate, "%s is in the past", DayKey(day))
	}
	if day.Weekday() == time.Sunday {
		return model.ReservationDetail{}, newError(ErrInvalidDate, "%s is a Sunday", DayKey(day))
	}

	st1, err := e.registry.Resolve(ctx, s1.Name, s1.ClassNumber)
	if err != nil {
		return model.ReservationDetail{}, err
	}
	st2, err := e.registry.Resolve(ctx, s2.Name, s2.ClassNumber)
	if err != nil {
		return model.ReservationDetail{}, err
	}

	unlock, err := e.locker.Lock(ctx,
		SlotKey(room.ID, day, req.StartHour),
		QuotaKey(st1.ID, day),
		QuotaKey(st2.ID, day),
	)
	if err != nil {
		return model.ReservationDetail{}, storageError("acquire booking lock", err)
	}
	defer unlock()

	taken, err := e.calendar.HasConflict(ctx, room.ID, day, req.StartHour)
	if err != nil {
		return model.ReservationDetail{}, err
	}
	if taken {
		return model.ReservationDetail{}, newError(ErrSlotTaken, "room %s is already booked on %s at %d:00", room.RoomNumber, DayKey(day), req.StartHour)
	}
	for _, st := range []model.Student{st1, st2} {
		hours, err := e.calendar.HoursBooked(ctx, st.ID, day)
		if err != nil {
			return model.ReservationDetail{}, err
		}
		if hours >= DailyQuotaHours {
			be := newError(ErrQuotaExceeded, "%s already has %d hours booked on %s", st.Name, hours, DayKey(day))
			be.Student = st.Name
			return model.ReservationDetail{}, be
		}
	}

	r := model.Reservation{
		RoomID:     room.ID,
		Date:       day,
		StartHour:  req.StartHour,
		EndHour:    req.StartHour + SlotHours,
		Student1ID: st1.ID,
		Student2ID: st2.ID,
		CreatedBy:  req.CreatedBy,
	}
	if err := e.store.InsertReservation(ctx, &r); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return model.ReservationDetail{}, newError(ErrSlotTaken, "room %s is already booked on %s at %d:00", room.RoomNumber, DayKey(day), req.StartHour)
		}
		return model.ReservationDetail{}, storageError("insert reservation", err)
	}

	e.publish(Event{
		Type:          EventReservationCreated,
		ReservationID: r.ID,
		RoomID:        r.RoomID,
		Date:          DayKey(day),
		StartHour:     r.StartHour,
		Student1ID:    r.Student1ID,
		Student2ID:    r.Student2ID,
		ActorID:       r.CreatedBy,
	})
	return model.ReservationDetail{
		Reservation: r,
		RoomNumber:  room.RoomNumber,
		Student1:    st1,
		Student2:    st2,
	}, nil
}

func normalizeRef(s StudentRef) StudentRef {
	return StudentRef{Name: strings.TrimSpace(s.Name), ClassNumber: strings.TrimSpace(s.ClassNumber)}
}

// Delete removes reservation id on behalf of actor.
func (e *Engine) Delete(ctx context.Context, id uint64, actor Actor) error {
	r, err := e.store.GetReservation(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return newError(ErrNotFound, "reservation %d does not exist", id)
		}
		return storageError("get reservation", err)
	}
	if !actor.CanDelete(r) {
		return newError(ErrForbidden, "reservation %d belongs to someone else", id)
	}
	if err := e.store.DeleteReservation(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return newError(ErrNotFound, "reservation %d does not exist", id)
		}
		return storageError("delete reservation", err)
	}
	uid := actor.UserID
	e.publish(Event{
		Type:          EventReservationDeleted,
		ReservationID: r.ID,
		RoomID:        r.RoomID,
		Date:          DayKey(r.Date),
		StartHour:     r.StartHour,
		Student1ID:    r.Student1ID,
		Student2ID:    r.Student2ID,
		ActorID:       &uid,
	})
	return nil
}

// PurgeOlderThan deletes every reservation dated strictly before today
// minus days and returns how many were removed.
func (e *Engine) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	if days < 0 {
		return 0, newError(ErrInvalidInput, "retention of %d days is negative", days)
	}
	cutoff := e.Today().AddDate(0, 0, -days)
	n, err := e.store.DeleteReservationsBefore(ctx, cutoff)
	if err != nil {
		return 0, storageError("purge reservations", err)
	}
	e.publish(Event{Type: EventReservationsPurged, Date: DayKey(cutoff), Count: n})
	return n, nil
}

// ResetAll deletes every reservation regardless of date.
func (e *Engine) ResetAll(ctx context.Context) (int64, error) {
	n, err := e.store.DeleteAllReservations(ctx)
	if err != nil {
		return 0, storageError("reset reservations", err)
	}
	e.publish(Event{Type: EventReservationsReset, Count: n})
	return n, nil
}

// SeedRooms upserts the default room list and returns the stored rooms.
func (e *Engine) SeedRooms(ctx context.Context) ([]model.Room, error) {
	if err := e.store.UpsertRooms(ctx, model.DefaultRooms); err != nil {
		return nil, storageError("seed rooms", err)
	}
	rooms, err := e.store.ListRooms(ctx)
	if err != nil {
		return nil, storageError("list rooms", err)
	}
	return rooms, nil
}

// ListRooms returns the rooms, seeding them when none exist.  Storage
// failures yield an empty list since rooms can always be re-seeded; ok is
// false in that case so callers can avoid caching the degraded answer.
func (e *Engine) ListRooms(ctx context.Context) (rooms []model.Room, ok bool) {
	rooms, err := e.store.ListRooms(ctx)
	if err == nil && len(rooms) > 0 {
		return rooms, true
	}
	if err != nil {
		logf("list rooms: %v", err)
		return []model.Room{}, false
	}
	rooms, err = e.SeedRooms(ctx)
	if err != nil {
		logf("%v", err)
		return []model.Room{}, false
	}
	return rooms, true
}

// ReservationsOn returns the reservations of one day with room and
// student display data.
func (e *Engine) ReservationsOn(ctx context.Context, date time.Time) ([]model.ReservationDetail, error) {
	rs, err := e.store.ReservationDetailsOn(ctx, DayOf(date, e.loc))
	if err != nil {
		return nil, storageError("list reservations", err)
	}
	return rs, nil
}

// Week returns Monday to Saturday of the week containing date.
func (e *Engine) Week(ctx context.Context, date time.Time) ([]DaySchedule, error) {
	monday := WeekOf(DayOf(date, e.loc))
	week := make([]DaySchedule, 0, WeekDays)
	for i := 0; i < WeekDays; i++ {
		day := monday.AddDate(0, 0, i)
		rs, err := e.ReservationsOn(ctx, day)
		if err != nil {
			return nil, err
		}
		week = append(week, DaySchedule{Date: day, Reservations: rs})
	}
	return week, nil
}

func (e *Engine) publish(ev Event) {
	ev.OccurredAt = e.clock.Now().UTC()
	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.events.Publish(ctx, ev); err != nil {
			logf("publish %s: %v", ev.Type, err)
		}
	}()
}

// Flush waits for in-flight event deliveries.
func (e *Engine) Flush() { e.inflight.Wait() }
