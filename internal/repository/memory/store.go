// Package memory is an in-process implementation of the persistence
// interfaces.  It backs the booking tests and DB_DRIVER=memory dev runs;
// all data is lost when the process exits.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/studyroom-reservation/internal/booking"
	"github.com/iliyamo/studyroom-reservation/internal/model"
	"github.com/iliyamo/studyroom-reservation/internal/repository"
	"github.com/iliyamo/studyroom-reservation/internal/utils"
)

type studentKey struct{ name, class string }

type slotKey struct {
	room uint64
	day  string
	hour int
}

// Store keeps rooms, students, reservations, users and refresh tokens in
// maps guarded by one mutex.  The zero value is not usable; call New.
type Store struct {
	mu sync.Mutex

	rooms    []model.Room
	students map[uint64]model.Student
	byName   map[studentKey]uint64
	resv     map[uint64]model.Reservation
	slots    map[slotKey]uint64
	users    map[uint64]model.User
	tokens   map[string]model.RefreshToken

	nextID uint64
	now    func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		students: make(map[uint64]model.Student),
		byName:   make(map[studentKey]uint64),
		resv:     make(map[uint64]model.Reservation),
		slots:    make(map[slotKey]uint64),
		users:    make(map[uint64]model.User),
		tokens:   make(map[string]model.RefreshToken),
		now:      time.Now,
	}
}

var (
	_ booking.Store         = (*Store)(nil)
	_ repository.UserStore  = (*Store)(nil)
	_ repository.TokenStore = (*Store)(nil)
)

func (s *Store) id() uint64 {
	s.nextID++
	return s.nextID
}

func (s *Store) ListRooms(ctx context.Context) ([]model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Room, len(s.rooms))
	copy(out, s.rooms)
	return out, nil
}

func (s *Store) GetRoom(ctx context.Context, id uint64) (model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rooms {
		if r.ID == id {
			return r, nil
		}
	}
	return model.Room{}, booking.ErrNotFound
}

func (s *Store) UpsertRooms(ctx context.Context, rooms []model.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, want := range rooms {
		found := false
		for i := range s.rooms {
			if s.rooms[i].RoomNumber == want.RoomNumber {
				s.rooms[i].Floor = want.Floor
				found = true
				break
			}
		}
		if !found {
			s.rooms = append(s.rooms, model.Room{
				ID:         s.id(),
				RoomNumber: want.RoomNumber,
				Floor:      want.Floor,
				CreatedAt:  s.now().UTC(),
			})
		}
	}
	sort.Slice(s.rooms, func(i, j int) bool { return s.rooms[i].RoomNumber < s.rooms[j].RoomNumber })
	return nil
}

func (s *Store) FindStudent(ctx context.Context, name, classNumber string) (model.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byName[studentKey{name, classNumber}]
	if !ok {
		return model.Student{}, booking.ErrNotFound
	}
	return s.students[id], nil
}

func (s *Store) CreateStudent(ctx context.Context, name, classNumber string) (model.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := studentKey{name, classNumber}
	if _, ok := s.byName[k]; ok {
		return model.Student{}, booking.ErrDuplicate
	}
	st := model.Student{ID: s.id(), Name: name, ClassNumber: classNumber, CreatedAt: s.now().UTC()}
	s.students[st.ID] = st
	s.byName[k] = st.ID
	return st, nil
}

func (s *Store) ReservationsOn(ctx context.Context, day time.Time) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.on(booking.DayKey(day)), nil
}

func (s *Store) on(key string) []model.Reservation {
	out := []model.Reservation{}
	for _, r := range s.resv {
		if booking.DayKey(r.Date) == key {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartHour != out[j].StartHour {
			return out[i].StartHour < out[j].StartHour
		}
		return out[i].RoomID < out[j].RoomID
	})
	return out
}

func (s *Store) ReservationDetailsOn(ctx context.Context, day time.Time) ([]model.ReservationDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs := s.on(booking.DayKey(day))
	out := make([]model.ReservationDetail, 0, len(rs))
	for _, r := range rs {
		d := model.ReservationDetail{Reservation: r, Student1: s.students[r.Student1ID], Student2: s.students[r.Student2ID]}
		for _, room := range s.rooms {
			if room.ID == r.RoomID {
				d.RoomNumber = room.RoomNumber
			}
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *Store) GetReservation(ctx context.Context, id uint64) (model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resv[id]
	if !ok {
		return model.Reservation{}, booking.ErrNotFound
	}
	return r, nil
}

func (s *Store) InsertReservation(ctx context.Context, r *model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := slotKey{r.RoomID, booking.DayKey(r.Date), r.StartHour}
	if _, ok := s.slots[k]; ok {
		return booking.ErrDuplicate
	}
	now := s.now().UTC()
	r.ID = s.id()
	r.CreatedAt, r.UpdatedAt = now, now
	s.resv[r.ID] = *r
	s.slots[k] = r.ID
	return nil
}

func (s *Store) DeleteReservation(ctx context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resv[id]
	if !ok {
		return booking.ErrNotFound
	}
	s.drop(r)
	return nil
}

func (s *Store) drop(r model.Reservation) {
	delete(s.resv, r.ID)
	delete(s.slots, slotKey{r.RoomID, booking.DayKey(r.Date), r.StartHour})
}

func (s *Store) DeleteReservationsBefore(ctx context.Context, day time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := booking.DayKey(day)
	var n int64
	for _, r := range s.resv {
		if booking.DayKey(r.Date) < cutoff {
			s.drop(r)
			n++
		}
	}
	return n, nil
}

func (s *Store) DeleteAllReservations(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.resv))
	s.resv = make(map[uint64]model.Reservation)
	s.slots = make(map[slotKey]uint64)
	return n, nil
}

// CountReservations returns the number of stored reservations.
func (s *Store) CountReservations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.resv)
}

func (s *Store) CreateUser(ctx context.Context, email, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
	}
	now := s.now().UTC()
	u := model.User{ID: s.id(), Email: email, PasswordHash: hash, Role: role, IsActive: true, CreatedAt: now, UpdatedAt: now}
	s.users[u.ID] = u
	return u.ID, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (s *Store) UserByID(ctx context.Context, id uint64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s *Store) SetUserRole(ctx context.Context, id uint64, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Role = role
	u.UpdatedAt = s.now().UTC()
	s.users[id] = u
	return nil
}

func (s *Store) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tokenHash] = model.RefreshToken{ID: s.id(), UserID: userID, TokenHash: tokenHash, ExpiresAt: exp, CreatedAt: s.now().UTC()}
	return nil
}

func (s *Store) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[tokenHash]
	if !ok || t.RevokedAt != nil || s.now().UTC().After(t.ExpiresAt) {
		return 0, repository.ErrNotFound
	}
	return t.UserID, nil
}

func (s *Store) RevokeByHash(ctx context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tokens[tokenHash]; ok && t.RevokedAt == nil {
		now := s.now().UTC()
		t.RevokedAt = &now
		s.tokens[tokenHash] = t
	}
	return nil
}

func (s *Store) RevokeAllForUser(ctx context.Context, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	for h, t := range s.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
			s.tokens[h] = t
		}
	}
	return nil
}
