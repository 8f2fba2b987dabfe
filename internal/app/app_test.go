package app

import (
	"context"
	"testing"
	"time"

	"github.com/iliyamo/studyroom-reservation/internal/booking"
	"github.com/iliyamo/studyroom-reservation/internal/clock"
	"github.com/iliyamo/studyroom-reservation/internal/config"
	"github.com/iliyamo/studyroom-reservation/internal/model"
)

func TestOpenStores(t *testing.T) {
	for _, driver := range []string{"memory", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			st, err := OpenStores(ctx, config.Config{DBDriver: driver, DBPath: ":memory:"})
			if err != nil {
				t.Fatal(err)
			}
			defer st.Close()

			engine := booking.NewEngine(st.Booking, booking.WithLocation(time.UTC))
			rooms, err := engine.SeedRooms(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(rooms) != len(model.DefaultRooms) {
				t.Fatalf("rooms = %d", len(rooms))
			}
			if _, err := st.Users.CreateUser(ctx, "a@example.com", "pw123456", model.RoleUser, 4); err != nil {
				t.Fatal(err)
			}
		})
	}
	if _, err := OpenStores(context.Background(), config.Config{DBDriver: "oracle"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestEngineOptionsFallsBackWithoutRedis(t *testing.T) {
	opts := EngineOptions(config.Config{Loc: time.UTC, LockBackend: "redis"}, nil)
	if len(opts) != 1 {
		t.Fatalf("options = %d, want only the location", len(opts))
	}
	opts = EngineOptions(config.Config{Loc: time.UTC, EventsEnabled: true, RabbitMQURL: "amqp://x"}, nil)
	if len(opts) != 2 {
		t.Fatalf("options = %d, want location and publisher", len(opts))
	}
}

func TestJobs(t *testing.T) {
	ctx := context.Background()
	st, _ := OpenStores(ctx, config.Config{DBDriver: "memory"})
	now := time.Date(2026, 2, 16, 9, 0, 0, 0, time.UTC)
	engine := booking.NewEngine(st.Booking, booking.WithLocation(time.UTC), booking.WithClock(clock.Fake(now)))
	rooms, _ := engine.SeedRooms(ctx)
	if _, err := engine.Book(ctx, booking.BookingRequest{
		RoomID:    rooms[0].ID,
		Date:      now,
		StartHour: 10,
		Student1:  booking.StudentRef{Name: "Hong", ClassNumber: "1"},
		Student2:  booking.StudentRef{Name: "Kim", ClassNumber: "2"},
	}); err != nil {
		t.Fatal(err)
	}

	jobs, err := Jobs(config.Config{JanitorSchedule: "30 3 * * *", RetentionDays: 7}, engine)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 2 || jobs[0].Name != "weekly-reset" || jobs[1].Name != "janitor" {
		t.Fatalf("jobs = %+v", jobs)
	}
	if next := jobs[0].Schedule.Next(now); next.Weekday() != time.Sunday || !next.Equal(time.Date(2026, 2, 22, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("default reset fires at %v", next)
	}

	if err := jobs[1].Run(ctx); err != nil {
		t.Fatal(err)
	}
	if rs, _ := engine.ReservationsOn(ctx, now); len(rs) != 1 {
		t.Fatalf("janitor removed a current reservation: %d left", len(rs))
	}
	if err := jobs[0].Run(ctx); err != nil {
		t.Fatal(err)
	}
	if rs, _ := engine.ReservationsOn(ctx, now); len(rs) != 0 {
		t.Fatalf("reset left %d reservations", len(rs))
	}

	if _, err := Jobs(config.Config{ResetSchedule: "every sunday"}, engine); err == nil {
		t.Fatal("expected bad schedule error")
	}
}
