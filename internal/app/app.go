// Package app assembles the stores, engine and background jobs from a
// Config.  Both the HTTP server and the roomctl CLI boot through it.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/studyroom-reservation/internal/booking"
	"github.com/iliyamo/studyroom-reservation/internal/config"
	"github.com/iliyamo/studyroom-reservation/internal/database"
	"github.com/iliyamo/studyroom-reservation/internal/metrics"
	"github.com/iliyamo/studyroom-reservation/internal/repository"
	"github.com/iliyamo/studyroom-reservation/internal/repository/memory"
	"github.com/iliyamo/studyroom-reservation/internal/scheduler"
	"github.com/iliyamo/studyroom-reservation/internal/service"
)

// Stores is the persistence selected by DB_DRIVER.
type Stores struct {
	Booking booking.Store
	Users   repository.UserStore
	Tokens  repository.TokenStore
	db      *sql.DB
}

// Close releases the database pool, if any.
func (s Stores) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// OpenStores connects to the configured database and creates missing
// tables.  The memory driver keeps everything in process.
func OpenStores(ctx context.Context, cfg config.Config) (Stores, error) {
	var (
		db  *sql.DB
		err error
	)
	switch cfg.DBDriver {
	case database.DriverMemory:
		m := memory.New()
		return Stores{Booking: m, Users: m, Tokens: m}, nil
	case database.DriverSQLite:
		db, err = database.OpenSQLite(cfg.DBPath)
	case database.DriverMySQL:
		db, err = database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	default:
		return Stores{}, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}
	if err != nil {
		return Stores{}, fmt.Errorf("open %s: %w", cfg.DBDriver, err)
	}
	if err := database.Migrate(ctx, db, cfg.DBDriver); err != nil {
		_ = db.Close()
		return Stores{}, err
	}
	return Stores{
		Booking: repository.NewStore(db),
		Users:   repository.NewUserRepo(db),
		Tokens:  repository.NewTokenRepo(db),
		db:      db,
	}, nil
}

// EngineOptions picks the locker and event publisher for cfg.  Redis
// locks need a live client; without one the engine falls back to the
// in-process locker and logs it.
func EngineOptions(cfg config.Config, rdb *redis.Client) []booking.Option {
	opts := []booking.Option{booking.WithLocation(cfg.Loc)}
	switch {
	case cfg.LockBackend == "redis" && rdb != nil:
		opts = append(opts, booking.WithLocker(booking.NewRedisLocker(rdb, "studyroom:lock", cfg.LockTTL)))
	case cfg.LockBackend == "redis":
		log.Printf("app: LOCK_BACKEND=redis but redis is unavailable; using in-process locks")
	}
	if cfg.EventsEnabled {
		opts = append(opts, booking.WithEvents(&service.AMQPPublisher{URL: cfg.RabbitMQURL}))
	}
	return opts
}

// Jobs returns the weekly reset and, when JANITOR_SCHEDULE is set, the
// retention purge.
func Jobs(cfg config.Config, engine *booking.Engine) ([]scheduler.Job, error) {
	spec := cfg.ResetSchedule
	if spec == "" {
		spec = scheduler.WeeklyReset
	}
	reset, err := scheduler.NewJob("weekly-reset", spec, func(ctx context.Context) error {
		n, err := engine.ResetAll(ctx)
		if err != nil {
			return err
		}
		metrics.RecordDeleted(metrics.ReasonReset, n)
		log.Printf("scheduler: weekly reset removed %d reservations", n)
		return nil
	})
	if err != nil {
		return nil, err
	}
	jobs := []scheduler.Job{reset}

	if cfg.JanitorSchedule != "" {
		janitor, err := scheduler.NewJob("janitor", cfg.JanitorSchedule, func(ctx context.Context) error {
			n, err := engine.PurgeOlderThan(ctx, cfg.RetentionDays)
			if err != nil {
				return err
			}
			metrics.RecordDeleted(metrics.ReasonJanitor, n)
			return nil
		})
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, janitor)
	}
	return jobs, nil
}
