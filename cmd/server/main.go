package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
	_ "time/tzdata" // APP_TZ must resolve on hosts without a zoneinfo database

	"github.com/joho/godotenv"

	"github.com/iliyamo/studyroom-reservation/internal/app"
	"github.com/iliyamo/studyroom-reservation/internal/booking"
	"github.com/iliyamo/studyroom-reservation/internal/clock"
	"github.com/iliyamo/studyroom-reservation/internal/config"
	"github.com/iliyamo/studyroom-reservation/internal/handler"
	"github.com/iliyamo/studyroom-reservation/internal/queue"
	"github.com/iliyamo/studyroom-reservation/internal/router"
	"github.com/iliyamo/studyroom-reservation/internal/scheduler"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("env: %v", err)
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := app.OpenStores(ctx, cfg)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer stores.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; cache and rate limit disabled")
	} else {
		defer rdb.Close()
	}

	engine := booking.NewEngine(stores.Booking, app.EngineOptions(cfg, rdb)...)
	rooms, err := engine.SeedRooms(ctx)
	if err != nil {
		log.Printf("seed rooms: %v", err)
	} else {
		log.Printf("seeded %d rooms", len(rooms))
	}

	if cfg.EventsEnabled {
		go func() {
			if err := queue.StartReservationConsumer(ctx, cfg.RabbitMQURL, filepath.Join(".", "logs")); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("booking-consumer: %v", err)
			}
		}()
	}

	jobs, err := app.Jobs(cfg, engine)
	if err != nil {
		log.Fatalf("scheduler: %v", err)
	}
	runner := scheduler.New(clock.Real(), cfg.Loc, nil, jobs...)
	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		runner.Run(ctx)
	}()

	e := router.New(router.Deps{
		Cfg:          cfg,
		Auth:         handler.NewAuthHandler(cfg, stores.Users, stores.Tokens),
		Rooms:        handler.NewRoomHandler(engine),
		Reservations: handler.NewReservationHandler(engine, cfg.RetentionDays),
		Redis:        rdb,
		RateLimit:    config.LoadRateLimitConfig(),
		Cache:        config.LoadCacheConfig(),
	})

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s, db=%s, tz=%s)", addr, cfg.Env, cfg.DBDriver, cfg.Loc)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	<-schedDone
	engine.Flush()
}
