// roomctl runs maintenance operations against the reservation store
// without going through the HTTP API: seeding rooms, purging old
// reservations, the full reset, and printing when the next weekly reset
// will fire.
//
// Usage:
//
//	roomctl seed-rooms
//	roomctl purge [--days N]
//	roomctl reset --yes
//	roomctl next-reset [--schedule CRON] [--count N]
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/iliyamo/studyroom-reservation/internal/app"
	"github.com/iliyamo/studyroom-reservation/internal/booking"
	"github.com/iliyamo/studyroom-reservation/internal/config"
	"github.com/iliyamo/studyroom-reservation/internal/middleware"
	"github.com/iliyamo/studyroom-reservation/internal/scheduler"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "env: %v\n", err)
	}
	if err := run(context.Background(), os.Args[1:], os.Stdout, time.Now); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

const usage = `usage: roomctl <command> [flags]

commands:
  seed-rooms   insert or update the default study rooms
  purge        delete reservations older than --days (default RETENTION_DAYS)
  reset        delete every reservation (requires --yes)
  next-reset   print the upcoming weekly reset times
`

func run(ctx context.Context, args []string, out io.Writer, now func() time.Time) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return errors.New("missing command")
	}
	cmd, rest := args[0], args[1:]
	flags := pflag.NewFlagSet("roomctl "+cmd, pflag.ContinueOnError)
	flags.SetOutput(out)

	switch cmd {
	case "seed-rooms":
		if err := flags.Parse(rest); err != nil {
			return err
		}
		return withEngine(ctx, func(cfg config.Config, engine *booking.Engine) error {
			rooms, err := engine.SeedRooms(ctx)
			if err != nil {
				return err
			}
			for _, r := range rooms {
				fmt.Fprintf(out, "%d\t%s\tfloor %d\n", r.ID, r.RoomNumber, r.Floor)
			}
			// The cached room list is stale now.
			if rdb := config.NewRedisClient(); rdb != nil {
				defer rdb.Close()
				n, err := middleware.PurgeCache(ctx, rdb, config.LoadCacheConfig().Prefix)
				if err != nil {
					return fmt.Errorf("purge cache: %w", err)
				}
				fmt.Fprintf(out, "dropped %d cached responses\n", n)
			}
			return nil
		})

	case "purge":
		days := flags.Int("days", -1, "retention window in days (default RETENTION_DAYS)")
		if err := flags.Parse(rest); err != nil {
			return err
		}
		return withEngine(ctx, func(cfg config.Config, engine *booking.Engine) error {
			d := *days
			if d < 0 {
				d = cfg.RetentionDays
			}
			n, err := engine.PurgeOlderThan(ctx, d)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "deleted %d reservations older than %d days\n", n, d)
			return nil
		})

	case "reset":
		yes := flags.Bool("yes", false, "confirm deleting every reservation")
		if err := flags.Parse(rest); err != nil {
			return err
		}
		if !*yes {
			return errors.New("reset deletes every reservation; pass --yes to confirm")
		}
		return withEngine(ctx, func(cfg config.Config, engine *booking.Engine) error {
			n, err := engine.ResetAll(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "deleted %d reservations\n", n)
			return nil
		})

	case "next-reset":
		spec := flags.String("schedule", os.Getenv("RESET_SCHEDULE"), "cron expression (default RESET_SCHEDULE or Sunday 00:00)")
		count := flags.IntP("count", "n", 1, "how many upcoming runs to print")
		tz := flags.String("tz", os.Getenv("APP_TZ"), "IANA zone the schedule is evaluated in")
		if err := flags.Parse(rest); err != nil {
			return err
		}
		if *spec == "" {
			*spec = scheduler.WeeklyReset
		}
		loc := time.Local
		if *tz != "" && *tz != "Local" {
			l, err := time.LoadLocation(*tz)
			if err != nil {
				return fmt.Errorf("--tz: %w", err)
			}
			loc = l
		}
		at := now()
		for i := 0; i < *count; i++ {
			next, err := scheduler.Next(*spec, at, loc)
			if err != nil {
				return fmt.Errorf("--schedule %q: %w", *spec, err)
			}
			fmt.Fprintln(out, next.Format(time.RFC1123))
			at = next
		}
		return nil

	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	}
	fmt.Fprint(out, usage)
	return fmt.Errorf("unknown command %q", cmd)
}

// withEngine loads the configuration, opens the store and hands fn an
// engine over it.  Events are flushed before the store is closed.
func withEngine(ctx context.Context, fn func(config.Config, *booking.Engine) error) error {
	cfg := config.Load()
	stores, err := app.OpenStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	engine := booking.NewEngine(stores.Booking, app.EngineOptions(cfg, nil)...)
	defer engine.Flush()
	return fn(cfg, engine)
}
