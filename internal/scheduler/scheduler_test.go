package scheduler

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/iliyamo/studyroom-reservation/internal/clock"
)

var seoul = time.FixedZone("KST", 9*60*60)

func TestNextWeeklyResetIsAlwaysAFutureSundayMidnight(t *testing.T) {
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, seoul) // a Sunday
	for h := 0; h < 24*15; h += 5 {
		now := start.Add(time.Duration(h) * time.Hour)
		next, err := Next(WeeklyReset, now, seoul)
		if err != nil {
			t.Fatal(err)
		}
		if !next.After(now) {
			t.Fatalf("%s: next %s is not in the future", now, next)
		}
		if next.Weekday() != time.Sunday || next.Hour() != 0 || next.Minute() != 0 || next.Second() != 0 {
			t.Fatalf("%s: next %s is not Sunday 00:00:00", now, next)
		}
		if next.Sub(now) > 7*24*time.Hour {
			t.Fatalf("%s: next %s is more than a week away", now, next)
		}
	}
}

func TestNextFromSundayIsAWeekLater(t *testing.T) {
	sunday := time.Date(2026, 2, 15, 0, 0, 0, 0, seoul)
	next, err := Next(WeeklyReset, sunday, seoul)
	if err != nil {
		t.Fatal(err)
	}
	if want := sunday.AddDate(0, 0, 7); !next.Equal(want) {
		t.Fatalf("from Sunday midnight got %s, want %s", next, want)
	}
	later, _ := Next(WeeklyReset, sunday.Add(10*time.Hour), seoul)
	if !later.Equal(sunday.AddDate(0, 0, 7)) {
		t.Fatalf("from Sunday morning got %s", later)
	}
}

func TestNewJobRejectsBadSpec(t *testing.T) {
	if _, err := NewJob("bad", "every sunday", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected a parse error")
	}
}

// TestRunnerRearmsAfterFailures drives three weekly triggers on a fake
// clock: the first returns an error, the second panics, the third
// succeeds.  Every trigger must land on a Sunday midnight.
func TestRunnerRearmsAfterFailures(t *testing.T) {
	fc := clock.Fake(time.Date(2026, 2, 18, 13, 30, 0, 0, seoul)) // Wednesday
	var (
		mu    sync.Mutex
		fired []time.Time
	)
	calls := 0
	job, err := NewJob("weekly-reset", WeeklyReset, func(context.Context) error {
		mu.Lock()
		fired = append(fired, fc.Now())
		calls++
		n := calls
		mu.Unlock()
		switch n {
		case 1:
			return errors.New("database is down")
		case 2:
			panic("unexpected nil store")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	var buf syncBuffer
	logger := log.New(&buf, "scheduler: ", 0)
	r := New(fc, seoul, logger, job)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	for i := 0; i < 3; i++ {
		fc.WaitForTimers(1)
		deadline, ok := fc.NextDeadline()
		if !ok {
			t.Fatal("no pending timer")
		}
		if deadline.In(seoul).Weekday() != time.Sunday || deadline.In(seoul).Hour() != 0 {
			t.Fatalf("trigger %d armed for %s", i, deadline.In(seoul))
		}
		fc.Set(deadline)
		waitFor(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(fired) == i+1
		})
	}

	// The loop re-armed after the third run as well.
	fc.WaitForTimers(1)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop on cancel")
	}

	want := []string{"2026-02-22", "2026-03-01", "2026-03-08"}
	for i, ts := range fired {
		if got := ts.In(seoul).Format("2006-01-02 15:04"); got != want[i]+" 00:00" {
			t.Fatalf("run %d at %s, want %s 00:00", i, got, want[i])
		}
	}
	out := buf.String()
	for _, s := range []string{"database is down", "panic: unexpected nil store", "completed"} {
		if !strings.Contains(out, s) {
			t.Fatalf("log is missing %q:\n%s", s, out)
		}
	}
}

func TestRunnerStopsWhileWaiting(t *testing.T) {
	fc := clock.Fake(time.Date(2026, 2, 18, 0, 0, 0, 0, seoul))
	job, _ := NewJob("noop", WeeklyReset, func(context.Context) error {
		t.Error("job must not run")
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		New(fc, seoul, log.New(&syncBuffer{}, "", 0), job).Run(ctx)
		close(done)
	}()
	fc.WaitForTimers(1)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
}

func TestScheduleThatNeverMatches(t *testing.T) {
	const feb30 = "0 0 30 2 *"
	if _, err := NewJob("weekly-reset", feb30, func(context.Context) error { return nil }); !errors.Is(err, ErrNeverFires) {
		t.Fatalf("NewJob err = %v, want ErrNeverFires", err)
	}
	if _, err := Next(feb30, time.Now(), seoul); !errors.Is(err, ErrNeverFires) {
		t.Fatalf("Next err = %v, want ErrNeverFires", err)
	}

	// A Job built by hand bypasses NewJob; the loop must still refuse to
	// spin on it.
	sched, err := cron.ParseStandard(feb30)
	if err != nil {
		t.Fatal(err)
	}
	var (
		mu    sync.Mutex
		calls int
	)
	job := Job{Name: "weekly-reset", Schedule: sched, Run: func(context.Context) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return nil
	}}
	fc := clock.Fake(time.Date(2026, 2, 18, 0, 0, 0, 0, seoul))
	var buf syncBuffer
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		New(fc, seoul, log.New(&buf, "", 0), job).Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("runner kept looping on a schedule with no future trigger")
	}
	mu.Lock()
	defer mu.Unlock()
	if calls != 0 {
		t.Fatalf("job ran %d times without the clock moving", calls)
	}
	if !strings.Contains(buf.String(), "no future trigger") {
		t.Fatalf("log = %q", buf.String())
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
