// Package scheduler runs recurring maintenance jobs, such as the weekly
// reservation reset, on cron schedules evaluated in the service's local
// zone.  Time comes from an injected clock so tests can drive the loop
// without waiting.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/iliyamo/studyroom-reservation/internal/clock"
	"github.com/iliyamo/studyroom-reservation/internal/metrics"
)

// WeeklyReset is the schedule of the full reservation wipe: Sunday 00:00.
const WeeklyReset = "0 0 * * 0"

// Job is a named unit of work fired on a cron schedule.
type Job struct {
	Name     string
	Schedule cron.Schedule
	Run      func(ctx context.Context) error
}

// ErrNeverFires is returned for a schedule that parses but matches no
// date, such as "0 0 30 2 *".
var ErrNeverFires = errors.New("schedule never fires")

// NewJob parses spec as a standard five-field cron expression.
func NewJob(name, spec string, run func(ctx context.Context) error) (Job, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return Job{}, fmt.Errorf("scheduler: job %s: %w", name, err)
	}
	if sched.Next(time.Now()).IsZero() {
		return Job{}, fmt.Errorf("scheduler: job %s: %q: %w", name, spec, ErrNeverFires)
	}
	return Job{Name: name, Schedule: sched, Run: run}, nil
}

// Next returns the first trigger of spec strictly after now, in loc.
func Next(spec string, now time.Time, loc *time.Location) (time.Time, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return time.Time{}, err
	}
	next := sched.Next(now.In(loc))
	if next.IsZero() {
		return time.Time{}, ErrNeverFires
	}
	return next, nil
}

// Runner fires jobs on their schedules until its context is cancelled.
// Each job has its own loop: a trigger runs to completion before the
// next one is computed, so a job never overlaps itself.
type Runner struct {
	clock  clock.Clock
	loc    *time.Location
	logger *log.Logger
	jobs   []Job
}

// New returns a Runner.  A nil logger logs to the standard logger with a
// "scheduler: " prefix.
func New(c clock.Clock, loc *time.Location, logger *log.Logger, jobs ...Job) *Runner {
	if logger == nil {
		logger = log.New(log.Writer(), "scheduler: ", log.Flags())
	}
	if loc == nil {
		loc = time.Local
	}
	return &Runner{clock: c, loc: loc, logger: logger, jobs: jobs}
}

// Run blocks until ctx is done.
func (r *Runner) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, j := range r.jobs {
		wg.Add(1)
		go func(j Job) {
			defer wg.Done()
			r.loop(ctx, j)
		}(j)
	}
	wg.Wait()
}

func (r *Runner) loop(ctx context.Context, j Job) {
	var last time.Time
	for {
		now := r.clock.Now().In(r.loc)
		// Never schedule at or before the trigger that just fired, even
		// if the clock reads slightly behind it.
		from := now
		if from.Before(last) {
			from = last
		}
		next := j.Schedule.Next(from)
		// robfig returns the zero time when nothing matches within five
		// years; waiting on it would fire immediately, forever.
		if next.IsZero() || !next.After(from) {
			r.logger.Printf("%s: no future trigger after %s; job disabled", j.Name, from.Format(time.RFC3339))
			return
		}
		metrics.SetJobNextRun(j.Name, next)
		r.logger.Printf("%s: next run at %s", j.Name, next.Format(time.RFC3339))

		select {
		case <-ctx.Done():
			r.logger.Printf("%s: stopped", j.Name)
			return
		case <-r.clock.After(next.Sub(now)):
		}
		last = next
		r.fire(ctx, j)
	}
}

// fire runs the job once.  Errors and panics are logged and absorbed so
// the loop always re-arms.
func (r *Runner) fire(ctx context.Context, j Job) {
	start := r.clock.Now()
	var err error
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
		metrics.RecordJobRun(j.Name, err, r.clock.Now())
		if err != nil {
			r.logger.Printf("%s: failed: %v", j.Name, err)
			return
		}
		r.logger.Printf("%s: completed in %s", j.Name, r.clock.Now().Sub(start))
	}()
	err = j.Run(ctx)
}
