package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Strob0t/AgentShift/internal/domain/schedule"
)

// DefaultSchedulerTick is how often the scheduler checks for due jobs.
const DefaultSchedulerTick = 5 * time.Second

// JobFunc is the body of a scheduled job.
type JobFunc func(ctx context.Context, now time.Time) error

// Job is a named function run on a schedule.
type Job struct {
	Name     string
	Schedule schedule.CronSchedule
	Run      JobFunc

	next    time.Time
	running atomic.Bool
}

// Scheduler runs jobs when they fall due. A job never overlaps with
// itself; different jobs may run concurrently. Failures are logged and the
// job waits for its next occurrence.
type Scheduler struct {
	jobs []*Job
	tick time.Duration
	loc  *time.Location
	now  func() time.Time

	wg       sync.WaitGroup
	stop     chan struct{}
	stopOnce sync.Once
}

// NewScheduler creates a Scheduler evaluating schedules in loc.
func NewScheduler(loc *time.Location, tick time.Duration) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if tick <= 0 {
		tick = DefaultSchedulerTick
	}
	return &Scheduler{tick: tick, loc: loc, now: time.Now, stop: make(chan struct{})}
}

// Add registers a job. Its first run is the first occurrence after now.
func (s *Scheduler) Add(name string, sched schedule.CronSchedule, run JobFunc) {
	j := &Job{Name: name, Schedule: sched, Run: run}
	j.next = sched.NextAfter(s.now().In(s.loc))
	s.jobs = append(s.jobs, j)
	slog.Info("job scheduled", "job", name, "next", j.next)
}

// Start launches the background ticker.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.tick)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.runDue(ctx, s.now().In(s.loc))
			case <-s.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	slog.Info("scheduler started", "jobs", len(s.jobs))
}

// Stop halts the ticker and waits for running jobs to return.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	s.wg.Wait()
}

func (s *Scheduler) runDue(ctx context.Context, now time.Time) {
	for _, j := range s.jobs {
		if j.next.After(now) {
			continue
		}
		if !j.running.CompareAndSwap(false, true) {
			continue
		}
		j.next = j.Schedule.NextAfter(now)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer j.running.Store(false)

			started := time.Now()
			if err := j.Run(ctx, now); err != nil {
				slog.ErrorContext(ctx, "job failed", "job", j.Name, "error", err)
				return
			}
			slog.DebugContext(ctx, "job complete", "job", j.Name, "duration_ms", time.Since(started).Milliseconds())
		}()
	}
}
