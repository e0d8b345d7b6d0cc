// Package schedule runs recurring tasks bound to a context.
//
// Usage:
//
//	job := schedule.Every(30).Seconds().
//		Name("orders:delivery").
//		WithoutOverlapping().
//		Start(ctx, refresh)
//	defer job.Stop()
//
// A job runs its task once at start and then on every tick until the
// context is cancelled or Stop is called.
package schedule

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shashiranjanraj/platter/pkg/logger"
)

// Task receives the job's context, which is cancelled by Stop.
type Task func(ctx context.Context)

// Schedule is a fluent builder for a job before it starts.
type Schedule struct {
	id         string
	interval   time.Duration
	noOverlap  bool
	skipFirst  bool
	beforeHook Task
	afterHook  Task
}

// ------------------- Registry -------------------

var (
	regMu sync.Mutex
	jobs  = map[*Job]struct{}{}
	seq   int
)

// Every starts a fluent builder with n units.
func Every(n int) *freqBuilder { return &freqBuilder{n: n} }

// Interval schedules at an arbitrary period such as a configured duration.
func Interval(d time.Duration) *Schedule { return &Schedule{interval: d} }

// ------------------- Fluent frequency builder -------------------

type freqBuilder struct{ n int }

func (f *freqBuilder) Seconds() *Schedule { return Interval(time.Duration(f.n) * time.Second) }
func (f *freqBuilder) Minutes() *Schedule { return Interval(time.Duration(f.n) * time.Minute) }

// ------------------- Schedule chainable options -------------------

// WithoutOverlapping skips a tick while the previous run is still executing.
func (s *Schedule) WithoutOverlapping() *Schedule {
	s.noOverlap = true
	return s
}

// Delayed waits one full interval before the first run.
func (s *Schedule) Delayed() *Schedule {
	s.skipFirst = true
	return s
}

func (s *Schedule) Before(fn Task) *Schedule {
	s.beforeHook = fn
	return s
}

// After registers a hook that fires after the task, even on panic.
func (s *Schedule) After(fn Task) *Schedule {
	s.afterHook = fn
	return s
}

// Name gives the job an identifier for logging and List.
func (s *Schedule) Name(id string) *Schedule {
	s.id = id
	return s
}

// ------------------- Job -------------------

// Job is a running schedule. It is stopped by Stop or by cancelling the
// context passed to Start.
type Job struct {
	s      Schedule
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
	runs    int
}

// Start launches the job in the background and registers it.
func (s *Schedule) Start(ctx context.Context, fn Task) *Job {
	if s.interval <= 0 {
		s.interval = time.Second
	}
	regMu.Lock()
	seq++
	if s.id == "" {
		s.id = fmt.Sprintf("task-%d", seq)
	}
	regMu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	j := &Job{s: *s, ctx: ctx, cancel: cancel, done: make(chan struct{})}

	regMu.Lock()
	jobs[j] = struct{}{}
	regMu.Unlock()

	go j.loop(fn)
	logger.Debug("schedule: job started", "id", j.s.id, "every", j.s.interval.String())
	return j
}

func (j *Job) loop(fn Task) {
	defer func() {
		j.wg.Wait()
		regMu.Lock()
		delete(jobs, j)
		regMu.Unlock()
		close(j.done)
		logger.Debug("schedule: job stopped", "id", j.s.id)
	}()

	if !j.s.skipFirst {
		j.dispatch(fn)
	}
	ticker := time.NewTicker(j.s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-j.ctx.Done():
			return
		case <-ticker.C:
			j.dispatch(fn)
		}
	}
}

func (j *Job) dispatch(fn Task) {
	j.mu.Lock()
	if j.s.noOverlap && j.running {
		j.mu.Unlock()
		logger.Debug("schedule: skipping overlapping run", "id", j.s.id)
		return
	}
	j.running = true
	j.runs++
	j.mu.Unlock()

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		defer func() {
			j.mu.Lock()
			j.running = false
			j.mu.Unlock()
			if r := recover(); r != nil {
				logger.Error("schedule: task panicked", "id", j.s.id, "panic", r)
			}
			if j.s.afterHook != nil {
				j.s.afterHook(j.ctx)
			}
		}()

		if j.s.beforeHook != nil {
			j.s.beforeHook(j.ctx)
		}
		fn(j.ctx)
	}()
}

// Stop cancels the job and waits for an in-flight run to return.
// Safe to call more than once. Must not be called from the job's own task;
// use Cancel there.
func (j *Job) Stop() {
	j.cancel()
	<-j.done
}

// Cancel stops future runs without waiting.
func (j *Job) Cancel() { j.cancel() }

// Done is closed once the job has fully stopped.
func (j *Job) Done() <-chan struct{} { return j.done }

func (j *Job) ID() string { return j.s.id }

// Runs reports how many times the task has been dispatched.
func (j *Job) Runs() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runs
}

// List returns the running jobs (for CLI display).
func List() []string {
	regMu.Lock()
	defer regMu.Unlock()
	out := make([]string, 0, len(jobs))
	for j := range jobs {
		out = append(out, fmt.Sprintf("%s  [%s]", j.s.id, j.s.interval))
	}
	sort.Strings(out)
	return out
}
