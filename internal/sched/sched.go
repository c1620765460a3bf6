// Package sched runs independent periodic tasks on one goroutine. Cadences
// stay independent in data but serialized in execution: a slow task delays
// the others for that iteration only.
package sched

import (
	"context"
	"time"
)

type task struct {
	name   string
	period time.Duration
	last   time.Time
	run    func(now time.Time)
}

// Scheduler ticks registered tasks whenever their period has elapsed. The
// clock is injectable so cadences can be advanced independently in tests.
type Scheduler struct {
	tasks []*task
	now   func() time.Time
	sleep func(time.Duration)
	idle  time.Duration
}

// New returns a scheduler using the given clock, or time.Now when nil.
func New(clock func() time.Time, idle time.Duration) *Scheduler {
	if clock == nil {
		clock = time.Now
	}
	if idle <= 0 {
		idle = 50 * time.Millisecond
	}
	return &Scheduler{
		now:   clock,
		sleep: time.Sleep,
		idle:  idle,
	}
}

// Add registers a task. A task runs on the first tick after registration
// and then once per elapsed period.
func (s *Scheduler) Add(name string, period time.Duration, run func(now time.Time)) {
	s.tasks = append(s.tasks, &task{name: name, period: period, run: run})
}

// Tick runs every task whose period has elapsed, in registration order,
// and reports how many ran.
func (s *Scheduler) Tick() int {
	now := s.now()
	ran := 0
	for _, t := range s.tasks {
		if t.last.IsZero() || now.Sub(t.last) >= t.period {
			t.last = now
			t.run(now)
			ran++
		}
	}
	return ran
}

// Run ticks until the context is cancelled, sleeping the idle delay
// between iterations.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		s.Tick()
		s.sleep(s.idle)
	}
}
