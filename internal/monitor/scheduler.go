package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"dockmon/internal/check"
	"dockmon/internal/collect"
)

// Phase is the scheduler's lifecycle state.
type Phase uint8

const (
	PhaseIdle Phase = iota + 1
	PhaseRunning
	PhaseTerminating
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRunning:
		return "running"
	case PhaseTerminating:
		return "terminating"
	default:
		return "unknown"
	}
}

// Transition validates the phase graph: idle and running alternate, both
// may terminate, and terminating is terminal.
func (p Phase) Transition(to Phase) Phase {
	ok := false
	switch p {
	case PhaseIdle:
		ok = to == PhaseRunning || to == PhaseTerminating
	case PhaseRunning:
		ok = to == PhaseIdle || to == PhaseTerminating
	}
	check.Assertf(ok, "scheduler transition: %s -> %s", p, to)
	if !ok {
		return p
	}
	return to
}

// Scheduler repeats cycles on a fixed start-to-start period: the next
// cycle is due one period after the previous one STARTED. Cycles never
// overlap; when one overruns the period, the next starts immediately
// after it finishes.
type Scheduler struct {
	runner CycleRunner
	clock  collect.Clock
	log    *slog.Logger
	period time.Duration

	mu    sync.Mutex
	phase Phase
}

func NewScheduler(runner CycleRunner, period time.Duration, clock collect.Clock, log *slog.Logger) *Scheduler {
	check.Assertf(period > 0, "scheduler period %v", period)
	return &Scheduler{
		runner: runner,
		clock:  clock,
		log:    log,
		period: period,
		phase:  PhaseIdle,
	}
}

// Run executes cycles until ctx is canceled. Cancellation is honored at
// cycle boundaries only: an in-flight cycle always reaches its
// commit-or-abandon point, so no partially persisted cycle is left
// behind. A failed cycle is logged and the schedule keeps going.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		s.setPhase(PhaseRunning)
		start := s.clock.Now()
		// The cycle body deliberately outlives ctx; its runtime and
		// store calls carry their own timeouts.
		if _, err := s.runner.RunCycle(context.WithoutCancel(ctx)); err != nil {
			s.log.Error("cycle failed", "error", err)
		}

		if ctx.Err() != nil {
			s.setPhase(PhaseTerminating)
			return ctx.Err()
		}
		s.setPhase(PhaseIdle)

		wait := start.Add(s.period).Sub(s.clock.Now())
		if wait <= 0 {
			s.log.Debug("cycle overran period, starting next immediately",
				"period", s.period)
			continue
		}
		select {
		case <-ctx.Done():
			s.setPhase(PhaseTerminating)
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// Phase returns the scheduler's current lifecycle state.
func (s *Scheduler) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Scheduler) setPhase(to Phase) {
	s.mu.Lock()
	s.phase = s.phase.Transition(to)
	s.mu.Unlock()
}
