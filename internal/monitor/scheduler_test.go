package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"dockmon/internal/adapter/fake"
	"dockmon/internal/check"
)

func TestScheduler_OverrunStartsNextCycleImmediately(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC)
	clock := fake.NewClock(start)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Every cycle takes 7s against a 5s period: the next start is already
	// due when the cycle ends, so starts are spaced by cycle duration.
	runner := &stubRunner{clock: clock}
	runner.run = func(_ context.Context, n int) error {
		clock.Advance(7 * time.Second)
		if n == 3 {
			cancel()
		}
		return nil
	}
	s := NewScheduler(runner, 5*time.Second, clock, testLogger())

	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}

	want := []time.Time{start, start.Add(7 * time.Second), start.Add(14 * time.Second)}
	got := runner.Starts()
	if len(got) != len(want) {
		t.Fatalf("cycle starts = %v, want %d cycles", got, len(want))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("cycle %d started at %v, want %v", i, got[i], want[i])
		}
	}
	if got := s.Phase(); got != PhaseTerminating {
		t.Errorf("final phase = %s, want terminating", got)
	}
}

func TestScheduler_WaitsOutThePeriod(t *testing.T) {
	t.Parallel()

	clock := fake.NewClock(time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ran := make(chan struct{}, 4)
	runner := &stubRunner{clock: clock}
	runner.run = func(context.Context, int) error {
		ran <- struct{}{}
		return nil
	}
	s := NewScheduler(runner, time.Hour, clock, testLogger())

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("first cycle never ran")
	}
	// An instant cycle against an hour-long period parks the scheduler in
	// its wait; a second cycle here would mean the wait is broken.
	time.Sleep(50 * time.Millisecond)
	if n := len(runner.Starts()); n != 1 {
		t.Fatalf("cycles before cancel = %d, want 1", n)
	}
	if got := s.Phase(); got != PhaseIdle {
		t.Errorf("waiting phase = %s, want idle", got)
	}

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if got := s.Phase(); got != PhaseTerminating {
		t.Errorf("final phase = %s, want terminating", got)
	}
}

func TestScheduler_FinishesCycleBeforeStopping(t *testing.T) {
	t.Parallel()

	clock := fake.NewClock(time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	completed := false
	runner := &stubRunner{clock: clock}
	runner.run = func(cycleCtx context.Context, _ int) error {
		// Shutdown arrives mid-cycle; the cycle body must not see it.
		cancel()
		if cycleCtx.Err() != nil {
			t.Error("cycle context canceled mid-cycle")
		}
		completed = true
		return nil
	}
	s := NewScheduler(runner, time.Minute, clock, testLogger())

	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}
	if !completed {
		t.Error("cycle did not complete before shutdown")
	}
	if n := len(runner.Starts()); n != 1 {
		t.Errorf("cycles = %d, want 1", n)
	}
	if got := s.Phase(); got != PhaseTerminating {
		t.Errorf("final phase = %s, want terminating", got)
	}
}

func TestScheduler_KeepsGoingAfterCycleFailure(t *testing.T) {
	t.Parallel()

	clock := fake.NewClock(time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := &stubRunner{clock: clock}
	runner.run = func(_ context.Context, n int) error {
		if n == 3 {
			cancel()
		}
		return errors.New("cycle exploded")
	}
	s := NewScheduler(runner, time.Millisecond, clock, testLogger())

	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}
	if n := len(runner.Starts()); n != 3 {
		t.Errorf("cycles = %d, want 3 despite failures", n)
	}
}

func TestSchedulerPhase_String(t *testing.T) {
	t.Parallel()

	cases := map[Phase]string{
		PhaseIdle:        "idle",
		PhaseRunning:     "running",
		PhaseTerminating: "terminating",
		Phase(0):         "unknown",
	}
	for phase, want := range cases {
		if got := phase.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", phase, got, want)
		}
	}
}

func TestSchedulerPhase_InvalidTransitionKeepsPhase(t *testing.T) {
	t.Parallel()

	if check.Enabled {
		defer func() {
			if recover() == nil {
				t.Fatal("invalid transition did not trip the assertion")
			}
		}()
	}
	if got := PhaseTerminating.Transition(PhaseRunning); got != PhaseTerminating {
		t.Fatalf("invalid transition moved phase to %s", got)
	}
}

// --- fakes ---

type stubRunner struct {
	mu     sync.Mutex
	starts []time.Time
	clock  *fake.Clock
	run    func(ctx context.Context, n int) error
}

func (r *stubRunner) RunCycle(ctx context.Context) (CycleStats, error) {
	r.mu.Lock()
	n := len(r.starts) + 1
	r.starts = append(r.starts, r.clock.Now())
	r.mu.Unlock()

	var err error
	if r.run != nil {
		err = r.run(ctx, n)
	}
	return CycleStats{}, err
}

func (r *stubRunner) Starts() []time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Time(nil), r.starts...)
}
