// Package ntpcheck watches host clock drift against an NTP server.
// Snapshot times are compared across hosts downstream, so a drifting
// clock quietly corrupts the history; the checker surfaces it.
package ntpcheck

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"dockmon/internal/check"
	"dockmon/internal/collect"

	"github.com/beevik/ntp"
)

const (
	// DefaultServer is queried when the config names no NTP server.
	DefaultServer = "pool.ntp.org"
	// checkInterval spaces out queries; drift builds slowly and public
	// pools throttle chatty clients.
	checkInterval = time.Hour
	// driftThreshold is 500ms: past that, cross-host snapshot ordering
	// is no longer trustworthy.
	driftThreshold = 500 * time.Millisecond
)

type Phase uint8

const (
	PhaseUnchecked Phase = iota + 1
	PhaseHealthy
	PhaseDrifted
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseUnchecked:
		return "unchecked"
	case PhaseHealthy:
		return "healthy"
	case PhaseDrifted:
		return "drifted"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// Transition validates the phase graph. Nothing returns to unchecked;
// every checked phase may repeat or move to any other checked phase.
func (p Phase) Transition(to Phase) Phase {
	ok := false
	switch p {
	case PhaseUnchecked, PhaseHealthy, PhaseDrifted, PhaseError:
		ok = to == PhaseHealthy || to == PhaseDrifted || to == PhaseError
	}
	check.Assertf(ok, "ntp transition: %s -> %s", p, to)
	if !ok {
		return p
	}
	return to
}

// Status is the result of the most recent drift check.
type Status struct {
	Offset    time.Duration
	Phase     Phase
	Error     string
	CheckedAt time.Time
}

// Checker periodically measures the host clock offset. Drift is reported
// through Status and the log, never acted on; stepping the clock is the
// administrator's call.
type Checker struct {
	mu     sync.RWMutex
	status Status

	server    string
	interval  time.Duration
	threshold time.Duration
	clock     collect.Clock
	log       *slog.Logger

	// QueryFunc overrides the NTP query in tests. It returns the
	// measured clock offset.
	QueryFunc func(server string) (time.Duration, error)
}

func NewChecker(server string, clock collect.Clock, log *slog.Logger) *Checker {
	check.Assert(clock != nil, "ntpcheck.NewChecker: clock must not be nil")
	if server == "" {
		server = DefaultServer
	}
	return &Checker{
		server:    server,
		interval:  checkInterval,
		threshold: driftThreshold,
		status:    Status{Phase: PhaseUnchecked},
		clock:     clock,
		log:       log,
	}
}

// Run checks immediately, then on every interval tick until ctx ends.
func (n *Checker) Run(ctx context.Context) {
	n.check()

	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.check()
		}
	}
}

func (n *Checker) check() {
	offset, err := n.query()

	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.clock.Now()
	if err != nil {
		n.log.Warn("ntp query failed", "server", n.server, "error", err)
		n.status = Status{
			Error:     err.Error(),
			Phase:     n.status.Phase.Transition(PhaseError),
			CheckedAt: now,
		}
		return
	}

	phase := PhaseDrifted
	if offset.Abs() < n.threshold {
		phase = PhaseHealthy
	} else {
		n.log.Warn("host clock drifting",
			"server", n.server, "offset", offset, "threshold", n.threshold)
	}
	clockOffsetSeconds.Set(offset.Seconds())
	n.status = Status{
		Offset:    offset,
		Phase:     n.status.Phase.Transition(phase),
		CheckedAt: now,
	}
}

func (n *Checker) query() (time.Duration, error) {
	if n.QueryFunc != nil {
		return n.QueryFunc(n.server)
	}
	resp, err := ntp.Query(n.server)
	if err != nil {
		return 0, err
	}
	return resp.ClockOffset, nil
}

func (n *Checker) Status() Status {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.status
}

// Offset returns the last measured offset in seconds, for the clock
// offset gauge. Unchecked and failed checks read as zero.
func (n *Checker) Offset() float64 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.status.Phase == PhaseHealthy || n.status.Phase == PhaseDrifted {
		return n.status.Offset.Seconds()
	}
	return 0
}
