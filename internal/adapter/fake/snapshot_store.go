package fake

import (
	"context"
	"sync"

	"dockmon"
	"dockmon/internal/adapter/fake/fault"
	"dockmon/internal/persist"
)

var _ persist.Store = (*SnapshotStore)(nil)

// FaultSnapshotStoreSave is the injection point for SaveSnapshots.
const FaultSnapshotStoreSave = "snapshot_store.save"

// SnapshotStore is an in-memory implementation of persist.Store that
// keeps every saved cycle for assertion.
type SnapshotStore struct {
	CallRecorder
	mu     sync.Mutex
	cycles [][]dockmon.Row
	faults *fault.Injector

	SaveSnapshotsErr func(ctx context.Context, rows []dockmon.Row) error
}

// NewSnapshotStore creates an empty SnapshotStore.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{faults: fault.NewInjector()}
}

// FailOnce injects err for the next evaluation of point.
func (s *SnapshotStore) FailOnce(point string, err error) {
	s.faults.FailOnce(point, err)
}

// FailAlways injects err on every evaluation of point.
func (s *SnapshotStore) FailAlways(point string, err error) {
	s.faults.FailAlways(point, err)
}

// ResetFaults removes all configured faults.
func (s *SnapshotStore) ResetFaults() {
	s.faults.Reset()
}

func (s *SnapshotStore) SaveSnapshots(ctx context.Context, rows []dockmon.Row) error {
	s.record("SaveSnapshots", len(rows))
	if err := s.faults.Eval(FaultSnapshotStoreSave, ctx, rows); err != nil {
		return err
	}
	if s.SaveSnapshotsErr != nil {
		if err := s.SaveSnapshotsErr(ctx, rows); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := make([]dockmon.Row, len(rows))
	copy(saved, rows)
	s.cycles = append(s.cycles, saved)
	return nil
}

// Cycles returns every saved batch in write order.
func (s *SnapshotStore) Cycles() [][]dockmon.Row {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([][]dockmon.Row, len(s.cycles))
	copy(out, s.cycles)
	return out
}

// LastCycle returns the most recent batch, or nil when nothing was saved.
func (s *SnapshotStore) LastCycle() []dockmon.Row {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.cycles) == 0 {
		return nil
	}
	return s.cycles[len(s.cycles)-1]
}
