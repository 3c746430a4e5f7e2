package persist

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"dockmon"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRows(n int) []dockmon.Row {
	rows := make([]dockmon.Row, n)
	for i := range rows {
		rows[i] = dockmon.Row{
			ContainerIdentity: dockmon.ContainerIdentity{
				Hostname:      "host-a",
				ContainerID:   string(rune('a' + i)),
				ContainerName: "c",
				ImageName:     "img",
			},
		}
	}
	return rows
}

func newTestWriter(store Store) *Writer {
	w := NewWriter(store, testLogger())
	w.backoff = time.Millisecond
	return w
}

func TestWriteStoresBatchFirstTry(t *testing.T) {
	t.Parallel()

	store := &stubStore{}
	w := newTestWriter(store)

	if err := w.Write(context.Background(), testRows(3)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got, want := store.callCount(), 1; got != want {
		t.Errorf("store calls = %d, want %d", got, want)
	}
	if got, want := len(store.lastSaved()), 3; got != want {
		t.Errorf("saved rows = %d, want %d", got, want)
	}
}

func TestWriteRetriesTransientFailure(t *testing.T) {
	t.Parallel()

	store := &stubStore{err: failFirst(2, errors.New("database is locked"))}
	w := newTestWriter(store)

	if err := w.Write(context.Background(), testRows(2)); err != nil {
		t.Fatalf("Write should succeed on third attempt: %v", err)
	}
	if got, want := store.callCount(), 3; got != want {
		t.Errorf("store calls = %d, want %d", got, want)
	}
}

func TestWriteAbandonsBatchAfterRetryBudget(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection refused")
	store := &stubStore{err: func(int) error { return boom }}
	w := newTestWriter(store)

	err := w.Write(context.Background(), testRows(2))
	if err == nil {
		t.Fatal("Write should fail once retries exhaust")
	}
	if !errors.Is(err, boom) {
		t.Errorf("error %v should wrap the store error", err)
	}
	if got, want := store.callCount(), writeAttempts; got != want {
		t.Errorf("store calls = %d, want %d", got, want)
	}
	if len(store.lastSaved()) != 0 {
		t.Error("no rows should be recorded for an abandoned batch")
	}
}

func TestWriteSkipsEmptyBatch(t *testing.T) {
	t.Parallel()

	store := &stubStore{}
	w := newTestWriter(store)

	if err := w.Write(context.Background(), nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := store.callCount(); got != 0 {
		t.Errorf("store calls = %d, want 0", got)
	}
}

func TestWriteStopsBackoffOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	store := &stubStore{err: func(int) error {
		cancel() // cancel while the writer would back off
		return errors.New("down")
	}}
	w := newTestWriter(store)
	w.backoff = time.Minute

	start := time.Now()
	err := w.Write(ctx, testRows(1))
	if err == nil {
		t.Fatal("Write should fail when cancelled")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error %v should wrap context.Canceled", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Write waited %v, should return promptly on cancel", elapsed)
	}
	if got, want := store.callCount(), 1; got != want {
		t.Errorf("store calls = %d, want %d", got, want)
	}
}

// --- fakes ---

type stubStore struct {
	mu    sync.Mutex
	calls int
	saved [][]dockmon.Row
	err   func(call int) error
}

func (s *stubStore) SaveSnapshots(_ context.Context, rows []dockmon.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.err != nil {
		if err := s.err(s.calls); err != nil {
			return err
		}
	}
	cp := make([]dockmon.Row, len(rows))
	copy(cp, rows)
	s.saved = append(s.saved, cp)
	return nil
}

func (s *stubStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubStore) lastSaved() []dockmon.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.saved) == 0 {
		return nil
	}
	return s.saved[len(s.saved)-1]
}

func failFirst(n int, err error) func(int) error {
	return func(call int) error {
		if call <= n {
			return err
		}
		return nil
	}
}
