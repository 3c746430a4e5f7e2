// Package persist writes assembled snapshot batches to the store with
// bounded retries. It owns the cycle's durability decision: a batch is
// stored whole or abandoned whole.
package persist

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dockmon"
)

const (
	// writeAttempts is 3: transient store contention clears quickly or not at all.
	writeAttempts = 3
	// writeBackoff is 1s, doubled per attempt: a failing cycle waits at most ~3s
	// before it is abandoned and the next cycle proceeds fresh.
	writeBackoff = time.Second
	// writeTimeout is 10s: bounds one store attempt so a wedged database cannot
	// stall the scheduler past the retry budget.
	writeTimeout = 10 * time.Second
)

// Writer persists one batch per call. Failed batches are never queued for
// a later cycle; history gets a gap instead of a backlog.
type Writer struct {
	store Store
	log   *slog.Logger

	attempts int
	backoff  time.Duration
	timeout  time.Duration
}

// NewWriter returns a Writer with the default retry budget.
func NewWriter(store Store, log *slog.Logger) *Writer {
	return &Writer{
		store:    store,
		log:      log,
		attempts: writeAttempts,
		backoff:  writeBackoff,
		timeout:  writeTimeout,
	}
}

// Write stores the batch, retrying with doubling backoff on failure. An
// empty batch is a no-op. The returned error means the whole batch was
// discarded; no partial cycle is ever visible.
func (w *Writer) Write(ctx context.Context, rows []dockmon.Row) error {
	if len(rows) == 0 {
		return nil
	}

	backoff := w.backoff
	var lastErr error
	for attempt := range w.attempts {
		attemptCtx, cancel := w.attemptContext(ctx)
		err := w.store.SaveSnapshots(attemptCtx, rows)
		cancel()
		if err == nil {
			if attempt > 0 {
				w.log.Info("snapshot write succeeded after retry",
					"attempt", attempt+1, "rows", len(rows))
			}
			return nil
		}
		lastErr = err
		w.log.Warn("snapshot write failed",
			"attempt", attempt+1, "rows", len(rows), "error", err)

		if attempt == w.attempts-1 {
			break
		}
		writeRetriesTotal.Inc()
		select {
		case <-ctx.Done():
			return fmt.Errorf("snapshot write interrupted: %w", ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	writesAbandonedTotal.Inc()
	return fmt.Errorf("write %d rows failed after %d attempts: %w", len(rows), w.attempts, lastErr)
}

func (w *Writer) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if w.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, w.timeout)
}
