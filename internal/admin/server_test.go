package admin

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type stubSource struct {
	status Status
}

func (s *stubSource) Status() Status { return s.status }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestServer_Healthz(t *testing.T) {
	t.Parallel()

	srv := NewServer(&stubSource{}, testLogger())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("body = %q, want ok payload", rec.Body.String())
	}
}

func TestServer_StatusReportsMonitorState(t *testing.T) {
	t.Parallel()

	cycleTime := time.Date(2025, time.November, 3, 10, 0, 0, 0, time.UTC)
	source := &stubSource{status: Status{
		Hostname: "host-a",
		Version:  "1.2.3",
		Phase:    "idle",
		Cycles:   42,
		LastCycle: &CycleReport{
			Time:       cycleTime,
			Enumerated: 5,
			Matched:    4,
			Failed:     1,
			Written:    3,
			DurationMS: 120,
		},
	}}
	srv := NewServer(source, testLogger())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q, want application/json", ct)
	}

	var got Status
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if got.Hostname != "host-a" || got.Cycles != 42 || got.Phase != "idle" {
		t.Fatalf("status = %+v, want host-a/42/idle", got)
	}
	if got.LastCycle == nil || got.LastCycle.Written != 3 {
		t.Fatalf("last cycle = %+v, want written 3", got.LastCycle)
	}
	if got.Clock != nil {
		t.Fatalf("clock = %+v, want omitted", got.Clock)
	}
}

func TestServer_MetricsServesPrometheusText(t *testing.T) {
	t.Parallel()

	srv := NewServer(&stubSource{}, testLogger())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	// The default registry always carries the Go runtime collectors.
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Fatal("metrics output is missing default collectors")
	}
}

func TestServer_ListenAndServeStopsOnCancel(t *testing.T) {
	t.Parallel()

	srv := NewServer(&stubSource{}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(ctx, "127.0.0.1:0")
	}()

	// Give the listener a moment to come up before stopping it.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("ListenAndServe() error = %v, want nil after shutdown", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop after cancellation")
	}
}
