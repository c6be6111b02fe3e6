package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	perrors "github.com/jmurray2011/parrot/internal/errors"
)

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestRegistry_EnforcesLimit(t *testing.T) {
	e, _, _ := newEngine(t, "line\n")
	r := NewRegistry(e, 2, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s1, err := r.Open(ctx, Options{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	s2, err := r.Open(ctx, Options{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if s1.ID == s2.ID {
		t.Error("sessions share an id")
	}

	if _, err := r.Open(ctx, Options{}); !errors.Is(err, ErrSessionLimit) {
		t.Fatalf("third Open() error = %v, want ErrSessionLimit", err)
	}

	cancel()
	waitUntil(t, func() bool { return r.Active() == 0 })

	if _, err := r.Open(context.Background(), Options{}); err != nil {
		t.Errorf("Open() after release error = %v", err)
	}
}

func TestRegistry_DeregistersWhenRunEnds(t *testing.T) {
	e, _, _ := newEngine(t, "line\n")
	r := NewRegistry(e, 0, nil, nil)

	s, err := r.Open(context.Background(), Options{Override: "missing"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, ok := r.Get(s.ID); !ok {
		t.Fatal("session not registered")
	}

	if err := s.Run(context.Background(), (&collector{}).emit); !errors.Is(err, perrors.ErrNoMatchingFile) {
		t.Fatalf("Run() error = %v", err)
	}
	if _, ok := r.Get(s.ID); ok {
		t.Error("session still registered after Run returned")
	}
}

func TestRegistry_Stats(t *testing.T) {
	e, _, _ := newEngine(t, "line\n")
	r := NewRegistry(e, 10, nil, nil)

	for i := 0; i < 2; i++ {
		s, err := r.Open(context.Background(), Options{Interval: time.Millisecond})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		c := &collector{failAt: 3}
		if err := s.Run(context.Background(), c.emit); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	}

	stats := r.Stats()
	if stats.Active != 0 || stats.Opened != 2 {
		t.Errorf("Stats() = %+v", stats)
	}
	// each session completed three ticks with one line before its fourth emit failed
	if stats.Ticks != 6 || stats.Emitted != 6 {
		t.Errorf("Stats() ticks/emitted = %d/%d, want 6/6", stats.Ticks, stats.Emitted)
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	e, _, _ := newEngine(t, "line\n")
	r := NewRegistry(e, 10, nil, m)

	ctx, cancel := context.WithCancel(context.Background())
	s, err := r.Open(ctx, Options{Interval: time.Millisecond})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if got := promtest.ToFloat64(m.SessionsActive); got != 1 {
		t.Errorf("sessions_active = %v, want 1", got)
	}

	c := &collector{failAt: 2}
	if err := s.Run(ctx, c.emit); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	cancel()

	if got := promtest.ToFloat64(m.SessionsActive); got != 0 {
		t.Errorf("sessions_active = %v, want 0", got)
	}
	if got := promtest.ToFloat64(m.SessionsTotal); got != 1 {
		t.Errorf("sessions_total = %v", got)
	}
	if got := promtest.ToFloat64(m.LinesEmitted); got != 2 {
		t.Errorf("lines_emitted = %v, want 2", got)
	}
	if got := promtest.ToFloat64(m.Ticks); got != 3 {
		t.Errorf("ticks = %v, want 3", got)
	}

	failing, err := r.Open(context.Background(), Options{Override: "missing"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	_ = failing.Run(context.Background(), c.emit)
	if got := promtest.ToFloat64(m.SessionErrors.WithLabelValues("no_matching_file")); got != 1 {
		t.Errorf("session_errors{no_matching_file} = %v", got)
	}

	m.ObserveRead(nil)
	m.ObserveRead(perrors.InvalidArgument("lines", "x", "is not an integer"))
	if got := promtest.ToFloat64(m.ReadRequests.WithLabelValues("ok")); got != 1 {
		t.Errorf("read_requests{ok} = %v", got)
	}
	if got := promtest.ToFloat64(m.ReadRequests.WithLabelValues("invalid_argument")); got != 1 {
		t.Errorf("read_requests{invalid_argument} = %v", got)
	}
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRead(nil)
	m.sessionOpened()
	m.sessionClosed()
	m.tick()
	m.linesEmitted(3)
	m.sessionError(errors.New("x"))
}
