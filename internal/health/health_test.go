package health

import (
	"strings"
	"sync"
	"testing"
	"time"
)

var t0 = time.Date(2024, 9, 17, 8, 0, 0, 0, time.UTC)

func TestCheckLiveness_Healthy(t *testing.T) {
	s := NewState(t0)

	res := s.CheckLiveness(t0.Add(42 * time.Second))

	if res.Status != StatusHealthy {
		t.Fatalf("status = %s, want %s", res.Status, StatusHealthy)
	}
	if res.Uptime != 42*time.Second {
		t.Fatalf("uptime = %s, want 42s", res.Uptime)
	}
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
}

func TestCheckLiveness_ClockRegression(t *testing.T) {
	s := NewState(t0)

	res := s.CheckLiveness(t0.Add(-time.Second))

	if res.Status != StatusUnhealthy {
		t.Fatalf("status = %s, want %s", res.Status, StatusUnhealthy)
	}
	if res.Err == nil {
		t.Fatal("expected error for negative uptime")
	}
}

func TestCheckLiveness_IgnoresDraining(t *testing.T) {
	s := NewState(t0)
	s.MarkDraining()

	// A draining process is still alive.
	if res := s.CheckLiveness(t0.Add(time.Minute)); res.Status != StatusHealthy {
		t.Fatalf("draining process should stay healthy, got %s", res.Status)
	}
}

func TestCheckReadiness_MinUptimeGate(t *testing.T) {
	s := NewState(t0)
	minUptime := 5 * time.Second

	cases := []struct {
		name   string
		now    time.Time
		status Status
	}{
		{"just started", t0.Add(100 * time.Millisecond), StatusNotReady},
		{"one tick before threshold", t0.Add(minUptime - time.Millisecond), StatusNotReady},
		{"exactly at threshold", t0.Add(minUptime), StatusReady},
		{"well past threshold", t0.Add(time.Hour), StatusReady},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := s.CheckReadiness(tc.now, minUptime)
			if res.Status != tc.status {
				t.Fatalf("status = %s, want %s", res.Status, tc.status)
			}
		})
	}
}

func TestCheckReadiness_ReasonCitesObservedAndRequired(t *testing.T) {
	s := NewState(t0)

	res := s.CheckReadiness(t0.Add(1200*time.Millisecond), 5*time.Second)

	if res.Status != StatusNotReady {
		t.Fatalf("status = %s, want %s", res.Status, StatusNotReady)
	}
	if !strings.Contains(res.Reason, "1.2s") || !strings.Contains(res.Reason, "5s") {
		t.Fatalf("reason should cite observed and required uptime, got %q", res.Reason)
	}
}

func TestMarkDraining_NoResurrection(t *testing.T) {
	s := NewState(t0)
	now := t0.Add(time.Hour) // uptime gate long satisfied

	if res := s.CheckReadiness(now, time.Second); res.Status != StatusReady {
		t.Fatalf("precondition failed, status = %s", res.Status)
	}

	s.MarkDraining()
	s.MarkDraining() // repeated signals are harmless

	for i := 0; i < 3; i++ {
		res := s.CheckReadiness(now.Add(time.Duration(i)*time.Minute), time.Second)
		if res.Status != StatusNotReady {
			t.Fatalf("check %d after draining: status = %s, want %s", i, res.Status, StatusNotReady)
		}
		if !strings.Contains(res.Reason, "shutting down") {
			t.Fatalf("reason = %q, want shutting down", res.Reason)
		}
	}
}

func TestMarkDraining_ConcurrentWithChecks(t *testing.T) {
	s := NewState(t0)
	now := t0.Add(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				_ = s.CheckReadiness(now, time.Second)
				_ = s.CheckLiveness(now)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 1000; j++ {
			s.MarkDraining()
		}
	}()
	wg.Wait()

	if res := s.CheckReadiness(now, time.Second); res.Status != StatusNotReady {
		t.Fatalf("status after concurrent draining = %s, want %s", res.Status, StatusNotReady)
	}
}
