package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		FailureThreshold:    3,
		SuccessThreshold:    2,
		Timeout:             20 * time.Millisecond,
		MaxRequestsHalfOpen: 2,
	}
}

func failing() error { return errors.New("downstream failure") }

func TestExecute_ClosedPassesThrough(t *testing.T) {
	cb := New(testConfig())

	err := cb.Execute(context.Background(), func() error { return nil })
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Errorf("state = %v, want closed", cb.GetState())
	}
}

func TestExecute_OpensAfterThreshold(t *testing.T) {
	cb := New(testConfig())

	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), failing)
	}
	if cb.GetState() != StateOpen {
		t.Fatalf("state = %v, want open after %d failures", cb.GetState(), 3)
	}

	// Requests are rejected without invoking fn while open.
	called := false
	err := cb.Execute(context.Background(), func() error {
		called = true
		return nil
	})
	if err == nil {
		t.Fatal("Execute() expected rejection while open")
	}
	if called {
		t.Error("fn should not run while circuit is open")
	}
}

func TestExecute_HalfOpenRecovery(t *testing.T) {
	cb := New(testConfig())

	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), failing)
	}
	time.Sleep(25 * time.Millisecond)

	// Two successes in half-open close the circuit again.
	for i := 0; i < 2; i++ {
		if err := cb.Execute(context.Background(), func() error { return nil }); err != nil {
			t.Fatalf("Execute() in half-open error = %v", err)
		}
	}
	if cb.GetState() != StateClosed {
		t.Errorf("state = %v, want closed after recovery", cb.GetState())
	}
}

func TestExecute_HalfOpenFailureReopens(t *testing.T) {
	cb := New(testConfig())

	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), failing)
	}
	time.Sleep(25 * time.Millisecond)

	_ = cb.Execute(context.Background(), failing)
	if cb.GetState() != StateOpen {
		t.Errorf("state = %v, want open after half-open failure", cb.GetState())
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb := New(testConfig())

	_ = cb.Execute(context.Background(), failing)
	_ = cb.Execute(context.Background(), failing)
	_ = cb.Execute(context.Background(), func() error { return nil })
	_ = cb.Execute(context.Background(), failing)

	if cb.GetState() != StateClosed {
		t.Errorf("state = %v, want closed, failures are not consecutive", cb.GetState())
	}
}

func TestReset(t *testing.T) {
	cb := New(testConfig())

	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), failing)
	}
	cb.Reset()

	if cb.GetState() != StateClosed {
		t.Errorf("state = %v, want closed after Reset", cb.GetState())
	}
	if err := cb.Execute(context.Background(), func() error { return nil }); err != nil {
		t.Errorf("Execute() after Reset error = %v", err)
	}
}

func TestGetStats(t *testing.T) {
	cb := New(testConfig())
	_ = cb.Execute(context.Background(), failing)

	stats := cb.GetStats()
	if stats.State != StateClosed {
		t.Errorf("stats.State = %v, want closed", stats.State)
	}
	if stats.FailureCount != 1 {
		t.Errorf("stats.FailureCount = %d, want 1", stats.FailureCount)
	}
	if stats.LastFailureTime.IsZero() {
		t.Error("stats.LastFailureTime should be set")
	}
}

func TestStateString(t *testing.T) {
	if StateClosed.String() != "closed" || StateOpen.String() != "open" || StateHalfOpen.String() != "half-open" {
		t.Error("unexpected State string values")
	}
	if State(99).String() != "unknown" {
		t.Error("unexpected String for invalid state")
	}
}
